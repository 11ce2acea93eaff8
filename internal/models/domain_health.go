package models

import "time"

// DomainHealthRecord tracks consecutive fetch failures per normalized host.
// Once the failure counter reaches the configured threshold the domain is
// auto-blacklisted and every subsequent fetch short-circuits.
type DomainHealthRecord struct {
	Domain            string     `db:"domain" json:"domain"`
	FailureCount      int        `db:"consecutive_failure_count" json:"consecutive_failure_count"`
	LastFailureReason string     `db:"last_failure_reason" json:"last_failure_reason,omitempty"`
	LastFailureAt     *time.Time `db:"last_failure_at" json:"last_failure_at,omitempty"`
	LastSuccessAt     *time.Time `db:"last_success_at" json:"last_success_at,omitempty"`
	AutoBlacklisted   bool       `db:"auto_blacklisted" json:"auto_blacklisted"`
}
