// -----------------------------------------------------------------------
// Domain Health Store - per-domain failure counters and the blacklist
// Counter updates ride single upsert statements so concurrent pipeline
// workers never race on read-modify-write.
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type DomainHealthStore struct {
	db *sqlx.DB
}

var _ interfaces.DomainHealthStorage = (*DomainHealthStore)(nil)

func NewDomainHealthStore(db *sqlx.DB) *DomainHealthStore {
	return &DomainHealthStore{db: db}
}

// RecordSuccess resets the consecutive failure counter. A blacklisted domain
// stays blacklisted; only manual intervention clears the flag.
func (s *DomainHealthStore) RecordSuccess(ctx context.Context, domain string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_health (domain, consecutive_failure_count, last_success_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (domain) DO UPDATE SET
			consecutive_failure_count = 0,
			last_success_at = NOW()`, domain)
	if err != nil {
		return fmt.Errorf("failed to record domain success: %w", err)
	}
	return nil
}

// RecordFailure increments the counter atomically and returns the new count.
func (s *DomainHealthStore) RecordFailure(ctx context.Context, domain, reason string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO domain_health (domain, consecutive_failure_count, last_failure_reason, last_failure_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (domain) DO UPDATE SET
			consecutive_failure_count = domain_health.consecutive_failure_count + 1,
			last_failure_reason = EXCLUDED.last_failure_reason,
			last_failure_at = NOW()
		RETURNING consecutive_failure_count`, domain, reason).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to record domain failure: %w", err)
	}
	return count, nil
}

func (s *DomainHealthStore) Get(ctx context.Context, domain string) (*models.DomainHealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec models.DomainHealthRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT domain, consecutive_failure_count,
		       COALESCE(last_failure_reason, '') AS last_failure_reason,
		       last_failure_at, last_success_at, auto_blacklisted
		FROM domain_health
		WHERE domain = $1`, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load domain health: %w", err)
	}
	return &rec, nil
}

func (s *DomainHealthStore) SetBlacklisted(ctx context.Context, domain string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_health (domain, consecutive_failure_count, auto_blacklisted)
		VALUES ($1, 0, TRUE)
		ON CONFLICT (domain) DO UPDATE SET auto_blacklisted = TRUE`, domain)
	if err != nil {
		return fmt.Errorf("failed to blacklist domain: %w", err)
	}
	return nil
}

func (s *DomainHealthStore) IsBlacklisted(ctx context.Context, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var blacklisted bool
	err := s.db.GetContext(ctx, &blacklisted,
		`SELECT auto_blacklisted FROM domain_health WHERE domain = $1`, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return blacklisted, nil
}
