// -----------------------------------------------------------------------
// Domain Health Tracker - failure accounting and auto-blacklisting
// Consulted before every outbound article fetch; a domain that fails the
// threshold number of times in a row stops being fetched at all.
// -----------------------------------------------------------------------

package domainhealth

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// DefaultThreshold is the consecutive-failure count that triggers
// auto-blacklisting when no threshold is configured.
const DefaultThreshold = 4

type Tracker struct {
	store     interfaces.DomainHealthStorage
	threshold int
	logger    arbor.ILogger
}

func NewTracker(store interfaces.DomainHealthStorage, threshold int, logger arbor.ILogger) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{store: store, threshold: threshold, logger: logger}
}

// IsBlacklisted reports whether the URL's domain is blocked. Storage errors
// fail open: a health-tracking outage must not stop ingestion.
func (t *Tracker) IsBlacklisted(ctx context.Context, url string) bool {
	domain := common.NormalizeDomain(url)
	if domain == "" {
		return false
	}

	blacklisted, err := t.store.IsBlacklisted(ctx, domain)
	if err != nil {
		t.logger.Warn().Err(err).Str("domain", domain).Msg("Blacklist check failed, allowing fetch")
		return false
	}
	return blacklisted
}

// RecordSuccess resets the domain's failure counter.
func (t *Tracker) RecordSuccess(ctx context.Context, url string) {
	domain := common.NormalizeDomain(url)
	if domain == "" {
		return
	}
	if err := t.store.RecordSuccess(ctx, domain); err != nil {
		t.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to record domain success")
	}
}

// RecordFailure increments the domain's counter and auto-blacklists once the
// threshold is reached. Returns true when the domain was just blacklisted.
func (t *Tracker) RecordFailure(ctx context.Context, url, reason string) bool {
	domain := common.NormalizeDomain(url)
	if domain == "" {
		return false
	}

	count, err := t.store.RecordFailure(ctx, domain, reason)
	if err != nil {
		t.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to record domain failure")
		return false
	}

	if count < t.threshold {
		return false
	}

	if err := t.store.SetBlacklisted(ctx, domain); err != nil {
		t.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to auto-blacklist domain")
		return false
	}

	t.logger.Warn().
		Str("domain", domain).
		Int("failures", count).
		Str("last_reason", reason).
		Msg("Domain auto-blacklisted after consecutive failures")
	return true
}
