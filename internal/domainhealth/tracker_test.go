package domainhealth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/models"
)

// fakeStore is an in-memory DomainHealthStorage.
type fakeStore struct {
	counts      map[string]int
	blacklisted map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int{}, blacklisted: map[string]bool{}}
}

func (f *fakeStore) RecordSuccess(_ context.Context, domain string) error {
	f.counts[domain] = 0
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, domain, _ string) (int, error) {
	f.counts[domain]++
	return f.counts[domain], nil
}

func (f *fakeStore) Get(_ context.Context, domain string) (*models.DomainHealthRecord, error) {
	return &models.DomainHealthRecord{
		Domain:          domain,
		FailureCount:    f.counts[domain],
		AutoBlacklisted: f.blacklisted[domain],
	}, nil
}

func (f *fakeStore) SetBlacklisted(_ context.Context, domain string) error {
	f.blacklisted[domain] = true
	return nil
}

func (f *fakeStore) IsBlacklisted(_ context.Context, domain string) (bool, error) {
	return f.blacklisted[domain], nil
}

func TestTrackerAutoBlacklistsAtThreshold(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 4, common.GetLogger())
	ctx := context.Background()
	url := "https://www.slowsite.com/articles/1"

	for i := 0; i < 3; i++ {
		assert.False(t, tracker.RecordFailure(ctx, url, "timeout"))
		assert.False(t, tracker.IsBlacklisted(ctx, url))
	}

	// Fourth consecutive failure crosses the threshold.
	assert.True(t, tracker.RecordFailure(ctx, url, "timeout"))
	assert.True(t, tracker.IsBlacklisted(ctx, url))

	// Same domain, different path: still short-circuits.
	assert.True(t, tracker.IsBlacklisted(ctx, "https://slowsite.com/other"))
}

func TestTrackerSuccessResetsCounter(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 4, common.GetLogger())
	ctx := context.Background()
	url := "https://news.example.com/a"

	tracker.RecordFailure(ctx, url, "http_503")
	tracker.RecordFailure(ctx, url, "http_503")
	tracker.RecordFailure(ctx, url, "http_503")
	tracker.RecordSuccess(ctx, url)

	// Three more failures needed again before the threshold fires.
	assert.False(t, tracker.RecordFailure(ctx, url, "http_503"))
	assert.Equal(t, 1, store.counts["news.example.com"])
}
