package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type FeedStore struct {
	db *sqlx.DB
}

var _ interfaces.FeedStorage = (*FeedStore)(nil)

func NewFeedStore(db *sqlx.DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) EnabledFeeds(ctx context.Context) ([]models.RSSFeed, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var feeds []models.RSSFeed
	err := s.db.SelectContext(ctx, &feeds, `
		SELECT id, url, name, enabled, last_fetched_at
		FROM rss_feeds
		WHERE enabled
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled feeds: %w", err)
	}
	return feeds, nil
}

func (s *FeedStore) TouchFetched(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`UPDATE rss_feeds SET last_fetched_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch feed: %w", err)
	}
	return nil
}
