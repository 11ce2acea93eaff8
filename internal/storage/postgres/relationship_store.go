package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// RelationshipStore persists the ticker-relationship graph. Duplicate edges
// reinforce: each re-detection bumps confidence by 0.1 up to 1.0.
type RelationshipStore struct {
	db *sqlx.DB
}

var _ interfaces.RelationshipStorage = (*RelationshipStore)(nil)

func NewRelationshipStore(db *sqlx.DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func (s *RelationshipStore) Save(ctx context.Context, rel *models.Relationship) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if rel.DetectedAt.IsZero() {
		rel.DetectedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticker_relationships (
			source_ticker, target_ticker, relationship_type,
			confidence, source_article_id, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_ticker, target_ticker, relationship_type) DO UPDATE SET
			confidence = LEAST(ticker_relationships.confidence + 0.1, 1.0),
			source_article_id = EXCLUDED.source_article_id,
			detected_at = EXCLUDED.detected_at`,
		rel.SourceTicker, rel.TargetTicker, rel.Type,
		rel.Confidence, rel.SourceArticleID, rel.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}
	return nil
}
