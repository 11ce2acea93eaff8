// -----------------------------------------------------------------------
// Social Store - social metrics, extracted posts and sentiment sessions
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type SocialStore struct {
	db *sqlx.DB
}

var _ interfaces.SocialStorage = (*SocialStore)(nil)

func NewSocialStore(db *sqlx.DB) *SocialStore {
	return &SocialStore{db: db}
}

func (s *SocialStore) SaveMetric(ctx context.Context, metric *models.SocialMetric) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO social_metrics (
			ticker, platform, created_at, volume, bull_bear_ratio,
			sentiment_label, sentiment_score, raw_posts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		metric.Ticker, metric.Platform, metric.CreatedAt, metric.Volume,
		metric.BullBearRatio, metric.SentimentLabel, metric.SentimentScore,
		[]byte(metric.RawPosts)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save social metric: %w", err)
	}

	metric.ID = id
	return id, nil
}

// MetricsWithRawPosts lists metrics whose raw payload has not been extracted
// into per-post rows yet.
func (s *SocialStore) MetricsWithRawPosts(ctx context.Context, limit int) ([]models.SocialMetric, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var metrics []models.SocialMetric
	err := s.db.SelectContext(ctx, &metrics, `
		SELECT id, ticker, platform, created_at, volume, bull_bear_ratio,
		       sentiment_label, sentiment_score, raw_posts, analysis_session_id
		FROM social_metrics
		WHERE raw_posts IS NOT NULL AND NOT posts_extracted
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics with raw posts: %w", err)
	}
	return metrics, nil
}

func (s *SocialStore) InsertPosts(ctx context.Context, posts []models.SocialPost) error {
	if len(posts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin post insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO social_posts (metric_id, ticker, platform, author, body, label, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, p.MetricID, p.Ticker, p.Platform, p.Author, p.Body, p.Label, p.PostedAt); err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SocialStore) MarkPostsExtracted(ctx context.Context, metricID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`UPDATE social_metrics SET posts_extracted = TRUE WHERE id = $1`, metricID)
	if err != nil {
		return fmt.Errorf("failed to mark posts extracted: %w", err)
	}
	return nil
}

func (s *SocialStore) UnsessionedPosts(ctx context.Context, limit int) ([]models.SocialPost, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var posts []models.SocialPost
	err := s.db.SelectContext(ctx, &posts, `
		SELECT id, metric_id, ticker, platform, author, body, label, posted_at, session_id
		FROM social_posts
		WHERE session_id IS NULL
		ORDER BY posted_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsessioned posts: %w", err)
	}
	return posts, nil
}

func (s *SocialStore) SaveSession(ctx context.Context, session *models.SentimentSession) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sentiment_sessions (
			id, ticker, platform, window_start, window_end, post_count,
			sentiment_label, sentiment_score, ai_summary, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			post_count = EXCLUDED.post_count`,
		session.ID, session.Ticker, session.Platform, session.WindowStart,
		session.WindowEnd, session.PostCount, session.SentimentLabel,
		session.SentimentScore, session.AISummary, session.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("failed to save sentiment session: %w", err)
	}
	return nil
}

func (s *SocialStore) AssignPostsToSession(ctx context.Context, sessionID string, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`UPDATE social_posts SET session_id = $1 WHERE id = ANY($2)`,
		sessionID, pq.Int64Array(postIDs))
	if err != nil {
		return fmt.Errorf("failed to assign posts to session: %w", err)
	}
	return nil
}

func (s *SocialStore) SessionsNeedingAnalysis(ctx context.Context, limit int) ([]models.SentimentSession, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sessions []models.SentimentSession
	err := s.db.SelectContext(ctx, &sessions, `
		SELECT id, ticker, platform, window_start, window_end, post_count,
		       sentiment_label, sentiment_score, ai_summary, analyzed_at
		FROM sentiment_sessions
		WHERE analyzed_at IS NULL AND window_end <= NOW()
		ORDER BY window_start ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions needing analysis: %w", err)
	}
	return sessions, nil
}

func (s *SocialStore) PostsForSession(ctx context.Context, sessionID string) ([]models.SocialPost, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var posts []models.SocialPost
	err := s.db.SelectContext(ctx, &posts, `
		SELECT id, metric_id, ticker, platform, author, body, label, posted_at, session_id
		FROM social_posts
		WHERE session_id = $1
		ORDER BY posted_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session posts: %w", err)
	}
	return posts, nil
}

func (s *SocialStore) UpdateSessionAnalysis(ctx context.Context, session *models.SentimentSession) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sentiment_sessions SET
			sentiment_label = $2,
			sentiment_score = $3,
			ai_summary = $4,
			analyzed_at = NOW()
		WHERE id = $1`,
		session.ID, session.SentimentLabel, session.SentimentScore, session.AISummary)
	if err != nil {
		return fmt.Errorf("failed to update session analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sentiment session %s not found", session.ID)
	}
	return nil
}

// ClearRawPostsBefore nulls raw payloads past the 14-day retention window.
func (s *SocialStore) ClearRawPostsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE social_metrics SET raw_posts = NULL WHERE created_at < $1 AND raw_posts IS NOT NULL`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear raw posts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteMetricsBefore removes whole metric rows past the 60-day window.
func (s *SocialStore) DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM social_metrics WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metrics: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteSessionsBefore removes analysis rows past the 90-day window.
func (s *SocialStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sentiment_sessions WHERE window_end < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
