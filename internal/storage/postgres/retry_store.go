package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// RetryQueueStore persists interrupted calculation work for re-attempts.
type RetryQueueStore struct {
	db *sqlx.DB
}

var _ interfaces.RetryQueueStorage = (*RetryQueueStore)(nil)

func NewRetryQueueStore(db *sqlx.DB) *RetryQueueStore {
	return &RetryQueueStore{db: db}
}

func (s *RetryQueueStore) Enqueue(ctx context.Context, entry *models.RetryQueueEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if entry.NextAttemptAt.IsZero() {
		entry.NextAttemptAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_retry_queue (
			job_name, target_date, entity_id, entity_type,
			failure_reason, attempts, next_attempt_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_name, target_date, entity_id) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			next_attempt_at = EXCLUDED.next_attempt_at`,
		entry.JobName, entry.TargetDate, entry.EntityID, entry.EntityType,
		entry.FailureReason, entry.Attempts, entry.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue retry entry: %w", err)
	}
	return nil
}

func (s *RetryQueueStore) Due(ctx context.Context, now time.Time, limit int) ([]models.RetryQueueEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entries []models.RetryQueueEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, job_name, target_date, entity_id, entity_type,
		       failure_reason, attempts, next_attempt_at
		FROM job_retry_queue
		WHERE next_attempt_at <= $1
		ORDER BY next_attempt_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due retry entries: %w", err)
	}
	return entries, nil
}

func (s *RetryQueueStore) Remove(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `DELETE FROM job_retry_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove retry entry: %w", err)
	}
	return nil
}

func (s *RetryQueueStore) Bump(ctx context.Context, id int64, nextAttempt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE job_retry_queue SET
			attempts = attempts + 1,
			next_attempt_at = $2
		WHERE id = $1`, id, nextAttempt)
	if err != nil {
		return fmt.Errorf("failed to bump retry entry: %w", err)
	}
	return nil
}
