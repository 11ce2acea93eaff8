// -----------------------------------------------------------------------
// Job Execution Store - meta-store lifecycle rows for every job run
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type JobExecutionStore struct {
	db *sqlx.DB
}

var _ interfaces.JobExecutionStorage = (*JobExecutionStore)(nil)

func NewJobExecutionStore(db *sqlx.DB) *JobExecutionStore {
	return &JobExecutionStore{db: db}
}

func (s *JobExecutionStore) Start(ctx context.Context, jobName, targetDate string, fundName *string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO job_executions (job_name, target_date, fund_name, status, started_at)
		VALUES ($1, $2, $3, 'running', NOW())
		RETURNING id`,
		jobName, targetDate, fundName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start job execution: %w", err)
	}
	return id, nil
}

func (s *JobExecutionStore) Complete(ctx context.Context, id int64, status models.ExecutionStatus, errMsg string, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE job_executions SET
			status = $2,
			error_message = NULLIF($3, ''),
			duration_ms = $4,
			completed_at = NOW()
		WHERE id = $1`,
		id, status, errMsg, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to complete job execution: %w", err)
	}
	return nil
}

func (s *JobExecutionStore) StaleRunning(ctx context.Context, age time.Duration) ([]models.JobExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var execs []models.JobExecution
	err := s.db.SelectContext(ctx, &execs, `
		SELECT id, job_name, target_date, fund_name, status, started_at,
		       completed_at, duration_ms, COALESCE(error_message, '') AS error_message
		FROM job_executions
		WHERE status = 'running' AND started_at < NOW() - $1::interval
		ORDER BY started_at ASC`,
		fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale executions: %w", err)
	}
	return execs, nil
}

func (s *JobExecutionStore) AllRunning(ctx context.Context) ([]models.JobExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var execs []models.JobExecution
	err := s.db.SelectContext(ctx, &execs, `
		SELECT id, job_name, target_date, fund_name, status, started_at,
		       completed_at, duration_ms, COALESCE(error_message, '') AS error_message
		FROM job_executions
		WHERE status = 'running'
		ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list running executions: %w", err)
	}
	return execs, nil
}

func (s *JobExecutionStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE job_executions SET
			status = 'failed',
			error_message = $2,
			completed_at = NOW()
		WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark execution failed: %w", err)
	}
	return nil
}

func (s *JobExecutionStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `DELETE FROM job_executions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}
	return nil
}

// RunningByJob returns the freshest running execution per job name in one
// query, ignoring rows older than maxAge.
func (s *JobExecutionStore) RunningByJob(ctx context.Context, maxAge time.Duration) (map[string]models.JobExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var execs []models.JobExecution
	err := s.db.SelectContext(ctx, &execs, `
		SELECT DISTINCT ON (job_name)
		       id, job_name, target_date, fund_name, status, started_at,
		       completed_at, duration_ms, COALESCE(error_message, '') AS error_message
		FROM job_executions
		WHERE status = 'running' AND started_at >= NOW() - $1::interval
		ORDER BY job_name, started_at DESC`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("failed to load running executions by job: %w", err)
	}

	out := make(map[string]models.JobExecution, len(execs))
	for _, e := range execs {
		out[e.JobName] = e
	}
	return out, nil
}

// RecentByJob returns the most recent perJob executions for every job in one
// windowed query.
func (s *JobExecutionStore) RecentByJob(ctx context.Context, perJob int) (map[string][]models.JobExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var execs []models.JobExecution
	err := s.db.SelectContext(ctx, &execs, `
		SELECT id, job_name, target_date, fund_name, status, started_at,
		       completed_at, duration_ms, COALESCE(error_message, '') AS error_message
		FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY job_name ORDER BY started_at DESC) AS rn
			FROM job_executions
		) ranked
		WHERE rn <= $1
		ORDER BY job_name, started_at DESC`, perJob)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent executions by job: %w", err)
	}

	out := make(map[string][]models.JobExecution)
	for _, e := range execs {
		out[e.JobName] = append(out[e.JobName], e)
	}
	return out, nil
}
