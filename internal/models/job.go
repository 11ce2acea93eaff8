package models

import "time"

// ExecutionStatus is the lifecycle state of a job execution row.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// StaleRunningAge is how old a running execution row must be before it is
// treated as a crashed execution.
const StaleRunningAge = 6 * time.Hour

// JobExecution tracks a single run of a job. A row is created in running state
// at job start and transitioned to success/failed at the end. It is the single
// source of truth for "is this job currently running".
type JobExecution struct {
	ID             int64           `db:"id" json:"id"`
	JobName        string          `db:"job_name" json:"job_name"`
	TargetDate     string          `db:"target_date" json:"target_date"`
	FundName       *string         `db:"fund_name" json:"fund_name,omitempty"`
	Status         ExecutionStatus `db:"status" json:"status"`
	StartedAt      time.Time       `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	DurationMS     *int64          `db:"duration_ms" json:"duration_ms,omitempty"`
	ErrorMessage   string          `db:"error_message" json:"error_message,omitempty"`
	FundsProcessed []string        `db:"-" json:"funds_processed,omitempty"`
}

// RetryQueueEntry records a failed unit of work for a later re-attempt.
type RetryQueueEntry struct {
	ID            int64     `db:"id" json:"id"`
	JobName       string    `db:"job_name" json:"job_name"`
	TargetDate    string    `db:"target_date" json:"target_date"`
	EntityID      string    `db:"entity_id" json:"entity_id"`
	EntityType    string    `db:"entity_type" json:"entity_type"`
	FailureReason string    `db:"failure_reason" json:"failure_reason"`
	Attempts      int       `db:"attempts" json:"attempts"`
	NextAttemptAt time.Time `db:"next_attempt_at" json:"next_attempt_at"`
}

// JobStatus is the scheduler's external view of one registered job.
type JobStatus struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	NextRunTime  *time.Time     `json:"next_run_time,omitempty"`
	IsPaused     bool           `json:"is_paused"`
	IsRunning    bool           `json:"is_running"`
	RunningSince *time.Time     `json:"running_since,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	RecentLogs   []JobExecution `json:"recent_logs"`
}

// RSSFeed is a configured feed for the RSS ingest job.
type RSSFeed struct {
	ID            int64      `db:"id" json:"id"`
	URL           string     `db:"url" json:"url"`
	Name          string     `db:"name" json:"name"`
	Enabled       bool       `db:"enabled" json:"enabled"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"last_fetched_at,omitempty"`
}

// Fund is an operational fund; production funds define the owned-ticker set.
type Fund struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	IsProduction bool   `db:"is_production" json:"is_production"`
}

// Position is an active holding in a fund.
type Position struct {
	FundID  int64  `db:"fund_id" json:"fund_id"`
	Ticker  string `db:"ticker" json:"ticker"`
	Company string `db:"company" json:"company"`
	Active  bool   `db:"active" json:"active"`
}
