package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/prospectus/internal/models"
)

// JobClass controls failure handling: calculation jobs are re-queued through
// the retry queue when interrupted, ingest jobs simply run again next trigger.
type JobClass string

const (
	JobClassIngest      JobClass = "ingest"
	JobClassCalculation JobClass = "calculation"
	JobClassMaintenance JobClass = "maintenance"
)

// Trigger describes when a job fires: a cron expression, or a fixed interval.
// Exactly one of Cron/Every is set. Manual-only jobs leave both empty.
type Trigger struct {
	Cron  string
	Every time.Duration
}

// IsManual reports whether the job only runs on demand.
func (t Trigger) IsManual() bool {
	return t.Cron == "" && t.Every == 0
}

// Job is a bounded unit of scheduled work.
type Job interface {
	ID() string
	Name() string
	Trigger() Trigger
	Class() JobClass

	// Run executes one invocation. Params carry manual-trigger arguments.
	Run(ctx context.Context, params map[string]any) error
}

// SchedulerService is the job-control surface consumed by HTTP handlers.
type SchedulerService interface {
	// Start elects this process as the scheduler owner and begins firing
	// triggers. Returns false when another process already owns the
	// scheduler, a fresh startup lock exists, or DISABLE_SCHEDULER is set.
	Start(ctx context.Context) (bool, error)

	// Shutdown stops the scheduler gracefully, awaiting in-flight jobs.
	Shutdown(ctx context.Context)

	// IsRunning reports cross-process scheduler liveness via the heartbeat file.
	IsRunning() bool

	// RegisterJob adds a job to the registry before Start.
	RegisterJob(job Job) error

	// RunNow schedules a one-shot execution on the scheduler's own pool so
	// the caller never blocks. Returns false for unknown job ids.
	RunNow(jobID string, params map[string]any) bool

	PauseJob(jobID string) bool
	ResumeJob(jobID string) bool

	// ListJobs returns the status of every registered job, batching the
	// necessary execution-log queries.
	ListJobs(ctx context.Context) ([]models.JobStatus, error)
}
