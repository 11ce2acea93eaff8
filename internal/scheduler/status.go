// -----------------------------------------------------------------------
// Scheduler Status - batched job-status reporting
// The status page must render fast for dozens of jobs, so execution-log
// access is fixed at two queries regardless of job count.
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

const recentLogCount = 5

// ListJobs returns the status of every registered job.
func (s *Scheduler) ListJobs(ctx context.Context) ([]models.JobStatus, error) {
	runningRows, err := s.executions.RunningByJob(ctx, models.StaleRunningAge)
	if err != nil {
		return nil, err
	}
	recentRows, err := s.executions.RecentByJob(ctx, recentLogCount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	statuses := make([]models.JobStatus, 0, len(s.order))
	for _, id := range s.order {
		reg := s.jobs[id]
		job := reg.job

		status := models.JobStatus{
			ID:       id,
			Name:     job.Name(),
			IsPaused: s.paused[id],
		}

		// Next run is computed from the trigger itself so it is available
		// even when the scheduler is stopped or the job paused.
		if !status.IsPaused {
			if next, ok := nextFire(job.Trigger(), now); ok {
				status.NextRunTime = &next
			}
		}

		if row, ok := runningRows[job.Name()]; ok {
			status.IsRunning = true
			startedAt := row.StartedAt
			status.RunningSince = &startedAt
		}

		recent := recentRows[job.Name()]
		status.RecentLogs = recent
		// Only surface an error while it is the latest word on the job.
		if len(recent) > 0 && recent[0].Status == models.ExecutionFailed {
			status.LastError = recent[0].ErrorMessage
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// nextFire computes the next scheduled fire time for a trigger.
func nextFire(trigger interfaces.Trigger, now time.Time) (time.Time, bool) {
	if trigger.IsManual() {
		return time.Time{}, false
	}
	if trigger.Every > 0 {
		return now.Add(trigger.Every), true
	}
	schedule, err := cron.ParseStandard(trigger.Cron)
	if err != nil {
		return time.Time{}, false
	}
	return schedule.Next(now), true
}
