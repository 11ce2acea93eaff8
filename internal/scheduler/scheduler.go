// -----------------------------------------------------------------------
// Scheduler - trigger firing, worker pool and job lifecycle tracking
// Exactly one process owns the scheduler (see election.go). Every run is
// recorded as a JobExecution row; interrupted calculation jobs are pushed
// into the retry queue.
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"golang.org/x/sync/semaphore"
)

const (
	defaultWorkers = 7

	// highLoadThreshold is where the pool starts warning. The heartbeat
	// updater runs outside the pool and never counts.
	highLoadThreshold = 6

	// misfireGrace bounds how late a missed trigger may still fire on
	// startup; anything older is dropped rather than replayed.
	misfireGrace = 24 * time.Hour

	healthCheckInterval = 5 * time.Minute
	retrySweepInterval  = 10 * time.Minute
	maxRestarts         = 5

	// interruptedReason marks executions orphaned by a container restart.
	interruptedReason = "Container restarted — job interrupted"
)

type registered struct {
	job     interfaces.Job
	entryID cron.EntryID
}

type Scheduler struct {
	executions interfaces.JobExecutionStorage
	retries    interfaces.RetryQueueStorage
	election   *election
	logger     arbor.ILogger

	cron    *cron.Cron
	workers *semaphore.Weighted

	mu        sync.Mutex
	jobs      map[string]*registered
	order     []string
	paused    map[string]bool
	inFlight  map[string]bool
	active    int
	running   bool
	stopping  bool
	restarts  int
	stopHeart chan struct{}
	wg        sync.WaitGroup
}

var _ interfaces.SchedulerService = (*Scheduler)(nil)

func New(logsDir string, executions interfaces.JobExecutionStorage, retries interfaces.RetryQueueStorage, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		executions: executions,
		retries:    retries,
		election:   newElection(logsDir),
		logger:     logger.WithPrefix("scheduler"),
		workers:    semaphore.NewWeighted(defaultWorkers),
		jobs:       map[string]*registered{},
		paused:     map[string]bool{},
		inFlight:   map[string]bool{},
	}
}

// RegisterJob adds a job to the registry. Must be called before Start.
func (s *Scheduler) RegisterJob(job interfaces.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cannot register %q: scheduler already started", job.ID())
	}
	if _, exists := s.jobs[job.ID()]; exists {
		return fmt.Errorf("job %q already registered", job.ID())
	}
	s.jobs[job.ID()] = &registered{job: job}
	s.order = append(s.order, job.ID())
	return nil
}

// Start elects this process as scheduler owner and begins firing triggers.
func (s *Scheduler) Start(ctx context.Context) (bool, error) {
	if disabled() {
		s.logger.Warn().Msg("DISABLE_SCHEDULER is set, scheduler will not start")
		return false, nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	if s.election.heartbeatFresh() {
		s.logger.Info().Msg("Another process owns the scheduler, standing down")
		return false, nil
	}
	ok, err := s.election.acquireLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire startup lock: %w", err)
	}
	if !ok {
		s.logger.Info().Msg("Another process is starting the scheduler, standing down")
		return false, nil
	}
	defer s.election.releaseLock()

	if err := s.sweepStaleRuns(ctx); err != nil {
		return false, err
	}

	if err := s.schedule(); err != nil {
		return false, err
	}
	s.cron.Start()
	if !s.verifyRunning() {
		return false, fmt.Errorf("scheduler failed to start within 2s")
	}

	s.mu.Lock()
	s.running = true
	s.stopping = false
	s.stopHeart = make(chan struct{})
	s.mu.Unlock()

	if err := s.election.touchHeartbeat(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write heartbeat file")
	}
	go s.heartbeatLoop()
	go s.healthLoop()
	go s.backfillMissed()

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return true, nil
}

// schedule builds a fresh cron instance and wires every non-manual trigger.
func (s *Scheduler) schedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron = cron.New()
	for _, id := range s.order {
		reg := s.jobs[id]
		trigger := reg.job.Trigger()
		if trigger.IsManual() {
			continue
		}

		jobID := id
		runner := cron.FuncJob(func() { s.execute(jobID, nil) })

		var err error
		if trigger.Cron != "" {
			reg.entryID, err = s.cron.AddJob(trigger.Cron, runner)
			if err != nil {
				return fmt.Errorf("invalid cron expression for %q: %w", id, err)
			}
		} else {
			reg.entryID = s.cron.Schedule(cron.Every(trigger.Every), runner)
		}
	}
	return nil
}

// verifyRunning polls for up to 2s until the cron loop reports entries.
func (s *Scheduler) verifyRunning() bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.cron.Entries()) > 0 || s.scheduledCount() == 0 {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func (s *Scheduler) scheduledCount() int {
	n := 0
	for _, id := range s.order {
		if !s.jobs[id].job.Trigger().IsManual() {
			n++
		}
	}
	return n
}

// Shutdown stops triggers and awaits in-flight jobs.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopping = true
	close(s.stopHeart)
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown deadline reached with jobs still in flight")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	s.election.clearHeartbeat()
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports cross-process liveness via the heartbeat file.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	local := s.running
	s.mu.Unlock()
	return local || s.election.heartbeatFresh()
}

// RunNow schedules a one-shot execution on the scheduler's own pool.
func (s *Scheduler) RunNow(jobID string, params map[string]any) bool {
	s.mu.Lock()
	_, known := s.jobs[jobID]
	s.mu.Unlock()
	if !known {
		return false
	}

	go s.execute(jobID, params)
	return true
}

func (s *Scheduler) PauseJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.jobs[jobID]; !known {
		return false
	}
	s.paused[jobID] = true
	return true
}

func (s *Scheduler) ResumeJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.jobs[jobID]; !known {
		return false
	}
	delete(s.paused, jobID)
	return true
}

// execute runs one job invocation: pool slot, execution row, panic fence.
func (s *Scheduler) execute(jobID string, params map[string]any) {
	s.mu.Lock()
	reg, known := s.jobs[jobID]
	if !known || s.paused[jobID] || s.inFlight[jobID] {
		// max_instances=1: a still-running invocation wins.
		s.mu.Unlock()
		return
	}
	s.inFlight[jobID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, jobID)
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.workers.Release(1)

	s.mu.Lock()
	s.active++
	active := s.active
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if active >= highLoadThreshold {
		fmt.Fprintf(os.Stderr, "scheduler: high load, %d jobs active\n", active)
		s.logger.Warn().Int("active", active).Msg("Worker pool under high load")
	}

	job := reg.job
	s.logger.Debug().Str("job", job.ID()).Msg("Job submitted")

	execID, err := s.executions.Start(ctx, job.Name(), time.Now().UTC().Format("2006-01-02"), nil)
	if err != nil {
		s.logger.Error().Err(err).Str("job", job.ID()).Msg("Failed to create execution row, skipping run")
		return
	}

	started := time.Now()
	runErr := s.runGuarded(ctx, job, params)
	duration := time.Since(started)

	if runErr != nil {
		s.logger.Error().Err(runErr).Str("job", job.ID()).Str("duration", duration.Round(time.Millisecond).String()).Msg("Job failed")
		if err := s.executions.Complete(ctx, execID, models.ExecutionFailed, runErr.Error(), duration); err != nil {
			s.logger.Warn().Err(err).Str("job", job.ID()).Msg("Failed to record job failure")
		}
		if job.Class() == interfaces.JobClassCalculation {
			s.enqueueRetry(ctx, job.Name(), runErr.Error())
		}
		return
	}

	s.logger.Debug().Str("job", job.ID()).Str("duration", duration.Round(time.Millisecond).String()).Msg("Job executed")
	if err := s.executions.Complete(ctx, execID, models.ExecutionSuccess, "", duration); err != nil {
		s.logger.Warn().Err(err).Str("job", job.ID()).Msg("Failed to record job success")
	}
}

// runGuarded converts panics into errors so one bad job cannot take down
// the pool.
func (s *Scheduler) runGuarded(ctx context.Context, job interfaces.Job, params map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return job.Run(ctx, params)
}

func (s *Scheduler) enqueueRetry(ctx context.Context, jobName, reason string) {
	entry := &models.RetryQueueEntry{
		JobName:       jobName,
		TargetDate:    time.Now().UTC().Format("2006-01-02"),
		EntityID:      jobName,
		EntityType:    "job",
		FailureReason: reason,
		NextAttemptAt: time.Now().Add(retrySweepInterval),
	}
	if err := s.retries.Enqueue(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("job", jobName).Msg("Failed to enqueue retry")
	}
}

// sweepStaleRuns fails and clears running rows orphaned by a previous
// process. Calculation jobs go to the retry queue; the rows are deleted so
// status reporting never sees phantom running jobs.
func (s *Scheduler) sweepStaleRuns(ctx context.Context) error {
	stale, err := s.executions.AllRunning(ctx)
	if err != nil {
		return fmt.Errorf("stale-run sweep failed: %w", err)
	}

	for _, row := range stale {
		if err := s.executions.MarkFailed(ctx, row.ID, interruptedReason); err != nil {
			s.logger.Warn().Err(err).Int64("execution_id", row.ID).Msg("Failed to mark stale execution")
			continue
		}
		if s.classOf(row.JobName) == interfaces.JobClassCalculation {
			s.enqueueRetry(ctx, row.JobName, interruptedReason)
		}
		if err := s.executions.Delete(ctx, row.ID); err != nil {
			s.logger.Warn().Err(err).Int64("execution_id", row.ID).Msg("Failed to delete stale execution")
		}
	}

	if len(stale) > 0 {
		s.logger.Info().Int("swept", len(stale)).Msg("Swept stale running executions")
	}
	return nil
}

func (s *Scheduler) classOf(jobName string) interfaces.JobClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.jobs[id].job.Name() == jobName {
			return s.jobs[id].job.Class()
		}
	}
	return interfaces.JobClassIngest
}

// heartbeatLoop keeps the ownership heartbeat fresh and watches for an
// unexpectedly dead cron loop, restarting it up to the cap.
func (s *Scheduler) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopHeart:
			return
		case <-ticker.C:
			if err := s.election.touchHeartbeat(); err != nil {
				s.logger.Warn().Err(err).Msg("Heartbeat write failed")
			}
			s.checkAlive()
		}
	}
}

// checkAlive restarts the cron loop if its entries vanished without an
// intentional stop.
func (s *Scheduler) checkAlive() {
	s.mu.Lock()
	dead := s.running && !s.stopping && len(s.cron.Entries()) == 0 && s.scheduledCount() > 0
	restarts := s.restarts
	s.mu.Unlock()
	if !dead {
		return
	}

	if restarts >= maxRestarts {
		s.logger.Error().Int("restarts", restarts).Msg("Scheduler died and restart cap reached, giving up")
		return
	}

	s.logger.Error().Int("attempt", restarts+1).Msg("Scheduler stopped unexpectedly, restarting")
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()

	if err := s.schedule(); err != nil {
		s.logger.Error().Err(err).Msg("Restart failed")
		return
	}
	s.cron.Start()
}

// healthLoop logs a periodic liveness line and drives the retry queue.
func (s *Scheduler) healthLoop() {
	health := time.NewTicker(healthCheckInterval)
	retry := time.NewTicker(retrySweepInterval)
	defer health.Stop()
	defer retry.Stop()

	for {
		select {
		case <-s.stopHeart:
			return
		case <-health.C:
			s.mu.Lock()
			active := s.active
			s.mu.Unlock()
			s.logger.Debug().Int("active", active).Int("jobs", len(s.jobs)).Msg("Scheduler healthy")
		case <-retry.C:
			s.processRetryQueue()
		}
	}
}

// processRetryQueue re-runs jobs whose retry entries are due.
func (s *Scheduler) processRetryQueue() {
	ctx := context.Background()
	due, err := s.retries.Due(ctx, time.Now(), 20)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Retry queue read failed")
		return
	}

	for _, entry := range due {
		jobID := s.idForName(entry.JobName)
		if jobID == "" {
			s.logger.Warn().Str("job", entry.JobName).Msg("Retry entry references unknown job, dropping")
			if err := s.retries.Remove(ctx, entry.ID); err != nil {
				s.logger.Warn().Err(err).Int64("entry_id", entry.ID).Msg("Failed to drop retry entry")
			}
			continue
		}

		if s.RunNow(jobID, nil) {
			if err := s.retries.Remove(ctx, entry.ID); err != nil {
				s.logger.Warn().Err(err).Int64("entry_id", entry.ID).Msg("Failed to remove retry entry")
			}
		} else if err := s.retries.Bump(ctx, entry.ID, time.Now().Add(retrySweepInterval)); err != nil {
			s.logger.Warn().Err(err).Int64("entry_id", entry.ID).Msg("Failed to bump retry entry")
		}
	}
}

// backfillMissed fires triggers that would have fired during downtime,
// coalesced to one run per job and bounded by the misfire grace window.
func (s *Scheduler) backfillMissed() {
	ctx := context.Background()
	recent, err := s.executions.RecentByJob(ctx, 1)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Backfill skipped, execution history unavailable")
		return
	}

	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		s.mu.Lock()
		job := s.jobs[id].job
		s.mu.Unlock()

		trigger := job.Trigger()
		if trigger.IsManual() {
			continue
		}

		missed, since := lastFireBefore(trigger, now)
		if !missed || now.Sub(since) > misfireGrace {
			continue
		}

		runs := recent[job.Name()]
		if len(runs) > 0 && runs[0].StartedAt.After(since) {
			continue
		}

		s.logger.Info().Str("job", id).Str("missed_at", since.Format(time.RFC3339)).Msg("Firing missed trigger")
		go s.execute(id, nil)
	}
}

// lastFireBefore computes the most recent scheduled fire time before now.
func lastFireBefore(trigger interfaces.Trigger, now time.Time) (bool, time.Time) {
	if trigger.Every > 0 {
		return true, now.Add(-trigger.Every)
	}

	schedule, err := cron.ParseStandard(trigger.Cron)
	if err != nil {
		return false, time.Time{}
	}
	// Walk forward from the grace horizon to find the last fire before now.
	probe := now.Add(-misfireGrace)
	last := time.Time{}
	for {
		next := schedule.Next(probe)
		if !next.Before(now) {
			break
		}
		last = next
		probe = next
	}
	return !last.IsZero(), last
}

func (s *Scheduler) idForName(jobName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.jobs[id].job.Name() == jobName {
			return id
		}
	}
	return ""
}

func disabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_SCHEDULER")))
	return v == "1" || v == "true" || v == "yes"
}
