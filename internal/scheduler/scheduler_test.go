package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type fakeJob struct {
	id      string
	name    string
	trigger interfaces.Trigger
	class   interfaces.JobClass

	mu   sync.Mutex
	runs int
	fail error
}

func (f *fakeJob) ID() string                  { return f.id }
func (f *fakeJob) Name() string                { return f.name }
func (f *fakeJob) Trigger() interfaces.Trigger { return f.trigger }
func (f *fakeJob) Class() interfaces.JobClass  { return f.class }

func (f *fakeJob) Run(context.Context, map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return f.fail
}

func (f *fakeJob) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeExecutionStore struct {
	mu       sync.Mutex
	nextID   int64
	running  []models.JobExecution
	failed   map[int64]string
	deleted  []int64
	statuses map[int64]models.ExecutionStatus
	recent   map[string][]models.JobExecution
}

func newFakeExecutionStore() *fakeExecutionStore {
	return &fakeExecutionStore{
		failed:   map[int64]string{},
		statuses: map[int64]models.ExecutionStatus{},
		recent:   map[string][]models.JobExecution{},
	}
}

func (f *fakeExecutionStore) Start(_ context.Context, jobName, targetDate string, _ *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.statuses[f.nextID] = models.ExecutionRunning
	return f.nextID, nil
}

func (f *fakeExecutionStore) Complete(_ context.Context, id int64, status models.ExecutionStatus, errMsg string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	if errMsg != "" {
		f.failed[id] = errMsg
	}
	return nil
}

func (f *fakeExecutionStore) StaleRunning(context.Context, time.Duration) ([]models.JobExecution, error) {
	return f.running, nil
}

func (f *fakeExecutionStore) AllRunning(context.Context) ([]models.JobExecution, error) {
	return f.running, nil
}

func (f *fakeExecutionStore) MarkFailed(_ context.Context, id int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

func (f *fakeExecutionStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeExecutionStore) RunningByJob(context.Context, time.Duration) (map[string]models.JobExecution, error) {
	out := map[string]models.JobExecution{}
	for _, row := range f.running {
		out[row.JobName] = row
	}
	return out, nil
}

func (f *fakeExecutionStore) RecentByJob(context.Context, int) (map[string][]models.JobExecution, error) {
	return f.recent, nil
}

type fakeRetryStore struct {
	mu      sync.Mutex
	entries []models.RetryQueueEntry
}

func (f *fakeRetryStore) Enqueue(_ context.Context, entry *models.RetryQueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRetryStore) Due(context.Context, time.Time, int) ([]models.RetryQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RetryQueueEntry(nil), f.entries...), nil
}

func (f *fakeRetryStore) Remove(_ context.Context, id int64) error { return nil }

func (f *fakeRetryStore) Bump(context.Context, int64, time.Time) error { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, *fakeExecutionStore, *fakeRetryStore) {
	t.Helper()
	execs := newFakeExecutionStore()
	retries := &fakeRetryStore{}
	return New(t.TempDir(), execs, retries, common.GetLogger()), execs, retries
}

func TestRegisterJobRejectsDuplicates(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	job := &fakeJob{id: "market_news", name: "Market News"}

	require.NoError(t, s.RegisterJob(job))
	assert.Error(t, s.RegisterJob(job))
}

func TestRunNowUnknownJob(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	assert.False(t, s.RunNow("nope", nil))
}

func TestRunNowExecutesAndRecords(t *testing.T) {
	s, execs, _ := newTestScheduler(t)
	job := &fakeJob{id: "rss_ingest", name: "RSS Ingest", class: interfaces.JobClassIngest}
	require.NoError(t, s.RegisterJob(job))

	require.True(t, s.RunNow("rss_ingest", nil))
	waitFor(t, func() bool {
		execs.mu.Lock()
		defer execs.mu.Unlock()
		return execs.statuses[1] == models.ExecutionSuccess
	})
	assert.Equal(t, 1, job.runCount())
}

func TestFailedCalculationJobIsQueuedForRetry(t *testing.T) {
	s, execs, retries := newTestScheduler(t)
	job := &fakeJob{
		id:    "congress_analysis",
		name:  "Congress Analysis",
		class: interfaces.JobClassCalculation,
		fail:  assert.AnError,
	}
	require.NoError(t, s.RegisterJob(job))

	require.True(t, s.RunNow("congress_analysis", nil))
	waitFor(t, func() bool { return job.runCount() == 1 })
	waitFor(t, func() bool {
		retries.mu.Lock()
		defer retries.mu.Unlock()
		return len(retries.entries) == 1
	})

	retries.mu.Lock()
	entry := retries.entries[0]
	retries.mu.Unlock()
	assert.Equal(t, "Congress Analysis", entry.JobName)

	execs.mu.Lock()
	defer execs.mu.Unlock()
	assert.Equal(t, models.ExecutionFailed, execs.statuses[1])
}

func TestPausedJobDoesNotRun(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	job := &fakeJob{id: "market_news", name: "Market News"}
	require.NoError(t, s.RegisterJob(job))

	require.True(t, s.PauseJob("market_news"))
	require.True(t, s.RunNow("market_news", nil))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, job.runCount())

	require.True(t, s.ResumeJob("market_news"))
	require.True(t, s.RunNow("market_news", nil))
	waitFor(t, func() bool { return job.runCount() == 1 })
}

func TestPanickingJobIsFenced(t *testing.T) {
	s, execs, _ := newTestScheduler(t)
	job := &panicJob{fakeJob{id: "bad", name: "Bad Job", class: interfaces.JobClassIngest}}
	require.NoError(t, s.RegisterJob(job))

	require.True(t, s.RunNow("bad", nil))
	waitFor(t, func() bool {
		execs.mu.Lock()
		defer execs.mu.Unlock()
		return execs.statuses[1] == models.ExecutionFailed
	})

	execs.mu.Lock()
	defer execs.mu.Unlock()
	assert.Contains(t, execs.failed[1], "job panicked")
}

type panicJob struct{ fakeJob }

func (p *panicJob) Run(context.Context, map[string]any) error {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	panic("boom")
}

func TestSweepStaleRuns(t *testing.T) {
	s, execs, retries := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(&fakeJob{id: "congress_analysis", name: "Congress Analysis", class: interfaces.JobClassCalculation}))
	require.NoError(t, s.RegisterJob(&fakeJob{id: "rss_ingest", name: "RSS Ingest", class: interfaces.JobClassIngest}))

	execs.running = []models.JobExecution{
		{ID: 11, JobName: "Congress Analysis", Status: models.ExecutionRunning},
		{ID: 12, JobName: "RSS Ingest", Status: models.ExecutionRunning},
	}

	require.NoError(t, s.sweepStaleRuns(context.Background()))

	assert.Equal(t, interruptedReason, execs.failed[11])
	assert.Equal(t, interruptedReason, execs.failed[12])
	assert.ElementsMatch(t, []int64{11, 12}, execs.deleted)

	// Only the calculation-class job lands in the retry queue.
	retries.mu.Lock()
	defer retries.mu.Unlock()
	require.Len(t, retries.entries, 1)
	assert.Equal(t, "Congress Analysis", retries.entries[0].JobName)
}

func TestListJobsStatus(t *testing.T) {
	s, execs, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(&fakeJob{
		id: "market_news", name: "Market News",
		trigger: interfaces.Trigger{Cron: "5 * * * *"},
	}))
	require.NoError(t, s.RegisterJob(&fakeJob{
		id: "social_collect", name: "Social Sentiment Collect",
		trigger: interfaces.Trigger{Every: time.Hour},
	}))
	require.NoError(t, s.RegisterJob(&fakeJob{id: "manual_only", name: "Manual Only"}))

	started := time.Now().Add(-5 * time.Minute)
	execs.running = []models.JobExecution{
		{ID: 1, JobName: "Market News", Status: models.ExecutionRunning, StartedAt: started},
	}
	execs.recent = map[string][]models.JobExecution{
		"Market News": {
			{ID: 1, JobName: "Market News", Status: models.ExecutionRunning, StartedAt: started},
		},
		"Social Sentiment Collect": {
			{ID: 2, JobName: "Social Sentiment Collect", Status: models.ExecutionFailed, ErrorMessage: "feed exploded"},
			{ID: 3, JobName: "Social Sentiment Collect", Status: models.ExecutionSuccess},
		},
	}

	statuses, err := s.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byID := map[string]models.JobStatus{}
	for _, st := range statuses {
		byID[st.ID] = st
	}

	market := byID["market_news"]
	assert.True(t, market.IsRunning)
	require.NotNil(t, market.RunningSince)
	assert.Empty(t, market.LastError)
	require.NotNil(t, market.NextRunTime)
	assert.Equal(t, 5, market.NextRunTime.Minute())

	social := byID["social_collect"]
	assert.False(t, social.IsRunning)
	assert.Equal(t, "feed exploded", social.LastError, "latest execution failed")
	require.NotNil(t, social.NextRunTime)

	manual := byID["manual_only"]
	assert.Nil(t, manual.NextRunTime)
}

func TestLastErrorOnlyWhenLatestFailed(t *testing.T) {
	s, execs, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(&fakeJob{id: "rss_ingest", name: "RSS Ingest"}))

	execs.recent = map[string][]models.JobExecution{
		"RSS Ingest": {
			{ID: 2, JobName: "RSS Ingest", Status: models.ExecutionSuccess},
			{ID: 1, JobName: "RSS Ingest", Status: models.ExecutionFailed, ErrorMessage: "old failure"},
		},
	}

	statuses, err := s.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, statuses[0].LastError, "older failures are not surfaced once a run succeeds")
}

func TestLastFireBefore(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)

	ok, at := lastFireBefore(interfaces.Trigger{Cron: "5 * * * *"}, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 24, 10, 5, 0, 0, time.UTC), at)

	ok, at = lastFireBefore(interfaces.Trigger{Every: time.Hour}, now)
	require.True(t, ok)
	assert.Equal(t, now.Add(-time.Hour), at)

	ok, _ = lastFireBefore(interfaces.Trigger{Cron: "not a cron"}, now)
	assert.False(t, ok)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
