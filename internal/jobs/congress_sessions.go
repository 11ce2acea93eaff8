// -----------------------------------------------------------------------
// Congress Sessions Rescore Job - manual, bounded session-level analysis
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

const (
	defaultSessionBatch = 10
	defaultSessionLimit = 100
)

type CongressSessionsJob struct {
	meta
	congress interfaces.CongressStorage
	analyzer *analyzer.Analyzer
	logger   arbor.ILogger
}

func NewCongressSessionsJob(congress interfaces.CongressStorage, an *analyzer.Analyzer, logger arbor.ILogger) *CongressSessionsJob {
	return &CongressSessionsJob{
		meta: meta{
			id:      "congress_sessions",
			name:    "Congress Sessions Rescore",
			trigger: interfaces.Trigger{},
			class:   interfaces.JobClassCalculation,
		},
		congress: congress,
		analyzer: an,
		logger:   logger,
	}
}

var _ interfaces.Job = (*CongressSessionsJob)(nil)

func (j *CongressSessionsJob) Run(ctx context.Context, params map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("congress_sessions")

	batchSize := intParam(params, "batch_size", defaultSessionBatch)
	limit := intParam(params, "limit", defaultSessionLimit)

	analyzed, failed := 0, 0
	for analyzed+failed < limit {
		if ctx.Err() != nil {
			break
		}

		remaining := limit - analyzed - failed
		if remaining > batchSize {
			remaining = batchSize
		}
		sessions, err := j.congress.SessionsNeedingAnalysis(ctx, remaining)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			break
		}

		for i := range sessions {
			if ctx.Err() != nil {
				break
			}
			if err := j.analyzer.AnalyzeSession(ctx, &sessions[i]); err != nil {
				log.Warn().Err(err).Str("session_id", sessions[i].ID).Msg("Session analysis failed, continuing")
				failed++
				continue
			}
			analyzed++
		}
	}

	log.Info().
		Int("analyzed", analyzed).
		Int("failed", failed).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Session rescore complete")
	return nil
}
