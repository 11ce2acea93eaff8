// -----------------------------------------------------------------------
// Congress Analysis Job - batch conflict scoring for disclosed trades
// Normal mode sweeps unanalyzed trades; rescore mode walks the whole table
// with cursor pagination.
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
	defaultAnalysisBatch = 25
	defaultRescoreMax    = 500
)

type CongressAnalysisJob struct {
	meta
	analyzer *analyzer.Analyzer
	logger   arbor.ILogger
}

func NewCongressAnalysisJob(an *analyzer.Analyzer, logger arbor.ILogger) *CongressAnalysisJob {
	return &CongressAnalysisJob{
		meta: meta{
			id:      "congress_analysis",
			name:    "Congress Analysis",
			trigger: interfaces.Trigger{Cron: "10 */2 * * *"},
			class:   interfaces.JobClassCalculation,
		},
		analyzer: an,
		logger:   logger,
	}
}

var _ interfaces.Job = (*CongressAnalysisJob)(nil)

func (j *CongressAnalysisJob) Run(ctx context.Context, params map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("congress_analysis")

	batchSize := intParam(params, "batch_size", defaultAnalysisBatch)

	var analyzed int
	var err error
	if boolParam(params, "rescore", false) {
		maxTrades := intParam(params, "limit", defaultRescoreMax)
		log.Info().Int("batch_size", batchSize).Int("limit", maxTrades).Msg("Rescoring all trades")
		analyzed, err = j.analyzer.Rescore(ctx, batchSize, maxTrades)
	} else {
		analyzed, err = j.analyzer.AnalyzeNewTrades(ctx, batchSize)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("analyzed", analyzed).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Congress analysis complete")
	return nil
}
