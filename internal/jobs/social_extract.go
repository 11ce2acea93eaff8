// -----------------------------------------------------------------------
// Social Post Extraction Job - explodes raw metric payloads into post rows
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

const extractMetricBatch = 100

type SocialExtractJob struct {
	meta
	social interfaces.SocialStorage
	logger arbor.ILogger
}

func NewSocialExtractJob(social interfaces.SocialStorage, logger arbor.ILogger) *SocialExtractJob {
	return &SocialExtractJob{
		meta: meta{
			id:      "social_extract",
			name:    "Social Post Extraction",
			trigger: interfaces.Trigger{Every: 30 * time.Minute},
			class:   interfaces.JobClassCalculation,
		},
		social: social,
		logger: logger,
	}
}

var _ interfaces.Job = (*SocialExtractJob)(nil)

func (j *SocialExtractJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("social_extract")

	metrics, err := j.social.MetricsWithRawPosts(ctx, extractMetricBatch)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		return nil
	}

	tally := counters{}
	for i := range metrics {
		if ctx.Err() != nil {
			break
		}
		j.extractOne(ctx, &metrics[i], tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *SocialExtractJob) extractOne(ctx context.Context, metric *models.SocialMetric, tally counters, log arbor.ILogger) {
	var posts []models.SocialPost
	if err := json.Unmarshal(metric.RawPosts, &posts); err != nil {
		log.Warn().Err(err).Int64("metric_id", metric.ID).Msg("Unparseable raw posts, marking extracted")
		// Mark anyway so a poison payload is not retried forever.
		if err := j.social.MarkPostsExtracted(ctx, metric.ID); err != nil {
			log.Warn().Err(err).Int64("metric_id", metric.ID).Msg("Failed to mark extraction")
		}
		tally.add(pipeline.OutcomeFailed)
		return
	}

	for i := range posts {
		posts[i].MetricID = metric.ID
		posts[i].Ticker = metric.Ticker
		posts[i].Platform = metric.Platform
	}

	if len(posts) > 0 {
		if err := j.social.InsertPosts(ctx, posts); err != nil {
			log.Warn().Err(err).Int64("metric_id", metric.ID).Msg("Post insert failed")
			tally.add(pipeline.OutcomeFailed)
			return
		}
	}
	if err := j.social.MarkPostsExtracted(ctx, metric.ID); err != nil {
		log.Warn().Err(err).Int64("metric_id", metric.ID).Msg("Failed to mark extraction")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	tally.add(pipeline.OutcomeSaved)
}
