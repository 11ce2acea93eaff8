// -----------------------------------------------------------------------
// Social Retention Job - enforces the tiered retention policy
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// Retention tiers: raw payloads go first, then metric rows, then the
// analysis history.
const (
	rawPostRetention  = 14 * 24 * time.Hour
	metricRetention   = 60 * 24 * time.Hour
	analysisRetention = 90 * 24 * time.Hour
)

type SocialRetentionJob struct {
	meta
	social interfaces.SocialStorage
	logger arbor.ILogger
}

func NewSocialRetentionJob(social interfaces.SocialStorage, logger arbor.ILogger) *SocialRetentionJob {
	return &SocialRetentionJob{
		meta: meta{
			id:      "social_retention",
			name:    "Social Retention",
			trigger: interfaces.Trigger{Cron: "30 2 * * *"},
			class:   interfaces.JobClassMaintenance,
		},
		social: social,
		logger: logger,
	}
}

var _ interfaces.Job = (*SocialRetentionJob)(nil)

func (j *SocialRetentionJob) Run(ctx context.Context, _ map[string]any) error {
	log := j.logger.WithPrefix("social_retention")
	now := time.Now()

	cleared, err := j.social.ClearRawPostsBefore(ctx, now.Add(-rawPostRetention))
	if err != nil {
		return err
	}
	metrics, err := j.social.DeleteMetricsBefore(ctx, now.Add(-metricRetention))
	if err != nil {
		return err
	}
	sessions, err := j.social.DeleteSessionsBefore(ctx, now.Add(-analysisRetention))
	if err != nil {
		return err
	}

	log.Info().
		Int64("raw_cleared", cleared).
		Int64("metrics_deleted", metrics).
		Int64("sessions_deleted", sessions).
		Msg("Retention sweep complete")
	return nil
}
