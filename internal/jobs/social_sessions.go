// -----------------------------------------------------------------------
// Social Sessioning Job - groups posts into 4-hour sentiment windows
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

const (
	sessionWindow    = 4 * time.Hour
	sessionPostBatch = 500
)

type SocialSessionsJob struct {
	meta
	social interfaces.SocialStorage
	logger arbor.ILogger
}

func NewSocialSessionsJob(social interfaces.SocialStorage, logger arbor.ILogger) *SocialSessionsJob {
	return &SocialSessionsJob{
		meta: meta{
			id:      "social_sessions",
			name:    "Social Sessioning",
			trigger: interfaces.Trigger{Every: time.Hour},
			class:   interfaces.JobClassCalculation,
		},
		social: social,
		logger: logger,
	}
}

var _ interfaces.Job = (*SocialSessionsJob)(nil)

// sessionKey identifies one (ticker, platform, window) bucket.
type sessionKey struct {
	ticker   string
	platform models.SocialPlatform
	start    time.Time
}

// sessionID is deterministic so repeated runs extend the same session
// instead of fragmenting the window.
func (k sessionKey) sessionID() string {
	return fmt.Sprintf("%s-%s-%s", k.ticker, k.platform, k.start.UTC().Format("20060102T1504"))
}

func (j *SocialSessionsJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("social_sessions")

	posts, err := j.social.UnsessionedPosts(ctx, sessionPostBatch)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	buckets := map[sessionKey][]int64{}
	for _, p := range posts {
		key := sessionKey{
			ticker:   p.Ticker,
			platform: p.Platform,
			start:    p.PostedAt.UTC().Truncate(sessionWindow),
		}
		buckets[key] = append(buckets[key], p.ID)
	}
	log.Info().Int("posts", len(posts)).Int("sessions", len(buckets)).Msg("Grouping posts into sentiment windows")

	tally := counters{}
	for key, postIDs := range buckets {
		if ctx.Err() != nil {
			break
		}

		session := &models.SentimentSession{
			ID:          key.sessionID(),
			Ticker:      key.ticker,
			Platform:    key.platform,
			WindowStart: key.start,
			WindowEnd:   key.start.Add(sessionWindow),
			PostCount:   len(postIDs),
		}
		if err := j.social.SaveSession(ctx, session); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Session save failed")
			tally.add(pipeline.OutcomeFailed)
			continue
		}
		if err := j.social.AssignPostsToSession(ctx, session.ID, postIDs); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Post assignment failed")
			tally.add(pipeline.OutcomeFailed)
			continue
		}
		tally.add(pipeline.OutcomeSaved)
	}

	logSummary(log, j.name, tally, started)
	return nil
}
