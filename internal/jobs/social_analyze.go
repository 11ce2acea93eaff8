// -----------------------------------------------------------------------
// Social Sentiment Analysis Job - LLM verdicts for closed sentiment windows
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

const analyzeSessionBatch = 20

type SocialAnalyzeJob struct {
	meta
	social   interfaces.SocialStorage
	analyzer *analyzer.Analyzer
	logger   arbor.ILogger
}

func NewSocialAnalyzeJob(social interfaces.SocialStorage, an *analyzer.Analyzer, logger arbor.ILogger) *SocialAnalyzeJob {
	return &SocialAnalyzeJob{
		meta: meta{
			id:      "social_analyze",
			name:    "Social Sentiment Analysis",
			trigger: interfaces.Trigger{Every: time.Hour},
			class:   interfaces.JobClassCalculation,
		},
		social:   social,
		analyzer: an,
		logger:   logger,
	}
}

var _ interfaces.Job = (*SocialAnalyzeJob)(nil)

func (j *SocialAnalyzeJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("social_analyze")

	sessions, err := j.social.SessionsNeedingAnalysis(ctx, analyzeSessionBatch)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	tally := counters{}
	for i := range sessions {
		if ctx.Err() != nil {
			break
		}
		j.analyzeOne(ctx, &sessions[i], tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *SocialAnalyzeJob) analyzeOne(ctx context.Context, session *models.SentimentSession, tally counters, log arbor.ILogger) {
	posts, err := j.social.PostsForSession(ctx, session.ID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to load session posts")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	sentiment, summary, err := j.analyzer.AnalyzeCrowdSentiment(ctx, session.Ticker, posts)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Sentiment analysis failed, continuing")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	session.SentimentLabel = sentiment
	session.SentimentScore = sentiment.Score()
	session.AISummary = summary
	session.PostCount = len(posts)
	if err := j.social.UpdateSessionAnalysis(ctx, session); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to store session verdict")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	tally.add(pipeline.OutcomeSaved)
}
