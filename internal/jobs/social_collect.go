// -----------------------------------------------------------------------
// Social Sentiment Collect Job - per-ticker StockTwits and Reddit sweep
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// stocktwitsWindow bounds each collection to the last hour of stream
// activity so volume numbers are comparable across runs.
const stocktwitsWindow = time.Hour

type SocialCollectJob struct {
	meta
	funds      interfaces.FundStorage
	stocktwits interfaces.StockTwitsService
	reddit     interfaces.RedditService
	social     interfaces.SocialStorage
	analyzer   *analyzer.Analyzer
	logger     arbor.ILogger
}

func NewSocialCollectJob(
	funds interfaces.FundStorage,
	stocktwits interfaces.StockTwitsService,
	reddit interfaces.RedditService,
	social interfaces.SocialStorage,
	an *analyzer.Analyzer,
	logger arbor.ILogger,
) *SocialCollectJob {
	return &SocialCollectJob{
		meta: meta{
			id:      "social_collect",
			name:    "Social Sentiment Collect",
			trigger: interfaces.Trigger{Every: time.Hour},
			class:   interfaces.JobClassIngest,
		},
		funds:      funds,
		stocktwits: stocktwits,
		reddit:     reddit,
		social:     social,
		analyzer:   an,
		logger:     logger,
	}
}

var _ interfaces.Job = (*SocialCollectJob)(nil)

func (j *SocialCollectJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("social_collect")

	owned, err := j.funds.OwnedTickers(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("tickers", len(owned)).Msg("Collecting social sentiment for holdings")

	tally := counters{}
	for ticker := range owned {
		if ctx.Err() != nil {
			break
		}
		j.collectStockTwits(ctx, ticker, tally, log)
		j.collectReddit(ctx, ticker, tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *SocialCollectJob) collectStockTwits(ctx context.Context, ticker string, tally counters, log arbor.ILogger) {
	raw, err := j.stocktwits.RecentPosts(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("StockTwits fetch failed, continuing")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	cutoff := time.Now().Add(-stocktwitsWindow)
	posts := make([]models.SocialPost, 0, len(raw))
	bullish, bearish := 0, 0
	for _, p := range raw {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		switch p.Label {
		case "Bullish":
			bullish++
		case "Bearish":
			bearish++
		}
		posts = append(posts, models.SocialPost{
			Ticker:   ticker,
			Platform: models.PlatformStockTwits,
			Author:   p.Author,
			Body:     p.Body,
			Label:    p.Label,
			PostedAt: p.CreatedAt,
		})
	}

	// The ratio only counts posts the platform itself labeled; unlabeled
	// chatter says nothing about direction.
	var ratio *float64
	if bullish+bearish > 0 {
		r := float64(bullish) / float64(bullish+bearish)
		ratio = &r
	}

	j.saveMetric(ctx, ticker, models.PlatformStockTwits, posts, ratio, tally, log)
}

func (j *SocialCollectJob) collectReddit(ctx context.Context, ticker string, tally counters, log arbor.ILogger) {
	raw, err := j.reddit.SearchTicker(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("Reddit search failed, continuing")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	posts := make([]models.SocialPost, 0, len(raw))
	for _, p := range raw {
		body := p.Title
		if p.Body != "" {
			body = p.Title + "\n" + p.Body
		}
		posts = append(posts, models.SocialPost{
			Ticker:   ticker,
			Platform: models.PlatformReddit,
			Author:   p.Author,
			Body:     body,
			PostedAt: p.CreatedAt,
		})
	}

	j.saveMetric(ctx, ticker, models.PlatformReddit, posts, nil, tally, log)
}

func (j *SocialCollectJob) saveMetric(
	ctx context.Context,
	ticker string,
	platform models.SocialPlatform,
	posts []models.SocialPost,
	ratio *float64,
	tally counters,
	log arbor.ILogger,
) {
	sentiment, _, err := j.analyzer.AnalyzeCrowdSentiment(ctx, ticker, posts)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Str("platform", string(platform)).Msg("Crowd sentiment failed, recording neutral")
		sentiment = models.CrowdNeutral
	}

	rawPosts, err := json.Marshal(posts)
	if err != nil {
		tally.add(pipeline.OutcomeFailed)
		return
	}

	metric := &models.SocialMetric{
		Ticker:         ticker,
		Platform:       platform,
		Volume:         len(posts),
		BullBearRatio:  ratio,
		SentimentLabel: sentiment,
		SentimentScore: sentiment.Score(),
		RawPosts:       rawPosts,
	}
	if _, err := j.social.SaveMetric(ctx, metric); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Str("platform", string(platform)).Msg("Metric save failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	tally.add(pipeline.OutcomeSaved)
}
