// -----------------------------------------------------------------------
// Market News Job - hourly broad-market news sweep
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// marketQueries rotate by hour so repeated runs cover different angles of
// the market instead of hammering one query.
var marketQueries = []string{
	"stock market news today",
	"earnings report announcement",
	"federal reserve interest rates",
	"merger acquisition announcement",
	"sector rotation market outlook",
	"analyst upgrade downgrade",
	"IPO market debut",
	"stock buyback dividend announcement",
}

// negativeKeywords filter out astrology-grade noise the search service
// otherwise returns for "market" queries.
const negativeKeywords = " -astrology -horoscope -zodiac -lottery"

type MarketNewsJob struct {
	meta
	search     interfaces.SearchService
	pipeline   *pipeline.Pipeline
	maxResults int
	jobBudget  time.Duration
	logger     arbor.ILogger
}

func NewMarketNewsJob(search interfaces.SearchService, pl *pipeline.Pipeline, maxResults int, jobBudget time.Duration, logger arbor.ILogger) *MarketNewsJob {
	if maxResults <= 0 {
		maxResults = 20
	}
	if jobBudget <= 0 {
		jobBudget = 50 * time.Minute
	}
	return &MarketNewsJob{
		meta: meta{
			id:      "market_news",
			name:    "Market News",
			trigger: interfaces.Trigger{Cron: "5 * * * *"},
			class:   interfaces.JobClassIngest,
		},
		search:     search,
		pipeline:   pl,
		maxResults: maxResults,
		jobBudget:  jobBudget,
		logger:     logger,
	}
}

var _ interfaces.Job = (*MarketNewsJob)(nil)

func (j *MarketNewsJob) Run(ctx context.Context, params map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("market_news")

	query := stringParam(params, "query")
	if query == "" {
		query = marketQueries[time.Now().UTC().Hour()%len(marketQueries)]
	}
	query += negativeKeywords

	ctx, cancel := context.WithTimeout(ctx, j.jobBudget)
	defer cancel()

	results, err := j.search.Search(ctx, query, j.maxResults)
	if err != nil {
		return err
	}
	log.Info().Str("query", query).Int("results", len(results)).Msg("Search returned candidates")

	tally := counters{}
	for _, r := range results {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(results)-tally.total()).Msg("Job budget exhausted, skipping remaining articles")
			break
		}

		res := j.pipeline.Process(ctx, pipeline.Input{
			URL:    r.URL,
			Title:  r.Title,
			Source: r.Source,
			Type:   models.ArticleTypeMarketNews,
		})
		tally.add(res.Outcome)
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("url", r.URL).Msg("Article failed")
		}
	}

	logSummary(log, j.name, tally, started)
	return nil
}
