// -----------------------------------------------------------------------
// Ticker Research Job - news sweep across production-fund holdings
// ETFs are researched by resolved sector; regular tickers by name search.
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

const (
	// etfBaselineRelevance is the lower base for sector-derived searches:
	// a sector hit is weaker evidence than a direct ticker hit.
	etfBaselineRelevance = 0.7

	// Pacing between outbound calls keeps the search service happy.
	tickerSearchPause = 3 * time.Second
	articleFetchPause = time.Second
	resultsPerTicker  = 5
)

type TickerResearchJob struct {
	meta
	funds      interfaces.FundStorage
	securities interfaces.SecurityStorage
	search     interfaces.SearchService
	pipeline   *pipeline.Pipeline
	jobBudget  time.Duration
	logger     arbor.ILogger
}

func NewTickerResearchJob(
	funds interfaces.FundStorage,
	securities interfaces.SecurityStorage,
	search interfaces.SearchService,
	pl *pipeline.Pipeline,
	jobBudget time.Duration,
	logger arbor.ILogger,
) *TickerResearchJob {
	if jobBudget <= 0 {
		jobBudget = 50 * time.Minute
	}
	return &TickerResearchJob{
		meta: meta{
			id:      "ticker_research",
			name:    "Ticker Research",
			trigger: interfaces.Trigger{Cron: "20 6,12,18 * * *"},
			class:   interfaces.JobClassIngest,
		},
		funds:      funds,
		securities: securities,
		search:     search,
		pipeline:   pl,
		jobBudget:  jobBudget,
		logger:     logger,
	}
}

var _ interfaces.Job = (*TickerResearchJob)(nil)

func (j *TickerResearchJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("ticker_research")

	ctx, cancel := context.WithTimeout(ctx, j.jobBudget)
	defer cancel()

	positions, err := j.funds.ActivePositions(ctx)
	if err != nil {
		return err
	}

	etfs, regular := partitionETFs(positions)
	log.Info().Int("etfs", len(etfs)).Int("tickers", len(regular)).Msg("Researching production holdings")

	tally := counters{}
	j.researchETFs(ctx, etfs, tally, log)
	j.researchTickers(ctx, regular, tally, log)

	logSummary(log, j.name, tally, started)
	return nil
}

// partitionETFs splits holdings on the "ETF" marker in ticker or company.
func partitionETFs(positions []models.Position) (etfs, regular []models.Position) {
	for _, p := range positions {
		if strings.Contains(strings.ToUpper(p.Ticker), "ETF") ||
			strings.Contains(strings.ToUpper(p.Company), "ETF") {
			etfs = append(etfs, p)
		} else {
			regular = append(regular, p)
		}
	}
	return etfs, regular
}

// researchETFs resolves each ETF's sector and searches sector news with a
// lower baseline relevance.
func (j *TickerResearchJob) researchETFs(ctx context.Context, etfs []models.Position, tally counters, log arbor.ILogger) {
	if len(etfs) == 0 {
		return
	}

	tickers := make([]string, 0, len(etfs))
	for _, p := range etfs {
		tickers = append(tickers, p.Ticker)
	}
	secs, err := j.securities.GetByTickers(ctx, tickers)
	if err != nil {
		log.Warn().Err(err).Msg("Sector resolution failed, skipping ETF research")
		return
	}

	seenSectors := map[string]bool{}
	for _, p := range etfs {
		if ctx.Err() != nil {
			return
		}
		sector := secs[p.Ticker].Sector
		if sector == "" || seenSectors[sector] {
			continue
		}
		seenSectors[sector] = true

		query := fmt.Sprintf("%s sector stock market news", sector)
		j.searchAndProcess(ctx, query, models.ArticleTypeEtfChange, etfBaselineRelevance, tally, log)
		pause(ctx, tickerSearchPause)
	}
}

func (j *TickerResearchJob) researchTickers(ctx context.Context, positions []models.Position, tally counters, log arbor.ILogger) {
	for _, p := range positions {
		if ctx.Err() != nil {
			return
		}

		query := fmt.Sprintf("%s %s stock news", p.Ticker, p.Company)
		j.searchAndProcess(ctx, query, models.ArticleTypeTickerNews, 0, tally, log)
		pause(ctx, tickerSearchPause)
	}
}

func (j *TickerResearchJob) searchAndProcess(ctx context.Context, query string, articleType models.ArticleType, baseline float64, tally counters, log arbor.ILogger) {
	results, err := j.search.Search(ctx, query, resultsPerTicker)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Search failed, continuing")
		return
	}

	for _, r := range results {
		if ctx.Err() != nil {
			return
		}
		res := j.pipeline.Process(ctx, pipeline.Input{
			URL:               r.URL,
			Title:             r.Title,
			Source:            r.Source,
			Type:              articleType,
			BaselineRelevance: baseline,
		})
		tally.add(res.Outcome)
		pause(ctx, articleFetchPause)
	}
}

// pause sleeps unless the context ends first.
func pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
