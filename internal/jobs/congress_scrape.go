// -----------------------------------------------------------------------
// Congress Scrape Job - manual historical backfill of disclosures
// Runs in-process; progress is logged per page so operators can follow
// long sweeps through the job log.
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

const (
	defaultScrapeMonthsBack = 6
	defaultScrapePageSize   = 100
	defaultScrapeMaxPages   = 20

	// maxScrapePageSize is the provider's hard cap; larger requests are
	// silently truncated which breaks page accounting.
	maxScrapePageSize = 100
)

type CongressScrapeJob struct {
	meta
	api         interfaces.CongressAPIService
	congress    interfaces.CongressStorage
	politicians interfaces.PoliticianStorage
	logger      arbor.ILogger
}

func NewCongressScrapeJob(
	api interfaces.CongressAPIService,
	congress interfaces.CongressStorage,
	politicians interfaces.PoliticianStorage,
	logger arbor.ILogger,
) *CongressScrapeJob {
	return &CongressScrapeJob{
		meta: meta{
			id:      "congress_scrape",
			name:    "Congress Scrape",
			trigger: interfaces.Trigger{},
			class:   interfaces.JobClassIngest,
		},
		api:         api,
		congress:    congress,
		politicians: politicians,
		logger:      logger,
	}
}

var _ interfaces.Job = (*CongressScrapeJob)(nil)

func (j *CongressScrapeJob) Run(ctx context.Context, params map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("congress_scrape")

	monthsBack := intParam(params, "months_back", defaultScrapeMonthsBack)
	pageSize := intParam(params, "page_size", defaultScrapePageSize)
	if pageSize > maxScrapePageSize {
		pageSize = maxScrapePageSize
	}
	maxPages := intParam(params, "max_pages", defaultScrapeMaxPages)
	startPage := intParam(params, "start_page", 0)
	skipRecent := boolParam(params, "skip_recent", false)

	cutoff := time.Now().AddDate(0, -monthsBack, 0)
	log.Info().
		Int("months_back", monthsBack).
		Int("page_size", pageSize).
		Int("max_pages", maxPages).
		Int("start_page", startPage).
		Bool("skip_recent", skipRecent).
		Msg("Starting historical scrape")

	tally := counters{}
	for _, chamber := range []models.Chamber{models.ChamberHouse, models.ChamberSenate} {
		if ctx.Err() != nil {
			break
		}
		j.scrapeChamber(ctx, chamber, cutoff, pageSize, maxPages, startPage, skipRecent, tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *CongressScrapeJob) scrapeChamber(
	ctx context.Context,
	chamber models.Chamber,
	cutoff time.Time,
	pageSize, maxPages, startPage int,
	skipRecent bool,
	tally counters,
	log arbor.ILogger,
) {
	for page := startPage; page < startPage+maxPages; page++ {
		if ctx.Err() != nil {
			return
		}

		disclosed, err := j.api.HistoricalTrades(ctx, chamber, page, pageSize)
		if err != nil {
			log.Warn().Err(err).Str("chamber", string(chamber)).Int("page", page).Msg("Page fetch failed, stopping chamber")
			return
		}
		if len(disclosed) == 0 {
			log.Info().Str("chamber", string(chamber)).Int("page", page).Msg("No more disclosures")
			return
		}

		pastCutoff := 0
		for i := range disclosed {
			if ctx.Err() != nil {
				return
			}

			trade, err := buildTrade(ctx, j.politicians, &disclosed[i])
			if err != nil {
				tally.add(pipeline.OutcomeFailed)
				continue
			}
			if trade.TransactionDate.Before(cutoff) {
				pastCutoff++
				continue
			}
			if skipRecent && time.Since(trade.TransactionDate) <= maxTradeAge {
				// The recent-feed fetch job owns this window.
				tally.add(pipeline.OutcomeDuplicate)
				continue
			}

			_, created, err := j.congress.UpsertTrade(ctx, trade)
			if err != nil {
				log.Warn().Err(err).Str("ticker", trade.Ticker).Msg("Trade upsert failed")
				tally.add(pipeline.OutcomeFailed)
				continue
			}
			if created {
				tally.add(pipeline.OutcomeSaved)
			} else {
				tally.add(pipeline.OutcomeDuplicate)
			}
		}

		log.Info().
			Str("chamber", string(chamber)).
			Int("page", page).
			Int("rows", len(disclosed)).
			Str("progress", tally.String()).
			Msg("Scrape page complete")

		// A full page past the cutoff means everything deeper is older still.
		if pastCutoff == len(disclosed) {
			log.Info().Str("chamber", string(chamber)).Int("page", page).Msg("Reached cutoff date")
			return
		}
	}
}
