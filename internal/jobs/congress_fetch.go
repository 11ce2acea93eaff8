// -----------------------------------------------------------------------
// Congress Trades Fetch Job - recent House/Senate disclosures
// New trades get an inline conflict analysis before the batch job sees them.
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// maxTradeAge drops stale disclosures: the recent feed occasionally
// re-surfaces old rows and those are handled by backfill scrapes instead.
const maxTradeAge = 7 * 24 * time.Hour

// tradeDateLayouts covers every date format observed from the provider.
var tradeDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

type CongressFetchJob struct {
	meta
	api         interfaces.CongressAPIService
	congress    interfaces.CongressStorage
	politicians interfaces.PoliticianStorage
	analyzer    *analyzer.Analyzer
	logger      arbor.ILogger
}

func NewCongressFetchJob(
	api interfaces.CongressAPIService,
	congress interfaces.CongressStorage,
	politicians interfaces.PoliticianStorage,
	an *analyzer.Analyzer,
	logger arbor.ILogger,
) *CongressFetchJob {
	return &CongressFetchJob{
		meta: meta{
			id:      "congress_fetch",
			name:    "Congress Trades Fetch",
			trigger: interfaces.Trigger{Cron: "40 */4 * * *"},
			class:   interfaces.JobClassIngest,
		},
		api:         api,
		congress:    congress,
		politicians: politicians,
		analyzer:    an,
		logger:      logger,
	}
}

var _ interfaces.Job = (*CongressFetchJob)(nil)

func (j *CongressFetchJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("congress_fetch")

	tally := counters{}
	for _, chamber := range []models.Chamber{models.ChamberHouse, models.ChamberSenate} {
		if ctx.Err() != nil {
			break
		}

		disclosed, err := j.api.RecentTrades(ctx, chamber)
		if err != nil {
			log.Warn().Err(err).Str("chamber", string(chamber)).Msg("Disclosure fetch failed, continuing")
			tally.add(pipeline.OutcomeFailed)
			continue
		}

		for i := range disclosed {
			if ctx.Err() != nil {
				break
			}
			j.ingestOne(ctx, &disclosed[i], tally, log)
		}
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *CongressFetchJob) ingestOne(ctx context.Context, d *models.DisclosedTrade, tally counters, log arbor.ILogger) {
	trade, err := buildTrade(ctx, j.politicians, d)
	if err != nil {
		log.Debug().Err(err).Str("politician", d.Representative).Str("ticker", d.Ticker).Msg("Skipping disclosure")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	if time.Since(trade.TransactionDate) > maxTradeAge {
		// Too old for the recent feed path; backfill scrapes cover it.
		tally.add(pipeline.OutcomeDuplicate)
		return
	}

	id, created, err := j.congress.UpsertTrade(ctx, trade)
	if err != nil {
		log.Warn().Err(err).Str("ticker", trade.Ticker).Msg("Trade upsert failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	trade.ID = id
	if !created {
		tally.add(pipeline.OutcomeDuplicate)
		return
	}

	// Inline analysis keeps the dashboard current between batch runs. A
	// failure here is not fatal: the analysis job sweeps null scores.
	analysis, err := j.analyzer.AnalyzeSingle(ctx, trade, analyzer.TemperatureInline)
	if err != nil {
		log.Warn().Err(err).Int64("trade_id", id).Msg("Inline analysis failed, deferring to batch job")
		tally.add(pipeline.OutcomeSaved)
		return
	}
	if err := j.congress.SaveAnalysis(ctx, analysis); err != nil {
		log.Warn().Err(err).Int64("trade_id", id).Msg("Failed to save inline analysis")
	}
	tally.add(pipeline.OutcomeSaved)
}

// buildTrade converts a raw API row into a trade, resolving the politician's
// canonical identity. Shared by the recent-feed fetch and backfill scrape.
func buildTrade(ctx context.Context, politicians interfaces.PoliticianStorage, d *models.DisclosedTrade) (*models.CongressTrade, error) {
	if d.Ticker == "" || d.Representative == "" {
		return nil, fmt.Errorf("disclosure missing ticker or representative")
	}

	txDate, err := parseTradeDate(d.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("bad transaction date %q: %w", d.TransactionDate, err)
	}

	discDate, err := parseTradeDate(d.DisclosureDate)
	if err != nil {
		discDate = txDate
	}

	trade := &models.CongressTrade{
		PoliticianName:  d.Representative,
		Ticker:          strings.ToUpper(strings.TrimSpace(d.Ticker)),
		Company:         d.Company,
		Chamber:         d.Chamber,
		Party:           d.Party,
		State:           d.State,
		Owner:           normalizeOwner(d.Owner),
		TransactionDate: txDate,
		DisclosureDate:  discDate,
		Type:            normalizeTradeType(d.Type),
		Amount:          d.Amount,
		Price:           d.Price,
		AssetType:       normalizeAssetType(d.AssetType),
		Notes:           d.Notes,
	}

	pol, err := politicians.FindByName(ctx, d.Representative)
	if err != nil {
		return nil, fmt.Errorf("politician lookup failed: %w", err)
	}
	if pol != nil {
		trade.PoliticianID = pol.ID
		trade.PoliticianName = pol.CanonicalName
		if trade.Party == "" {
			trade.Party = pol.Party
		}
		if trade.State == "" {
			trade.State = pol.State
		}
	}

	return trade, nil
}

func parseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// normalizeTradeType maps only recognizably directional disclosures onto
// Purchase/Sale; anything else (exchanges, options exercises, "received")
// becomes Exchange so the analyzer auto-filters it instead of treating it
// as a sale.
func normalizeTradeType(s string) models.TradeType {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "purchase"), strings.Contains(lower, "buy"):
		return models.TradePurchase
	case strings.Contains(lower, "sale"), strings.Contains(lower, "sell"):
		return models.TradeSale
	default:
		return models.TradeExchange
	}
}

func normalizeOwner(s string) models.TradeOwner {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self":
		return models.OwnerSelf
	case "spouse":
		return models.OwnerSpouse
	case "dependent", "child":
		return models.OwnerDependent
	default:
		return models.OwnerUnknown
	}
}

func normalizeAssetType(s string) models.AssetType {
	if strings.Contains(strings.ToLower(s), "crypto") {
		return models.AssetCrypto
	}
	return models.AssetStock
}
