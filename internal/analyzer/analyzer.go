// -----------------------------------------------------------------------
// AI Analyzer - conflict and intent analysis over congressional trades,
// plus crowd-sentiment classification for social posts.
// Every call forces JSON-only output and parses defensively.
// -----------------------------------------------------------------------

package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/clients/llm"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

const (
	// AnalysisVersion is bumped whenever prompts change materially, so old
	// verdicts can be re-scored without clobbering history.
	AnalysisVersion = "v2"

	// defaultConfidence is assumed when the model omits confidence_score.
	defaultConfidence = 0.75

	// TemperatureClassify is used for batch analysis; TemperatureInline for
	// the fetch job's inline scoring.
	TemperatureClassify = 0.1
	TemperatureInline   = 0.3

	jsonRetries   = 2
	jsonRetryWait = time.Second
)

type Analyzer struct {
	llm         interfaces.LLMService
	congress    interfaces.CongressStorage
	politicians interfaces.PoliticianStorage
	securities  interfaces.SecurityStorage
	model       string
	logger      arbor.ILogger
}

func New(
	llmService interfaces.LLMService,
	congress interfaces.CongressStorage,
	politicians interfaces.PoliticianStorage,
	securities interfaces.SecurityStorage,
	model string,
	logger arbor.ILogger,
) *Analyzer {
	return &Analyzer{
		llm:         llmService,
		congress:    congress,
		politicians: politicians,
		securities:  securities,
		model:       model,
		logger:      logger,
	}
}

// completeJSON runs a completion and decodes the first JSON object in the
// output into v, retrying decode failures with a fresh completion.
func (a *Analyzer) completeJSON(ctx context.Context, prompt string, temperature float64, v any) error {
	var lastErr error
	for attempt := 0; attempt <= jsonRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jsonRetryWait):
			}
		}

		raw, err := a.llm.Complete(ctx, prompt, jsonOnlySystem, true, temperature)
		if err != nil {
			lastErr = err
			continue
		}
		if err := llm.ExtractJSON(raw, v); err != nil {
			a.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("JSON decode failed, retrying completion")
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("analysis failed after %d attempts: %w", jsonRetries+1, lastErr)
}

// batchContext is per-batch scratch space. Caches must not outlive a batch:
// committee seats and security rows change between runs.
type batchContext struct {
	securities  map[string]models.Security
	politicians map[string]*models.Politician
	committees  map[int64][]models.Committee
}

// newBatchContext prefetches securities for the batch's unique tickers.
func (a *Analyzer) newBatchContext(ctx context.Context, trades []models.CongressTrade) *batchContext {
	bc := &batchContext{
		politicians: make(map[string]*models.Politician),
		committees:  make(map[int64][]models.Committee),
	}

	seen := make(map[string]bool)
	var tickers []string
	for _, t := range trades {
		if t.Ticker != "" && !seen[t.Ticker] {
			seen[t.Ticker] = true
			tickers = append(tickers, t.Ticker)
		}
	}

	secs, err := a.securities.GetByTickers(ctx, tickers)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Securities prefetch failed, continuing without sector data")
		secs = map[string]models.Security{}
	}
	bc.securities = secs
	return bc
}

// politicianContext resolves a politician and their committees, memoized for
// the life of the batch.
func (bc *batchContext) politicianContext(ctx context.Context, a *Analyzer, name string) (*models.Politician, []models.Committee) {
	if p, ok := bc.politicians[name]; ok {
		if p == nil {
			return nil, nil
		}
		return p, bc.committees[p.ID]
	}

	p, err := a.politicians.FindByName(ctx, name)
	if err != nil {
		a.logger.Warn().Err(err).Str("politician", name).Msg("Politician lookup failed")
		p = nil
	}
	bc.politicians[name] = p
	if p == nil {
		return nil, nil
	}

	committees, err := a.politicians.Committees(ctx, p.ID)
	if err != nil {
		a.logger.Warn().Err(err).Str("politician", name).Msg("Committee lookup failed")
	}
	bc.committees[p.ID] = committees
	return p, committees
}

type tradeVerdict struct {
	ConflictScore   float64  `json:"conflict_score"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Reasoning       string   `json:"reasoning"`
}

// AnalyzeSingle scores one trade outside of a batch. Used by the fetch job
// for inline analysis of freshly disclosed trades.
func (a *Analyzer) AnalyzeSingle(ctx context.Context, trade *models.CongressTrade, temperature float64) (*models.TradeAnalysis, error) {
	bc := a.newBatchContext(ctx, []models.CongressTrade{*trade})
	return a.analyzeTrade(ctx, trade, bc, temperature)
}

// analyzeTrade scores one trade, bypassing the LLM for low-risk instruments.
func (a *Analyzer) analyzeTrade(ctx context.Context, trade *models.CongressTrade, bc *batchContext, temperature float64) (*models.TradeAnalysis, error) {
	if reason := LowRiskReason(trade); reason != "" {
		return lowRiskAnalysis(trade, a.model, AnalysisVersion, reason), nil
	}

	if trade.Sector == "" {
		if sec, ok := bc.securities[trade.Ticker]; ok {
			trade.Sector = sec.Sector
		}
	}

	politician, committees := bc.politicianContext(ctx, a, trade.PoliticianName)

	var verdict tradeVerdict
	if err := a.completeJSON(ctx, buildTradePrompt(trade, politician, committees), temperature, &verdict); err != nil {
		return nil, err
	}

	analysis := &models.TradeAnalysis{
		TradeID:         trade.ID,
		ModelUsed:       a.model,
		AnalysisVersion: AnalysisVersion,
		ConflictScore:   clamp01(verdict.ConflictScore),
		RiskPattern:     patternFromScore(clamp01(verdict.ConflictScore), trade.Type),
		Reasoning:       verdict.Reasoning,
	}
	if verdict.ConfidenceScore != nil {
		analysis.ConfidenceScore = clamp01(*verdict.ConfidenceScore)
	} else {
		analysis.ConfidenceScore = defaultConfidence
		analysis.Reasoning += " (confidence defaulted)"
	}
	return analysis, nil
}

// AnalyzeNewTrades scores every trade with a null conflict score.
func (a *Analyzer) AnalyzeNewTrades(ctx context.Context, limit int) (int, error) {
	trades, err := a.congress.TradesNeedingAnalysis(ctx, limit)
	if err != nil {
		return 0, err
	}
	return a.analyzeBatch(ctx, trades)
}

// Rescore iterates every trade using cursor pagination, re-running analysis
// in batches. Stops after maxTrades (0 = unbounded).
func (a *Analyzer) Rescore(ctx context.Context, batchSize, maxTrades int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	var (
		cursor    *interfaces.TradeCursor
		processed int
	)
	for {
		if maxTrades > 0 && processed >= maxTrades {
			return processed, nil
		}

		// Fetch double the batch and filter client-side so pagination stays
		// deterministic even when the store cannot compare tuples.
		page, err := a.congress.TradesAfterCursor(ctx, cursor, batchSize*2)
		if err != nil {
			return processed, err
		}
		page = filterAfterCursor(page, cursor)
		if len(page) == 0 {
			return processed, nil
		}
		if len(page) > batchSize {
			page = page[:batchSize]
		}

		n, err := a.analyzeBatch(ctx, page)
		processed += n
		if err != nil {
			return processed, err
		}

		last := page[len(page)-1]
		cursor = &interfaces.TradeCursor{TransactionDate: last.TransactionDate, ID: last.ID}
	}
}

func (a *Analyzer) analyzeBatch(ctx context.Context, trades []models.CongressTrade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	bc := a.newBatchContext(ctx, trades)
	analyzed := 0
	for i := range trades {
		if ctx.Err() != nil {
			return analyzed, ctx.Err()
		}

		analysis, err := a.analyzeTrade(ctx, &trades[i], bc, TemperatureClassify)
		if err != nil {
			a.logger.Warn().Err(err).Int64("trade_id", trades[i].ID).Msg("Trade analysis failed, continuing")
			continue
		}
		if err := a.congress.SaveAnalysis(ctx, analysis); err != nil {
			a.logger.Warn().Err(err).Int64("trade_id", trades[i].ID).Msg("Failed to persist trade analysis")
			continue
		}
		analyzed++
	}
	return analyzed, nil
}

type sessionVerdict struct {
	ConflictScore   float64            `json:"conflict_score"`
	ConfidenceScore *float64           `json:"confidence_score"`
	RiskPattern     models.RiskPattern `json:"risk_pattern"`
	Summary         string             `json:"summary"`
}

// AnalyzeSession classifies the intent of one trade session.
func (a *Analyzer) AnalyzeSession(ctx context.Context, session *models.TradeSession) error {
	trades, err := a.congress.TradesForSession(ctx, session.ID)
	if err != nil {
		return err
	}

	bc := a.newBatchContext(ctx, trades)
	politician, committees := bc.politicianContext(ctx, a, session.PoliticianName)

	var verdict sessionVerdict
	if err := a.completeJSON(ctx, buildSessionPrompt(session, trades, politician, committees), TemperatureClassify, &verdict); err != nil {
		return err
	}

	if !validRiskPattern(verdict.RiskPattern) {
		return fmt.Errorf("model returned unknown risk pattern %q", verdict.RiskPattern)
	}

	session.ConflictScore = clamp01(verdict.ConflictScore)
	session.RiskPattern = verdict.RiskPattern
	session.AISummary = verdict.Summary
	session.ModelUsed = a.model
	if verdict.ConfidenceScore != nil {
		session.ConfidenceScore = clamp01(*verdict.ConfidenceScore)
	} else {
		session.ConfidenceScore = defaultConfidence
		session.AISummary += " (confidence defaulted)"
	}
	return a.congress.UpdateSessionAnalysis(ctx, session)
}

type crowdVerdict struct {
	Sentiment models.CrowdSentiment `json:"sentiment"`
	Summary   string                `json:"summary"`
}

// AnalyzeCrowdSentiment classifies a batch of social posts about a ticker.
func (a *Analyzer) AnalyzeCrowdSentiment(ctx context.Context, ticker string, posts []models.SocialPost) (models.CrowdSentiment, string, error) {
	if len(posts) == 0 {
		return models.CrowdNeutral, "No posts in window.", nil
	}

	var verdict crowdVerdict
	if err := a.completeJSON(ctx, buildCrowdPrompt(ticker, posts), TemperatureClassify, &verdict); err != nil {
		return "", "", err
	}

	switch verdict.Sentiment {
	case models.CrowdEuphoric, models.CrowdBullish, models.CrowdNeutral, models.CrowdBearish, models.CrowdFearful:
		return verdict.Sentiment, verdict.Summary, nil
	default:
		return "", "", fmt.Errorf("model returned unknown sentiment %q", verdict.Sentiment)
	}
}

// filterAfterCursor drops rows at or before the cursor in the
// (transaction_date desc, id desc) ordering.
func filterAfterCursor(trades []models.CongressTrade, cursor *interfaces.TradeCursor) []models.CongressTrade {
	if cursor == nil {
		return trades
	}
	out := trades[:0]
	for _, t := range trades {
		if t.TransactionDate.Before(cursor.TransactionDate) ||
			(t.TransactionDate.Equal(cursor.TransactionDate) && t.ID < cursor.ID) {
			out = append(out, t)
		}
	}
	return out
}

// patternFromScore maps a single-trade score onto the closed risk enum.
func patternFromScore(score float64, tradeType models.TradeType) models.RiskPattern {
	switch {
	case score >= 0.8 && tradeType == models.TradePurchase:
		return models.RiskConflictBuy
	case score >= 0.8:
		return models.RiskSuspiciousSell
	case score >= 0.4:
		return models.RiskRoutine
	default:
		return models.RiskNoRelationship
	}
}

func validRiskPattern(p models.RiskPattern) bool {
	switch p {
	case models.RiskConflictBuy, models.RiskSuspiciousSell, models.RiskAggressiveBet,
		models.RiskRoutineDivestment, models.RiskNoRelationship, models.RiskRoutine:
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
