package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// ---- fakes -------------------------------------------------------------

type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *scriptedLLM) Complete(context.Context, string, string, bool, float64) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (f *scriptedLLM) Summarize(context.Context, string) (*models.SummaryResult, error) {
	return nil, errors.New("not scripted")
}
func (f *scriptedLLM) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (f *scriptedLLM) Health(context.Context) bool                      { return true }

type fakeCongress struct {
	trades   []models.CongressTrade
	analyses []models.TradeAnalysis
}

func (f *fakeCongress) UpsertTrade(context.Context, *models.CongressTrade) (int64, bool, error) {
	return 0, false, nil
}
func (f *fakeCongress) TradesNeedingAnalysis(_ context.Context, limit int) ([]models.CongressTrade, error) {
	if len(f.trades) > limit {
		return f.trades[:limit], nil
	}
	return f.trades, nil
}
func (f *fakeCongress) TradesAfterCursor(_ context.Context, cursor *interfaces.TradeCursor, limit int) ([]models.CongressTrade, error) {
	out := filterAfterCursor(append([]models.CongressTrade(nil), f.trades...), cursor)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeCongress) SaveAnalysis(_ context.Context, a *models.TradeAnalysis) error {
	f.analyses = append(f.analyses, *a)
	return nil
}
func (f *fakeCongress) SessionsNeedingAnalysis(context.Context, int) ([]models.TradeSession, error) {
	return nil, nil
}
func (f *fakeCongress) TradesForSession(context.Context, string) ([]models.CongressTrade, error) {
	return nil, nil
}
func (f *fakeCongress) UpdateSessionAnalysis(context.Context, *models.TradeSession) error {
	return nil
}

type fakePoliticians struct {
	byName     map[string]*models.Politician
	committees map[int64][]models.Committee
	lookups    int
}

func (f *fakePoliticians) FindByName(_ context.Context, name string) (*models.Politician, error) {
	f.lookups++
	return f.byName[name], nil
}
func (f *fakePoliticians) Committees(_ context.Context, id int64) ([]models.Committee, error) {
	return f.committees[id], nil
}

type fakeSecurities struct {
	byTicker map[string]models.Security
}

func (f *fakeSecurities) GetByTickers(_ context.Context, tickers []string) (map[string]models.Security, error) {
	out := map[string]models.Security{}
	for _, t := range tickers {
		if s, ok := f.byTicker[t]; ok {
			out[t] = s
		}
	}
	return out, nil
}

func newTestAnalyzer(llm *scriptedLLM, congress *fakeCongress, politicians *fakePoliticians) *Analyzer {
	if politicians == nil {
		politicians = &fakePoliticians{byName: map[string]*models.Politician{}}
	}
	return New(llm, congress, politicians, &fakeSecurities{byTicker: map[string]models.Security{}},
		"analysis-model", common.GetLogger())
}

// ---- tests -------------------------------------------------------------

func TestLowRiskReason(t *testing.T) {
	tests := []struct {
		name  string
		trade models.CongressTrade
		want  string
	}{
		{"exchange", models.CongressTrade{Type: models.TradeExchange, Ticker: "NVDA"}, "non-investment transaction type"},
		{"known etf", models.CongressTrade{Type: models.TradePurchase, Ticker: "SPY"}, "Known ETF ticker: SPY"},
		{"fund by name", models.CongressTrade{Type: models.TradePurchase, Ticker: "VGT", Company: "Vanguard Information Technology"}, "pooled fund or index product"},
		{"bond sector", models.CongressTrade{Type: models.TradeSale, Ticker: "XYZ", Sector: "Municipal Bonds"}, "fixed-income instrument"},
		{"regular equity", models.CongressTrade{Type: models.TradePurchase, Ticker: "NVDA", Company: "NVIDIA Corp", Sector: "Technology"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LowRiskReason(&tt.trade))
		})
	}
}

func TestAnalyzeSingleLowRiskBypassesLLM(t *testing.T) {
	llm := &scriptedLLM{}
	a := newTestAnalyzer(llm, &fakeCongress{}, nil)

	trade := &models.CongressTrade{ID: 5, Type: models.TradePurchase, Ticker: "SPY", PoliticianName: "Jane Example"}
	analysis, err := a.AnalyzeSingle(context.Background(), trade, TemperatureInline)
	require.NoError(t, err)

	assert.Zero(t, llm.calls)
	assert.Equal(t, 0.0, analysis.ConflictScore)
	assert.Equal(t, 1.0, analysis.ConfidenceScore)
	assert.Equal(t, models.RiskNoRelationship, analysis.RiskPattern)
	assert.Equal(t, "Auto-filtered: Known ETF ticker: SPY", analysis.Reasoning)
}

func TestAnalyzeSingleDefaultsMissingConfidence(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"conflict_score": 0.85, "reasoning": "Committee oversees semiconductors"}`,
	}}
	a := newTestAnalyzer(llm, &fakeCongress{}, nil)

	trade := &models.CongressTrade{
		ID: 9, Type: models.TradePurchase, Ticker: "NVDA",
		Company: "NVIDIA Corp", PoliticianName: "Jane Example",
	}
	analysis, err := a.AnalyzeSingle(context.Background(), trade, TemperatureClassify)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, analysis.ConfidenceScore, 1e-9)
	assert.Contains(t, analysis.Reasoning, "(confidence defaulted)")
	assert.Equal(t, models.RiskConflictBuy, analysis.RiskPattern)
}

func TestCompleteJSONRetriesOnDecodeFailure(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"the model rambled with no JSON",
		`prose then {"conflict_score": 0.2, "confidence_score": 0.9, "reasoning": "index fund"}`,
	}}
	a := newTestAnalyzer(llm, &fakeCongress{}, nil)

	var v tradeVerdict
	err := a.completeJSON(context.Background(), "prompt", TemperatureClassify, &v)
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls)
	assert.InDelta(t, 0.2, v.ConflictScore, 1e-9)
}

func TestCompleteJSONGivesUpAfterRetries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"junk", "junk", "junk", "junk"}}
	a := newTestAnalyzer(llm, &fakeCongress{}, nil)

	var v tradeVerdict
	err := a.completeJSON(context.Background(), "prompt", TemperatureClassify, &v)
	assert.Error(t, err)
	assert.Equal(t, 3, llm.calls)
}

func TestFilterAfterCursor(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	trades := []models.CongressTrade{
		{ID: 30, TransactionDate: day2},
		{ID: 20, TransactionDate: day2},
		{ID: 40, TransactionDate: day1},
		{ID: 10, TransactionDate: day1},
	}

	t.Run("nil cursor keeps everything", func(t *testing.T) {
		out := filterAfterCursor(append([]models.CongressTrade(nil), trades...), nil)
		assert.Len(t, out, 4)
	})

	t.Run("same date lower id", func(t *testing.T) {
		cursor := &interfaces.TradeCursor{TransactionDate: day2, ID: 30}
		out := filterAfterCursor(append([]models.CongressTrade(nil), trades...), cursor)
		require.Len(t, out, 3)
		assert.Equal(t, int64(20), out[0].ID)
	})

	t.Run("earlier date regardless of id", func(t *testing.T) {
		cursor := &interfaces.TradeCursor{TransactionDate: day2, ID: 20}
		out := filterAfterCursor(append([]models.CongressTrade(nil), trades...), cursor)
		require.Len(t, out, 2)
		assert.Equal(t, int64(40), out[0].ID)
	})
}

func TestRescorePagesDeterministically(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	congress := &fakeCongress{}
	// All SPY trades so the prefilter keeps the test free of LLM calls.
	for i := 5; i >= 1; i-- {
		congress.trades = append(congress.trades, models.CongressTrade{
			ID:              int64(i),
			Ticker:          "SPY",
			Type:            models.TradePurchase,
			TransactionDate: day,
			PoliticianName:  "Jane Example",
		})
	}

	a := newTestAnalyzer(&scriptedLLM{}, congress, nil)
	n, err := a.Rescore(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, congress.analyses, 5)

	// Every trade scored exactly once.
	seen := map[int64]bool{}
	for _, an := range congress.analyses {
		assert.False(t, seen[an.TradeID])
		seen[an.TradeID] = true
	}
}

func TestFormatCommitteesInjectsLeadership(t *testing.T) {
	p := &models.Politician{CanonicalName: "Chuck Schumer"}
	out := formatCommittees(p, nil)
	assert.Contains(t, out, "Leadership")

	// A flagged politician without a listed name also qualifies.
	flagged := &models.Politician{CanonicalName: "Some Member", IsLeadership: true}
	assert.Contains(t, formatCommittees(flagged, nil), "Leadership")

	// Rank-and-file without committees gets the plain marker.
	plain := &models.Politician{CanonicalName: "Some Member"}
	assert.Contains(t, formatCommittees(plain, nil), "none on record")

	// Actual committees suppress the pseudo-entry.
	withSeats := formatCommittees(p, []models.Committee{{Name: "Finance", TargetSectors: []string{"Banking"}}})
	assert.Contains(t, withSeats, "Finance")
	assert.NotContains(t, withSeats, "Leadership")
}
