package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

func TestCountersSummary(t *testing.T) {
	c := counters{}
	c.add(pipeline.OutcomeSaved)
	c.add(pipeline.OutcomeSaved)
	c.add(pipeline.OutcomeDuplicate)

	assert.Equal(t, 3, c.total())
	assert.Equal(t, "duplicate=1 saved=2", c.String())
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"query":      "fed minutes",
		"batch_size": float64(40), // JSON numbers decode as float64
		"pages":      7,
		"rescore":    true,
	}

	assert.Equal(t, "fed minutes", stringParam(params, "query"))
	assert.Equal(t, "", stringParam(params, "missing"))
	assert.Equal(t, 40, intParam(params, "batch_size", 10))
	assert.Equal(t, 7, intParam(params, "pages", 10))
	assert.Equal(t, 10, intParam(params, "missing", 10))
	assert.True(t, boolParam(params, "rescore", false))
	assert.False(t, boolParam(params, "missing", false))
	assert.Equal(t, 5, intParam(nil, "anything", 5))
}

func TestMarketQueryRotationCoversAllQueries(t *testing.T) {
	seen := map[string]bool{}
	for hour := 0; hour < 24; hour++ {
		seen[marketQueries[hour%len(marketQueries)]] = true
	}
	assert.Len(t, seen, len(marketQueries))
}

func TestPartitionETFs(t *testing.T) {
	positions := []models.Position{
		{Ticker: "VTI", Company: "Vanguard Total Stock Market ETF"},
		{Ticker: "AMD", Company: "Advanced Micro Devices"},
		{Ticker: "SPYETF", Company: "Some Fund"},
		{Ticker: "MSFT", Company: "Microsoft"},
	}

	etfs, regular := partitionETFs(positions)

	assert.Len(t, etfs, 2)
	assert.Len(t, regular, 2)
	assert.Equal(t, "VTI", etfs[0].Ticker)
	assert.Equal(t, "AMD", regular[0].Ticker)
}

func TestReportSource(t *testing.T) {
	tests := []struct {
		relPath string
		want    string
	}{
		{"ticker/20260801_amd_deep_dive.pdf", "ticker-report"},
		{"tickers/20260801_nvda.pdf", "ticker-report"},
		{"market/20260715_macro_outlook.pdf", "market-report"},
		{"fund/20260101_holdings_review.pdf", "fund-report"},
		{"misc/20260101_note.pdf", "research-report"},
		{"20260101_rootfile.pdf", "research-report"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reportSource(tt.relPath), tt.relPath)
	}
}
