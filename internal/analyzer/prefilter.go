package analyzer

import (
	"strings"

	"github.com/ternarybob/prospectus/internal/models"
)

// knownETFs short-circuits analysis for broad index products that can never
// represent a jurisdictional conflict.
var knownETFs = map[string]bool{
	"SPY": true, "VOO": true, "VTI": true, "IVV": true, "QQQ": true,
	"DIA": true, "IWM": true, "VEA": true, "VWO": true, "AGG": true,
	"BND": true, "TLT": true, "GLD": true, "SLV": true, "XLF": true,
	"XLK": true, "XLE": true, "XLV": true, "SCHD": true, "VIG": true,
}

var fundNameMarkers = []string{"etf", "fund", "index", "ishares", "vanguard", "spdr"}

var bondSectorMarkers = []string{"bond", "treasury", "municipal", "note", "bill"}

// LowRiskReason returns a non-empty reason when the trade can be scored 0.0
// without an LLM call.
func LowRiskReason(trade *models.CongressTrade) string {
	if trade.Type != models.TradePurchase && trade.Type != models.TradeSale {
		return "non-investment transaction type"
	}
	if knownETFs[trade.Ticker] {
		return "Known ETF ticker: " + trade.Ticker
	}

	company := strings.ToLower(trade.Company)
	for _, marker := range fundNameMarkers {
		if strings.Contains(company, marker) {
			return "pooled fund or index product"
		}
	}

	sector := strings.ToLower(trade.Sector)
	for _, marker := range bondSectorMarkers {
		if strings.Contains(sector, marker) {
			return "fixed-income instrument"
		}
	}
	return ""
}

// lowRiskAnalysis builds the auto-filtered verdict for a low-risk trade.
func lowRiskAnalysis(trade *models.CongressTrade, model, version, reason string) *models.TradeAnalysis {
	return &models.TradeAnalysis{
		TradeID:         trade.ID,
		ModelUsed:       model,
		AnalysisVersion: version,
		ConflictScore:   0.0,
		ConfidenceScore: 1.0,
		RiskPattern:     models.RiskNoRelationship,
		Reasoning:       "Auto-filtered: " + reason,
	}
}
