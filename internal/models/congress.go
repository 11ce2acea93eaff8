package models

import "time"

// Chamber identifies which house of Congress a politician sits in.
type Chamber string

const (
	ChamberHouse  Chamber = "House"
	ChamberSenate Chamber = "Senate"
)

// TradeOwner identifies whose account the trade was made in.
type TradeOwner string

const (
	OwnerSelf      TradeOwner = "Self"
	OwnerSpouse    TradeOwner = "Spouse"
	OwnerDependent TradeOwner = "Dependent"
	OwnerUnknown   TradeOwner = "Unknown"
)

// TradeType is the disclosed transaction direction. Exchange covers the
// long tail of non-investment disclosures (exchanges, options exercises)
// that score 0.0 without analysis.
type TradeType string

const (
	TradePurchase TradeType = "Purchase"
	TradeSale     TradeType = "Sale"
	TradeExchange TradeType = "Exchange"
)

// AssetType distinguishes equity disclosures from crypto ones.
type AssetType string

const (
	AssetStock  AssetType = "Stock"
	AssetCrypto AssetType = "Crypto"
)

// RiskPattern is the closed enum describing a trade or session's intent.
type RiskPattern string

const (
	RiskConflictBuy       RiskPattern = "ConflictBuy"
	RiskSuspiciousSell    RiskPattern = "SuspiciousSell"
	RiskAggressiveBet     RiskPattern = "AggressiveBet"
	RiskRoutineDivestment RiskPattern = "RoutineDivestment"
	RiskNoRelationship    RiskPattern = "NoRelationship"
	RiskRoutine           RiskPattern = "Routine"
)

// CongressTrade is a single disclosed transaction. The uniqueness key is
// (politician_id, ticker, transaction_date, amount, type, owner).
type CongressTrade struct {
	ID              int64      `db:"id" json:"id"`
	PoliticianID    int64      `db:"politician_id" json:"politician_id"`
	PoliticianName  string     `db:"politician_name" json:"politician_name"`
	Ticker          string     `db:"ticker" json:"ticker"`
	Company         string     `db:"company" json:"company"`
	Sector          string     `db:"sector" json:"sector"`
	Chamber         Chamber    `db:"chamber" json:"chamber"`
	Party           string     `db:"party" json:"party"`
	State           string     `db:"state" json:"state"`
	Owner           TradeOwner `db:"owner" json:"owner"`
	TransactionDate time.Time  `db:"transaction_date" json:"transaction_date"`
	DisclosureDate  time.Time  `db:"disclosure_date" json:"disclosure_date"`
	Type            TradeType  `db:"type" json:"type"`
	Amount          string     `db:"amount" json:"amount"`
	Price           *float64   `db:"price" json:"price,omitempty"`
	AssetType       AssetType  `db:"asset_type" json:"asset_type"`
	Notes           string     `db:"notes" json:"notes"`
	ConflictScore   *float64   `db:"conflict_score" json:"conflict_score,omitempty"`
}

// TradeAnalysis is an AI verdict on a single trade. Unique per
// (trade_id, model_used, analysis_version).
type TradeAnalysis struct {
	TradeID         int64       `db:"trade_id" json:"trade_id"`
	ModelUsed       string      `db:"model_used" json:"model_used"`
	AnalysisVersion string      `db:"analysis_version" json:"analysis_version"`
	ConflictScore   float64     `db:"conflict_score" json:"conflict_score"`
	ConfidenceScore float64     `db:"confidence_score" json:"confidence_score"`
	RiskPattern     RiskPattern `db:"risk_pattern" json:"risk_pattern"`
	Reasoning       string      `db:"reasoning" json:"reasoning"`
	SessionID       *string     `db:"session_id" json:"session_id,omitempty"`
	AnalyzedAt      time.Time   `db:"analyzed_at" json:"analyzed_at"`
}

// TradeSession is a time-bounded group of trades by one politician.
// Analysis is produced at the session level and propagated to each trade.
type TradeSession struct {
	ID              string      `db:"id" json:"id"`
	PoliticianName  string      `db:"politician_name" json:"politician_name"`
	StartDate       time.Time   `db:"start_date" json:"start_date"`
	EndDate         time.Time   `db:"end_date" json:"end_date"`
	TradeCount      int         `db:"trade_count" json:"trade_count"`
	ConflictScore   float64     `db:"conflict_score" json:"conflict_score"`
	ConfidenceScore float64     `db:"confidence_score" json:"confidence_score"`
	AISummary       string      `db:"ai_summary" json:"ai_summary"`
	RiskPattern     RiskPattern `db:"risk_pattern" json:"risk_pattern"`
	ModelUsed       string      `db:"model_used" json:"model_used"`
	NeedsAIAnalysis bool        `db:"needs_ai_analysis" json:"needs_ai_analysis"`
}

// Politician is the canonical identity record for a member of Congress.
type Politician struct {
	ID            int64    `db:"id" json:"id"`
	CanonicalName string   `db:"canonical_name" json:"canonical_name"`
	Aliases       []string `db:"-" json:"aliases"`
	Party         string   `db:"party" json:"party"`
	State         string   `db:"state" json:"state"`
	Chamber       Chamber  `db:"chamber" json:"chamber"`
	IsLeadership  bool     `db:"is_leadership" json:"is_leadership"`
}

// Committee maps a congressional committee to the market sectors it regulates.
type Committee struct {
	ID            int64    `db:"id" json:"id"`
	Name          string   `db:"name" json:"name"`
	TargetSectors []string `db:"-" json:"target_sectors"`
}

// CommitteeAssignment links a politician to a committee with their title.
type CommitteeAssignment struct {
	PoliticianID int64  `db:"politician_id" json:"politician_id"`
	CommitteeID  int64  `db:"committee_id" json:"committee_id"`
	Title        string `db:"title" json:"title"`
}

// Security is a listed instrument with its company name and sector, used for
// jurisdiction matching and ETF sector resolution.
type Security struct {
	Ticker  string `db:"ticker" json:"ticker"`
	Company string `db:"company" json:"company"`
	Sector  string `db:"sector" json:"sector"`
	IsETF   bool   `db:"is_etf" json:"is_etf"`
}
