package models

import (
	"fmt"
	"time"
)

// EmbeddingDim is the dimension of the embedding model. Articles either carry
// a vector of exactly this length or no vector at all.
const EmbeddingDim = 768

// ArticleType classifies where an article came from and how it should be surfaced.
type ArticleType string

const (
	ArticleTypeMarketNews         ArticleType = "market_news"
	ArticleTypeTickerNews         ArticleType = "ticker_news"
	ArticleTypeResearchReport     ArticleType = "research_report"
	ArticleTypeEtfChange          ArticleType = "etf_change"
	ArticleTypeRedditDiscovery    ArticleType = "reddit_discovery"
	ArticleTypeAlphaResearch      ArticleType = "alpha_research"
	ArticleTypeSeekingAlphaSymbol ArticleType = "seeking_alpha_symbol"
	ArticleTypeEarnings           ArticleType = "earnings"
	ArticleTypeGeneral            ArticleType = "general"
)

// Sentiment is the LLM-emitted directional label for an article.
type Sentiment string

const (
	SentimentVeryBullish Sentiment = "very_bullish"
	SentimentBullish     Sentiment = "bullish"
	SentimentNeutral     Sentiment = "neutral"
	SentimentBearish     Sentiment = "bearish"
	SentimentVeryBearish Sentiment = "very_bearish"
)

// Score returns the numeric score consistent with the sentiment label.
func (s Sentiment) Score() float64 {
	switch s {
	case SentimentVeryBullish:
		return 2
	case SentimentBullish:
		return 1
	case SentimentBearish:
		return -1
	case SentimentVeryBearish:
		return -2
	default:
		return 0
	}
}

// LogicCheck is the LLM's categorical confidence about whether an article is
// data-backed. It gates relationship extraction and sets initial edge confidence.
type LogicCheck string

const (
	LogicCheckDataBacked   LogicCheck = "data_backed"
	LogicCheckHypeDetected LogicCheck = "hype_detected"
	LogicCheckNeutral      LogicCheck = "neutral"
)

// MarketRelevance is the LLM's binary call on whether an article is about markets.
type MarketRelevance string

const (
	MarketRelated    MarketRelevance = "market_related"
	NotMarketRelated MarketRelevance = "not_market_related"
)

// PaywallPlaceholderSummary is stored as both summary and content for articles
// that hit a paywall and were submitted to the archive service.
const PaywallPlaceholderSummary = "[Paywalled — Submitted for archive]"

// Article is a normalized, AI-enriched news article or research document.
// URL is globally unique; saving twice with the same URL updates the existing row.
type Article struct {
	ID                 string      `db:"id" json:"id"`
	Title              string      `db:"title" json:"title"`
	URL                string      `db:"url" json:"url"`
	Content            string      `db:"content" json:"content"`
	Summary            string      `db:"summary" json:"summary"`
	Source             string      `db:"source" json:"source"`
	PublishedAt        *time.Time  `db:"published_at" json:"published_at,omitempty"`
	FetchedAt          time.Time   `db:"fetched_at" json:"fetched_at"`
	Type               ArticleType `db:"article_type" json:"article_type"`
	Tickers            []string    `db:"-" json:"tickers"`
	Sector             string      `db:"sector" json:"sector"`
	RelevanceScore     float64     `db:"relevance_score" json:"relevance_score"`
	Embedding          []float32   `db:"-" json:"-"`
	Claims             []string    `db:"-" json:"claims"`
	FactCheck          string      `db:"fact_check" json:"fact_check"`
	Conclusion         string      `db:"conclusion" json:"conclusion"`
	Sentiment          Sentiment   `db:"sentiment" json:"sentiment"`
	SentimentScore     float64     `db:"sentiment_score" json:"sentiment_score"`
	LogicCheck         LogicCheck  `db:"logic_check" json:"logic_check"`
	Fund               *string     `db:"fund" json:"fund,omitempty"`
	ArchiveSubmittedAt *time.Time  `db:"archive_submitted_at" json:"archive_submitted_at,omitempty"`
	ArchiveCheckedAt   *time.Time  `db:"archive_checked_at" json:"archive_checked_at,omitempty"`
	ArchiveURL         string      `db:"archive_url" json:"archive_url,omitempty"`
}

// RelationshipTriple is a directed ticker-to-ticker edge proposed by the LLM.
type RelationshipTriple struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Relationship is a persisted graph edge between two tickers. The
// (source, target, type) triple is unique; re-inserting a duplicate bumps
// confidence by +0.1 clamped to 1.0 and refreshes DetectedAt.
type Relationship struct {
	SourceTicker    string    `db:"source_ticker" json:"source_ticker"`
	TargetTicker    string    `db:"target_ticker" json:"target_ticker"`
	Type            string    `db:"relationship_type" json:"relationship_type"`
	Confidence      float64   `db:"confidence" json:"confidence"`
	SourceArticleID string    `db:"source_article_id" json:"source_article_id"`
	DetectedAt      time.Time `db:"detected_at" json:"detected_at"`
}

// SummaryResult is the structured output of the LLM summarize call.
type SummaryResult struct {
	Summary         string               `json:"summary"`
	Tickers         []string             `json:"tickers"`
	Sectors         []string             `json:"sectors"`
	Claims          []string             `json:"claims"`
	FactCheck       string               `json:"fact_check"`
	Conclusion      string               `json:"conclusion"`
	Sentiment       Sentiment            `json:"sentiment"`
	SentimentScore  float64              `json:"sentiment_score"`
	LogicCheck      LogicCheck           `json:"logic_check"`
	MarketRelevance MarketRelevance      `json:"market_relevance"`
	RelevanceReason string               `json:"relevance_reason"`
	Relationships   []RelationshipTriple `json:"relationships"`
	KeyThemes       []string             `json:"key_themes"`
}

// ExtractionErrorKind is the closed set of extraction failure classes.
type ExtractionErrorKind string

const (
	ExtractErrPaywall ExtractionErrorKind = "paid_subscription"
	ExtractErrTimeout ExtractionErrorKind = "timeout"
	ExtractErrHTTP    ExtractionErrorKind = "http"
	ExtractErrEmpty   ExtractionErrorKind = "empty"
	ExtractErrUnknown ExtractionErrorKind = "unknown"
)

// ExtractionError is a typed extraction failure. Paywalls are a structured
// outcome rather than a hard error; callers divert them to the archive path.
type ExtractionError struct {
	Kind       ExtractionErrorKind
	StatusCode int
	Cause      error
}

func (e *ExtractionError) Error() string {
	if e.Kind == ExtractErrHTTP {
		return fmt.Sprintf("http_%d", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ExtractionResult is the outcome of fetching and extracting a URL.
type ExtractionResult struct {
	Title            string
	Content          string
	Source           string
	PublishedAt      *time.Time
	ArchiveSubmitted bool
	Err              *ExtractionError
}
