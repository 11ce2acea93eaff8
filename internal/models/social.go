package models

import (
	"encoding/json"
	"time"
)

// SocialPlatform identifies the source of a social metric.
type SocialPlatform string

const (
	PlatformStockTwits SocialPlatform = "stocktwits"
	PlatformReddit     SocialPlatform = "reddit"
)

// CrowdSentiment is the LLM-emitted label for a batch of social posts.
type CrowdSentiment string

const (
	CrowdEuphoric CrowdSentiment = "Euphoric"
	CrowdBullish  CrowdSentiment = "Bullish"
	CrowdNeutral  CrowdSentiment = "Neutral"
	CrowdBearish  CrowdSentiment = "Bearish"
	CrowdFearful  CrowdSentiment = "Fearful"
)

// Score maps the crowd sentiment label to its numeric score.
func (c CrowdSentiment) Score() float64 {
	switch c {
	case CrowdEuphoric:
		return 2
	case CrowdBullish:
		return 1
	case CrowdBearish:
		return -1
	case CrowdFearful:
		return -2
	default:
		return 0
	}
}

// SocialMetric is one collection window's worth of posts for a (ticker, platform).
// RawPosts holds the structured post payload and is cleared by the retention job
// after 14 days; whole rows are deleted after 60 days.
type SocialMetric struct {
	ID                int64           `db:"id" json:"id"`
	Ticker            string          `db:"ticker" json:"ticker"`
	Platform          SocialPlatform  `db:"platform" json:"platform"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	Volume            int             `db:"volume" json:"volume"`
	BullBearRatio     *float64        `db:"bull_bear_ratio" json:"bull_bear_ratio,omitempty"`
	SentimentLabel    CrowdSentiment  `db:"sentiment_label" json:"sentiment_label"`
	SentimentScore    float64         `db:"sentiment_score" json:"sentiment_score"`
	RawPosts          json.RawMessage `db:"raw_posts" json:"raw_posts,omitempty"`
	AnalysisSessionID *string         `db:"analysis_session_id" json:"analysis_session_id,omitempty"`
}

// SocialPost is a single post extracted from a metric's raw payload.
type SocialPost struct {
	ID        int64          `db:"id" json:"id"`
	MetricID  int64          `db:"metric_id" json:"metric_id"`
	Ticker    string         `db:"ticker" json:"ticker"`
	Platform  SocialPlatform `db:"platform" json:"platform"`
	Author    string         `db:"author" json:"author"`
	Body      string         `db:"body" json:"body"`
	Label     string         `db:"label" json:"label"`
	PostedAt  time.Time      `db:"posted_at" json:"posted_at"`
	SessionID *string        `db:"session_id" json:"session_id,omitempty"`
}

// SentimentSession is a 4-hour window of posts per (ticker, platform) used for
// crowd-sentiment analysis. Analysis rows are deleted after 90 days.
type SentimentSession struct {
	ID             string         `db:"id" json:"id"`
	Ticker         string         `db:"ticker" json:"ticker"`
	Platform       SocialPlatform `db:"platform" json:"platform"`
	WindowStart    time.Time      `db:"window_start" json:"window_start"`
	WindowEnd      time.Time      `db:"window_end" json:"window_end"`
	PostCount      int            `db:"post_count" json:"post_count"`
	SentimentLabel CrowdSentiment `db:"sentiment_label" json:"sentiment_label"`
	SentimentScore float64        `db:"sentiment_score" json:"sentiment_score"`
	AISummary      string         `db:"ai_summary" json:"ai_summary"`
	AnalyzedAt     *time.Time     `db:"analyzed_at" json:"analyzed_at,omitempty"`
}
