package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/prospectus/internal/models"
)

// ArticleMatch pairs an article with its cosine similarity to a query vector.
type ArticleMatch struct {
	Article    models.Article
	Similarity float64
}

// ArticleStorage persists AI-enriched articles in the research store.
type ArticleStorage interface {
	// GetByURL returns the article with the given URL, or nil if none exists.
	GetByURL(ctx context.Context, url string) (*models.Article, error)

	// Save upserts by URL: inserting a new row or updating AI-derived fields
	// and refreshing fetched_at on the existing one. Returns the row id.
	Save(ctx context.Context, article *models.Article) (string, error)

	// UpdateContent replaces content, title, summary and embedding on an
	// existing article (archive-retry path). The row id never changes.
	UpdateContent(ctx context.Context, article *models.Article) error

	// MarkArchiveChecked records an archive availability check. An empty
	// archiveURL means the archive copy was still paywalled or missing.
	MarkArchiveChecked(ctx context.Context, id string, archiveURL string) error

	// PendingArchive lists articles submitted to the archive at least minAge
	// ago that have no archive URL yet.
	PendingArchive(ctx context.Context, minAge time.Duration) ([]models.Article, error)

	// SearchSimilar runs a cosine-similarity query over article embeddings.
	SearchSimilar(ctx context.Context, embedding []float32, minSimilarity float64, limit int) ([]ArticleMatch, error)
}

// RelationshipStorage persists ticker-relationship graph edges.
type RelationshipStorage interface {
	// Save inserts a relationship; on a duplicate (source, target, type)
	// triple the confidence is bumped by +0.1 clamped to 1.0 and detected_at
	// refreshed.
	Save(ctx context.Context, rel *models.Relationship) error
}

// TradeCursor is the composite pagination cursor for rescore sweeps,
// ordered (transaction_date desc, id desc).
type TradeCursor struct {
	TransactionDate time.Time
	ID              int64
}

// CongressStorage persists disclosed trades, analyses and trade sessions.
type CongressStorage interface {
	// UpsertTrade inserts or updates on the disclosure uniqueness key.
	// Reports the row id and whether a new row was created.
	UpsertTrade(ctx context.Context, trade *models.CongressTrade) (int64, bool, error)

	// TradesNeedingAnalysis returns trades with a null conflict score.
	TradesNeedingAnalysis(ctx context.Context, limit int) ([]models.CongressTrade, error)

	// TradesAfterCursor returns up to limit trades strictly after the cursor
	// in (transaction_date desc, id desc) order. A nil cursor starts at the top.
	TradesAfterCursor(ctx context.Context, cursor *TradeCursor, limit int) ([]models.CongressTrade, error)

	// SaveAnalysis upserts on (trade_id, model_used, analysis_version) and
	// mirrors the conflict score onto the trade row.
	SaveAnalysis(ctx context.Context, analysis *models.TradeAnalysis) error

	// SessionsNeedingAnalysis returns sessions flagged for AI analysis.
	SessionsNeedingAnalysis(ctx context.Context, limit int) ([]models.TradeSession, error)

	// TradesForSession returns the session's trades in transaction-date order.
	TradesForSession(ctx context.Context, sessionID string) ([]models.CongressTrade, error)

	// UpdateSessionAnalysis stores the session verdict and clears the
	// needs_ai_analysis flag.
	UpdateSessionAnalysis(ctx context.Context, session *models.TradeSession) error
}

// PoliticianStorage resolves canonical politician identities and committees.
type PoliticianStorage interface {
	// FindByName resolves a disclosed name (alias or canonical) to a
	// politician record, or nil when unknown.
	FindByName(ctx context.Context, name string) (*models.Politician, error)

	// Committees returns the politician's committee assignments with their
	// target sectors.
	Committees(ctx context.Context, politicianID int64) ([]models.Committee, error)
}

// SecurityStorage looks up listed instruments.
type SecurityStorage interface {
	// GetByTickers returns securities keyed by ticker. Callers chunk large
	// ticker sets to keep IN-lists bounded.
	GetByTickers(ctx context.Context, tickers []string) (map[string]models.Security, error)
}

// SocialStorage persists social metrics, extracted posts and sentiment sessions.
type SocialStorage interface {
	SaveMetric(ctx context.Context, metric *models.SocialMetric) (int64, error)
	MetricsWithRawPosts(ctx context.Context, limit int) ([]models.SocialMetric, error)
	InsertPosts(ctx context.Context, posts []models.SocialPost) error
	MarkPostsExtracted(ctx context.Context, metricID int64) error
	UnsessionedPosts(ctx context.Context, limit int) ([]models.SocialPost, error)
	SaveSession(ctx context.Context, session *models.SentimentSession) error
	AssignPostsToSession(ctx context.Context, sessionID string, postIDs []int64) error
	SessionsNeedingAnalysis(ctx context.Context, limit int) ([]models.SentimentSession, error)
	PostsForSession(ctx context.Context, sessionID string) ([]models.SocialPost, error)
	UpdateSessionAnalysis(ctx context.Context, session *models.SentimentSession) error

	// Retention policy: raw JSON cleared at 14 days, metric rows deleted at
	// 60 days, analysis rows deleted at 90 days.
	ClearRawPostsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobExecutionStorage tracks job lifecycle rows in the meta store.
type JobExecutionStorage interface {
	// Start creates a running execution row and returns its id.
	Start(ctx context.Context, jobName, targetDate string, fundName *string) (int64, error)

	// Complete transitions a row to success/failed with duration and error.
	Complete(ctx context.Context, id int64, status models.ExecutionStatus, errMsg string, duration time.Duration) error

	// StaleRunning lists running rows started more than age ago.
	StaleRunning(ctx context.Context, age time.Duration) ([]models.JobExecution, error)

	// AllRunning lists every row still in running state.
	AllRunning(ctx context.Context) ([]models.JobExecution, error)

	// MarkFailed force-fails a row with the given reason.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// Delete removes an execution row.
	Delete(ctx context.Context, id int64) error

	// RunningByJob returns the freshest running execution per job name,
	// ignoring rows older than maxAge. One query for all jobs.
	RunningByJob(ctx context.Context, maxAge time.Duration) (map[string]models.JobExecution, error)

	// RecentByJob returns the most recent perJob executions for every job.
	// One query for all jobs.
	RecentByJob(ctx context.Context, perJob int) (map[string][]models.JobExecution, error)
}

// RetryQueueStorage queues failed calculation work for re-attempts.
type RetryQueueStorage interface {
	Enqueue(ctx context.Context, entry *models.RetryQueueEntry) error
	Due(ctx context.Context, now time.Time, limit int) ([]models.RetryQueueEntry, error)
	Remove(ctx context.Context, id int64) error
	Bump(ctx context.Context, id int64, nextAttempt time.Time) error
}

// FeedStorage manages RSS feed definitions.
type FeedStorage interface {
	EnabledFeeds(ctx context.Context) ([]models.RSSFeed, error)
	TouchFetched(ctx context.Context, id int64) error
}

// FundStorage exposes production-fund holdings.
type FundStorage interface {
	// OwnedTickers returns ticker → sector for every active position in a
	// production fund.
	OwnedTickers(ctx context.Context) (map[string]string, error)

	// ActivePositions returns distinct (ticker, company) pairs across
	// production funds.
	ActivePositions(ctx context.Context) ([]models.Position, error)
}

// DomainHealthStorage persists per-domain failure counters and the blacklist.
// Updates must be atomic per domain.
type DomainHealthStorage interface {
	RecordSuccess(ctx context.Context, domain string) error
	RecordFailure(ctx context.Context, domain, reason string) (int, error)
	Get(ctx context.Context, domain string) (*models.DomainHealthRecord, error)
	SetBlacklisted(ctx context.Context, domain string) error
	IsBlacklisted(ctx context.Context, domain string) (bool, error)
}
