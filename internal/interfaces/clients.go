package interfaces

import (
	"context"

	"github.com/ternarybob/prospectus/internal/models"
)

// LLMService wraps the local/remote language-model service.
type LLMService interface {
	// Summarize runs the structured article-summary prompt.
	Summarize(ctx context.Context, text string) (*models.SummaryResult, error)

	// Embed returns a fixed-dimension embedding for the text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Complete runs a raw completion. With jsonMode the service is asked for
	// JSON-formatted output; callers still parse defensively.
	Complete(ctx context.Context, prompt, system string, jsonMode bool, temperature float64) (string, error)

	Health(ctx context.Context) bool
}

// SearchService is the HTTP news-search collaborator.
type SearchService interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
	Health(ctx context.Context) bool
}

// ArchiveService submits paywalled URLs to a public archive and retrieves copies.
type ArchiveService interface {
	Submit(ctx context.Context, url string) error
	CheckAvailable(ctx context.Context, url string) (archiveURL string, ok bool, err error)
	FetchArchived(ctx context.Context, archiveURL string) (html string, err error)
	Health(ctx context.Context) bool
}

// ExtractorService turns a URL (or already-fetched HTML) into clean text.
type ExtractorService interface {
	Extract(ctx context.Context, url string) *models.ExtractionResult
	ExtractFromHTML(html, url string) *models.ExtractionResult
	Health(ctx context.Context) bool
}

// AntiBotService routes requests through a challenge-solving proxy, falling
// back to direct HTTP when the proxy is unavailable.
type AntiBotService interface {
	// FetchJSON fetches a URL and returns the JSON payload, extracted from
	// raw JSON or the first {…} block inside returned HTML.
	FetchJSON(ctx context.Context, url string) ([]byte, error)
	Health(ctx context.Context) bool
}

// RSSService parses a feed URL into normalized items.
type RSSService interface {
	Fetch(ctx context.Context, url string) (*models.RSSFetchResult, error)
}

// CongressAPIService wraps the financial-data REST API's disclosure endpoints.
type CongressAPIService interface {
	// RecentTrades fetches page 0 of recent disclosures for a chamber. The
	// documented per-page cap is wrong upstream; never paginate past page 0.
	RecentTrades(ctx context.Context, chamber models.Chamber) ([]models.DisclosedTrade, error)

	// HistoricalTrades pages through older disclosures for backfill scrapes.
	HistoricalTrades(ctx context.Context, chamber models.Chamber, page, pageSize int) ([]models.DisclosedTrade, error)

	Health(ctx context.Context) bool
}

// StockTwitsService reads the StockTwits symbol stream.
type StockTwitsService interface {
	RecentPosts(ctx context.Context, ticker string) ([]models.StockTwitsPost, error)
}

// RedditService searches the whitelisted stock subreddits for ticker mentions.
type RedditService interface {
	SearchTicker(ctx context.Context, ticker string) ([]models.RedditPost, error)
}
