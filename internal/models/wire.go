package models

import "time"

// SearchResult is one hit returned by the news search service.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Source  string `json:"source,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// RSSItem is a single entry parsed from a feed.
type RSSItem struct {
	URL         string
	Title       string
	Content     string
	PublishedAt *time.Time
	Tickers     []string
	Source      string
}

// RSSFetchResult is the output of fetching one feed.
type RSSFetchResult struct {
	Items        []RSSItem
	JunkFiltered int
}

// DisclosedTrade is a raw congressional disclosure row from the financial REST API.
// Dates arrive in several formats and are normalized by the fetch job.
type DisclosedTrade struct {
	Representative  string  `json:"representative"`
	Ticker          string  `json:"ticker"`
	Company         string  `json:"company"`
	Chamber         Chamber `json:"chamber"`
	Party           string  `json:"party"`
	State           string  `json:"state"`
	Owner           string  `json:"owner"`
	TransactionDate string  `json:"transaction_date"`
	DisclosureDate  string  `json:"disclosure_date"`
	Type            string  `json:"type"`
	Amount          string  `json:"amount"`
	Price           *float64 `json:"price,omitempty"`
	AssetType       string  `json:"asset_type"`
	Notes           string  `json:"notes,omitempty"`
}

// StockTwitsPost is a single post from the StockTwits symbol stream.
type StockTwitsPost struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Label     string    `json:"label"` // "Bullish", "Bearish", or empty
	CreatedAt time.Time `json:"created_at"`
}

// RedditPost is a single post from a subreddit's public JSON listing.
type RedditPost struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
