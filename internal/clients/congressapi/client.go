// -----------------------------------------------------------------------
// Congress API Client - congressional trading disclosures
// -----------------------------------------------------------------------

package congressapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// recentTradesLimit is the real per-page cap. The provider documents a
// higher one but silently truncates; requesting more than 10 returns 10.
const recentTradesLimit = 10

type Client struct {
	rest   *resty.Client
	logger arbor.ILogger
}

var _ interfaces.CongressAPIService = (*Client)(nil)

func NewClient(baseURL, apiKey string, logger arbor.ILogger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetQueryParam("apikey", apiKey).
		SetRetryCount(2).
		SetRetryWaitTime(3 * time.Second)

	return &Client{rest: rest, logger: logger}
}

// RecentTrades fetches page 0 of disclosures for a chamber. Pagination past
// page 0 is deliberately unsupported: the provider's page parameter skips
// records nondeterministically under load.
func (c *Client) RecentTrades(ctx context.Context, chamber models.Chamber) ([]models.DisclosedTrade, error) {
	endpoint := "/senate-trading-rss-feed"
	if chamber == models.ChamberHouse {
		endpoint = "/house-disclosure-rss-feed"
	}

	var trades []models.DisclosedTrade
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  "0",
			"limit": fmt.Sprintf("%d", recentTradesLimit),
		}).
		SetResult(&trades).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("congress API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("congress API returned status %d", resp.StatusCode())
	}

	for i := range trades {
		trades[i].Chamber = chamber
	}

	c.logger.Debug().
		Str("chamber", string(chamber)).
		Int("trades", len(trades)).
		Msg("Fetched recent disclosures")
	return trades, nil
}

// HistoricalTrades pages through older disclosures for backfill scrapes.
// Unlike the recent feed, callers here accept that the provider may skip or
// repeat records under load; the upsert key absorbs duplicates.
func (c *Client) HistoricalTrades(ctx context.Context, chamber models.Chamber, page, pageSize int) ([]models.DisclosedTrade, error) {
	endpoint := "/senate-trading-rss-feed"
	if chamber == models.ChamberHouse {
		endpoint = "/house-disclosure-rss-feed"
	}

	var trades []models.DisclosedTrade
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  fmt.Sprintf("%d", page),
			"limit": fmt.Sprintf("%d", pageSize),
		}).
		SetResult(&trades).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("congress API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("congress API returned status %d", resp.StatusCode())
	}

	for i := range trades {
		trades[i].Chamber = chamber
	}
	return trades, nil
}

func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.rest.R().SetContext(ctx).SetQueryParam("limit", "1").Get("/senate-trading-rss-feed")
	return err == nil && resp.StatusCode() == http.StatusOK
}
