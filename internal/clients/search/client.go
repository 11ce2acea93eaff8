// -----------------------------------------------------------------------
// Search Client - HTTP news-search collaborator
// -----------------------------------------------------------------------

package search

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

// Client queries the self-hosted search service for news results.
type Client struct {
	rest   *resty.Client
	logger arbor.ILogger
}

var _ interfaces.SearchService = (*Client)(nil)

func NewClient(baseURL string, logger arbor.ILogger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &Client{rest: rest, logger: logger}
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
}

// Search runs a query and returns up to maxResults hits. Results missing a
// URL are dropped before they reach the pipeline.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	var out searchResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           query,
			"max_results": fmt.Sprintf("%d", maxResults),
			"format":      "json",
		}).
		SetResult(&out).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode())
	}

	results := make([]models.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		results = append(results, r)
		if len(results) >= maxResults {
			break
		}
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Search completed")
	return results, nil
}

func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.rest.R().SetContext(ctx).Get("/healthz")
	return err == nil && resp.StatusCode() == http.StatusOK
}
