// -----------------------------------------------------------------------
// Archive Client - submits paywalled URLs to a public web archive and
// retrieves archived copies once they become available.
// -----------------------------------------------------------------------

package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// The archive rejects default Go user agents, so every request carries a
// browser-like identity.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Client struct {
	rest   *resty.Client
	logger arbor.ILogger
}

var _ interfaces.ArchiveService = (*Client)(nil)

func NewClient(baseURL string, logger arbor.ILogger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(45 * time.Second).
		SetHeader("User-Agent", browserUserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Client{rest: rest, logger: logger}
}

// Submit asks the archive to capture the URL. The capture is asynchronous;
// availability is checked later by the retry job.
func (c *Client) Submit(ctx context.Context, target string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("url", target).
		Get("/submit/")
	if err != nil {
		return fmt.Errorf("archive submit failed: %w", err)
	}
	// The archive answers 200 for accepted captures and 302 to an in-progress
	// page; both mean the submission landed.
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("archive submit returned status %d", resp.StatusCode())
	}

	c.logger.Debug().Str("url", target).Msg("Submitted URL to archive")
	return nil
}

// CheckAvailable looks up the newest archived copy of the URL. ok is false
// when no snapshot exists yet.
func (c *Client) CheckAvailable(ctx context.Context, target string) (string, bool, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/newest/" + url.QueryEscape(target))
	if err != nil {
		return "", false, fmt.Errorf("archive availability check failed: %w", err)
	}
	defer resp.RawBody().Close()

	switch resp.StatusCode() {
	case http.StatusOK:
		final := resp.RawResponse.Request.URL.String()
		return final, true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("archive availability check returned status %d", resp.StatusCode())
	}
}

// FetchArchived downloads the archived page HTML.
func (c *Client) FetchArchived(ctx context.Context, archiveURL string) (string, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(archiveURL)
	if err != nil {
		return "", fmt.Errorf("archive fetch failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("archive fetch returned status %d", resp.StatusCode())
	}
	return string(resp.Body()), nil
}

func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.rest.R().SetContext(ctx).Get("/")
	return err == nil && resp.StatusCode() < 500
}
