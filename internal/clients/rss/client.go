// -----------------------------------------------------------------------
// RSS Client - fetches and normalizes feeds
// Junk filtering happens here so every caller sees the same cleaned item
// stream regardless of feed quality.
// -----------------------------------------------------------------------

package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// junkTitleMarkers identify promotional or non-editorial feed entries.
var junkTitleMarkers = []string{
	"sponsored",
	"advertisement",
	"press release",
	"webinar",
	"[video]",
	"sweepstakes",
	"horoscope",
}

type Client struct {
	parser *gofeed.Parser
	logger arbor.ILogger
}

var _ interfaces.RSSService = (*Client)(nil)

func NewClient(logger arbor.ILogger) *Client {
	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0 (compatible; prospectus/1.0)"
	return &Client{parser: parser, logger: logger}
}

// Fetch parses the feed and returns normalized items with junk filtered out.
func (c *Client) Fetch(ctx context.Context, url string) (*models.RSSFetchResult, error) {
	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	result := &models.RSSFetchResult{}
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			result.JunkFiltered++
			continue
		}
		if isJunk(item) {
			result.JunkFiltered++
			continue
		}

		content := strings.TrimSpace(item.Content)
		if content == "" {
			content = strings.TrimSpace(item.Description)
		}

		result.Items = append(result.Items, models.RSSItem{
			URL:         item.Link,
			Title:       strings.TrimSpace(item.Title),
			Content:     content,
			PublishedAt: publishedAt(item),
			Tickers:     tickersFromCategories(item.Categories),
			Source:      feed.Title,
		})
	}

	c.logger.Debug().
		Str("feed", url).
		Int("items", len(result.Items)).
		Int("junk_filtered", result.JunkFiltered).
		Msg("Feed fetched")
	return result, nil
}

func isJunk(item *gofeed.Item) bool {
	title := strings.ToLower(item.Title)
	if strings.TrimSpace(title) == "" {
		return true
	}
	for _, marker := range junkTitleMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

func publishedAt(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// tickersFromCategories keeps categories that look like ticker symbols.
// Most feeds put section names here, so validation is strict.
func tickersFromCategories(categories []string) []string {
	var candidates []string
	for _, cat := range categories {
		cat = strings.TrimSpace(strings.TrimPrefix(cat, "$"))
		if cat != strings.ToUpper(cat) {
			continue
		}
		candidates = append(candidates, cat)
	}
	return common.NormalizeTickers(candidates)
}
