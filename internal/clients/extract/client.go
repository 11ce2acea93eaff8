// -----------------------------------------------------------------------
// Extractor Client - turns article URLs into clean text
// Fetches pages with browser-like headers, strips boilerplate with a DOM
// walk, and classifies failures so the pipeline can branch on them.
// -----------------------------------------------------------------------

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// minContentLength is the floor below which an extraction counts as empty.
const minContentLength = 200

// paywallMarkers are phrases that identify subscriber-gated pages.
var paywallMarkers = []string{
	"subscribe to continue",
	"subscribe to read",
	"subscription required",
	"subscribers only",
	"this article is for subscribers",
	"sign in to continue reading",
	"create a free account to continue",
	"unlock this article",
	"already a subscriber",
}

// junkSelectors are stripped from the document before text extraction.
var junkSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form",
	".advertisement", ".newsletter-signup", ".related-articles",
	".social-share", ".comments", "#comments",
}

// contentSelectors are tried in order; the first match wins.
var contentSelectors = []string{
	"article",
	"[itemprop=articleBody]",
	".article-body",
	".post-content",
	".entry-content",
	"main",
}

// Client implements extraction. When a paywall is detected the URL is
// submitted to the archive service before the paid_subscription result is
// returned, so callers can persist the placeholder article immediately.
type Client struct {
	rest    *resty.Client
	archive interfaces.ArchiveService
	logger  arbor.ILogger
}

var _ interfaces.ExtractorService = (*Client)(nil)

func NewClient(archive interfaces.ArchiveService, logger arbor.ILogger) *Client {
	rest := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Client{rest: rest, archive: archive, logger: logger}
}

// Extract fetches the URL and extracts clean article text.
func (c *Client) Extract(ctx context.Context, url string) *models.ExtractionResult {
	resp, err := c.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		kind := models.ExtractErrUnknown
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			kind = models.ExtractErrTimeout
		}
		return &models.ExtractionResult{Err: &models.ExtractionError{Kind: kind, Cause: err}}
	}

	if resp.StatusCode() != http.StatusOK {
		if resp.StatusCode() == http.StatusPaymentRequired || resp.StatusCode() == http.StatusForbidden {
			// Hard-gated sites answer 402/403 before any content; treat the
			// same as an in-page paywall.
			return c.paywalled(ctx, url)
		}
		return &models.ExtractionResult{Err: &models.ExtractionError{
			Kind:       models.ExtractErrHTTP,
			StatusCode: resp.StatusCode(),
		}}
	}

	return c.extractDocument(ctx, string(resp.Body()), url, true)
}

// ExtractFromHTML extracts from already-fetched HTML. Used by the archive
// retry path, where the paywall branch must not resubmit.
func (c *Client) ExtractFromHTML(html, url string) *models.ExtractionResult {
	return c.extractDocument(context.Background(), html, url, false)
}

func (c *Client) extractDocument(ctx context.Context, html, url string, submitOnPaywall bool) *models.ExtractionResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &models.ExtractionResult{Err: &models.ExtractionError{Kind: models.ExtractErrUnknown, Cause: err}}
	}

	for _, sel := range junkSelectors {
		doc.Find(sel).Remove()
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if ogTitle, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && ogTitle != "" {
		title = strings.TrimSpace(ogTitle)
	}

	content := c.selectContent(doc)

	lower := strings.ToLower(content + " " + title)
	if len(content) < 1500 {
		for _, marker := range paywallMarkers {
			if strings.Contains(lower, marker) {
				if submitOnPaywall {
					return c.paywalled(ctx, url)
				}
				return &models.ExtractionResult{Err: &models.ExtractionError{Kind: models.ExtractErrPaywall}}
			}
		}
	}

	if len(content) < minContentLength {
		return &models.ExtractionResult{Err: &models.ExtractionError{Kind: models.ExtractErrEmpty}}
	}

	return &models.ExtractionResult{
		Title:       title,
		Content:     content,
		Source:      extractSource(doc),
		PublishedAt: extractPublishedAt(doc),
	}
}

// paywalled submits the URL to the archive and returns the paid_subscription
// result. ArchiveSubmitted tells the pipeline whether the placeholder article
// should be persisted.
func (c *Client) paywalled(ctx context.Context, url string) *models.ExtractionResult {
	submitted := false
	if err := c.archive.Submit(ctx, url); err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Archive submission failed for paywalled URL")
	} else {
		submitted = true
	}
	return &models.ExtractionResult{
		ArchiveSubmitted: submitted,
		Err:              &models.ExtractionError{Kind: models.ExtractErrPaywall},
	}
}

func (c *Client) selectContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := collapseWhitespace(node.Text())
		if len(text) >= minContentLength {
			return text
		}
	}
	// Fall back to paragraph harvesting over the whole body.
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if len(t) > 40 {
			parts = append(parts, t)
		}
	})
	return collapseWhitespace(strings.Join(parts, "\n\n"))
}

func extractSource(doc *goquery.Document) string {
	if name, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

func extractPublishedAt(doc *goquery.Document) *time.Time {
	candidates := []string{
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	}
	for _, sel := range candidates {
		raw, ok := doc.Find(sel).Attr("content")
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
				return &ts
			}
		}
	}
	if raw, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return &ts
		}
	}
	return nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// Health probes a stable public page to confirm outbound fetching works.
func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.rest.R().SetContext(ctx).Get("https://example.com/")
	return err == nil && resp.StatusCode() == http.StatusOK
}

// Describe returns a short label for log lines.
func Describe(r *models.ExtractionResult) string {
	if r.Err == nil {
		return fmt.Sprintf("ok (%d chars)", len(r.Content))
	}
	return r.Err.Error()
}
