// -----------------------------------------------------------------------
// Anti-Bot Client - routes requests through a challenge-solving proxy
// Falls back to direct HTTP whenever the proxy is down or errors, so a
// missing proxy degrades to best-effort fetching instead of failing jobs.
// -----------------------------------------------------------------------

package antibot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/clients/llm"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// The proxy does its own waiting on challenge pages, so its timeout sits
// above the per-request maxTimeout it is given.
const (
	proxyTimeout   = 70 * time.Second
	requestTimeout = 60000 // milliseconds, passed to the proxy
)

type Client struct {
	proxyURL string
	rest     *resty.Client
	direct   *resty.Client
	logger   arbor.ILogger
}

var _ interfaces.AntiBotService = (*Client)(nil)

func NewClient(proxyURL string, logger arbor.ILogger) *Client {
	return &Client{
		proxyURL: strings.TrimRight(proxyURL, "/"),
		rest:     resty.New().SetTimeout(proxyTimeout),
		direct: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
		logger: logger,
	}
}

type proxyRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type proxyResponse struct {
	Status   string `json:"status"`
	Solution struct {
		Status   int    `json:"status"`
		Response string `json:"response"`
	} `json:"solution"`
}

// FetchJSON fetches a URL through the proxy and returns the JSON payload.
// The proxy wraps responses in HTML, so the body is accepted either as raw
// JSON or as the first balanced {…} block inside the returned markup.
func (c *Client) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	if c.proxyURL != "" {
		payload, err := c.fetchViaProxy(ctx, url)
		if err == nil {
			return payload, nil
		}
		c.logger.Debug().Err(err).Str("url", url).Msg("Proxy fetch failed, falling back to direct")
	}
	return c.fetchDirect(ctx, url)
}

func (c *Client) fetchViaProxy(ctx context.Context, url string) ([]byte, error) {
	var out proxyResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(proxyRequest{Cmd: "request.get", URL: url, MaxTimeout: requestTimeout}).
		SetResult(&out).
		Post(c.proxyURL + "/v1")
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || out.Status != "ok" {
		return nil, fmt.Errorf("proxy returned status %d (%s)", resp.StatusCode(), out.Status)
	}
	if out.Solution.Status >= 400 {
		return nil, fmt.Errorf("target returned status %d via proxy", out.Solution.Status)
	}
	return extractJSONPayload(out.Solution.Response)
}

func (c *Client) fetchDirect(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.direct.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("direct fetch failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("direct fetch returned status %d", resp.StatusCode())
	}
	return extractJSONPayload(string(resp.Body()))
}

// extractJSONPayload accepts a raw JSON document or HTML wrapping one.
func extractJSONPayload(body string) ([]byte, error) {
	trimmed := strings.TrimSpace(body)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	block, ok := llm.FirstJSONBlock(trimmed)
	if !ok {
		return nil, fmt.Errorf("response contains no JSON payload")
	}
	if !json.Valid([]byte(block)) {
		return nil, fmt.Errorf("extracted block is not valid JSON")
	}
	return []byte(block), nil
}

func (c *Client) Health(ctx context.Context) bool {
	if c.proxyURL == "" {
		return false
	}
	resp, err := c.rest.R().SetContext(ctx).Get(c.proxyURL + "/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}
