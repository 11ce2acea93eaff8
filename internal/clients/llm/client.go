// -----------------------------------------------------------------------
// LLM Client - Typed wrapper around the local model service
// Speaks the streaming generate/embeddings wire contract and assembles
// chunked responses into complete outputs.
// -----------------------------------------------------------------------

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// Client talks to the model service. Requests stream JSON chunks; the
// concatenation of every chunk's "response" field is the full output.
type Client struct {
	endpoint       string
	defaultModel   string
	summarizeModel string
	embedModel     string
	temperature    float64
	httpClient     *http.Client
	logger         arbor.ILogger
}

// Compile-time assertion
var _ interfaces.LLMService = (*Client)(nil)

// NewClient creates an LLM client from configuration.
func NewClient(cfg *common.LLMConfig, logger arbor.ILogger) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}

	summarizeModel := cfg.SummarizeModel
	if summarizeModel == "" {
		summarizeModel = cfg.DefaultModel
	}

	return &Client{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		defaultModel:   cfg.DefaultModel,
		summarizeModel: summarizeModel,
		embedModel:     cfg.EmbedModel,
		temperature:    cfg.Temperature,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

// generateRequest is the wire format of the generate endpoint.
type generateRequest struct {
	Prompt  string          `json:"prompt"`
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateChunk is one streamed response fragment.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete runs a completion and returns the assembled output text.
func (c *Client) Complete(ctx context.Context, prompt, system string, jsonMode bool, temperature float64) (string, error) {
	req := generateRequest{
		Prompt:  prompt,
		Model:   c.defaultModel,
		System:  system,
		Stream:  true,
		Options: generateOptions{Temperature: temperature},
	}
	if jsonMode {
		req.Format = "json"
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("LLM generate call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM generate returned status %d", resp.StatusCode)
	}

	// Each line is a JSON chunk; concatenate the response fields.
	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Debug().Str("line", string(line)).Msg("Skipping unparseable stream chunk")
			continue
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read LLM stream: %w", err)
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("empty response from LLM")
	}
	return out.String(), nil
}

const summarizeSystem = `You are a financial news analyst. Respond with a single JSON object only - no prose, no markdown fences. Mark any ticker you are not certain about with a trailing question mark.`

const summarizeSchema = `{
  "summary": "2-3 sentence summary",
  "tickers": ["TICKER", "UNCERTAIN?"],
  "sectors": ["sector names"],
  "claims": ["factual claims made by the article"],
  "fact_check": "assessment of the claims",
  "conclusion": "investment-relevant conclusion",
  "sentiment": "very_bullish|bullish|neutral|bearish|very_bearish",
  "sentiment_score": -2.0,
  "logic_check": "data_backed|hype_detected|neutral",
  "market_relevance": "market_related|not_market_related",
  "relevance_reason": "why",
  "relationships": [{"source": "SUPPLIER", "target": "BUYER", "type": "SUPPLIES"}],
  "key_themes": ["themes"]
}`

// Summarize runs the structured article-summary prompt and parses the result.
func (c *Client) Summarize(ctx context.Context, text string) (*models.SummaryResult, error) {
	prompt := fmt.Sprintf("Analyze this article and respond with JSON matching exactly this schema:\n%s\n\nArticle:\n%s", summarizeSchema, text)

	raw, err := c.generate(ctx, generateRequest{
		Prompt:  prompt,
		Model:   c.summarizeModel,
		System:  summarizeSystem,
		Stream:  true,
		Format:  "json",
		Options: generateOptions{Temperature: c.temperature},
	})
	if err != nil {
		return nil, err
	}

	var result models.SummaryResult
	if err := ExtractJSON(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse summary output: %w", err)
	}

	// Keep the numeric score consistent with the label when the model
	// returns a score outside the label's band.
	if result.SentimentScore < -2 || result.SentimentScore > 2 {
		result.SentimentScore = result.Sentiment.Score()
	}
	return &result, nil
}

// embedRequest is the wire format of the embeddings endpoint.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for the text. The model's declared
// dimension is enforced so a misconfigured model never poisons the store.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("LLM embed call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM embed returned status %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(er.Embedding) != models.EmbeddingDim {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(er.Embedding), models.EmbeddingDim)
	}
	return er.Embedding, nil
}

// Health reports whether the model service answers.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
