// -----------------------------------------------------------------------
// StockTwits Client - symbol stream reader
// The public API sits behind a bot-challenge CDN, so requests route
// through the anti-bot proxy with direct HTTP as fallback.
// -----------------------------------------------------------------------

package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type StockTwitsClient struct {
	antibot interfaces.AntiBotService
	logger  arbor.ILogger
}

var _ interfaces.StockTwitsService = (*StockTwitsClient)(nil)

func NewStockTwitsClient(antibot interfaces.AntiBotService, logger arbor.ILogger) *StockTwitsClient {
	return &StockTwitsClient{antibot: antibot, logger: logger}
}

type stocktwitsStream struct {
	Messages []struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Entities struct {
			Sentiment *struct {
				Basic string `json:"basic"`
			} `json:"sentiment"`
		} `json:"entities"`
		CreatedAt string `json:"created_at"`
	} `json:"messages"`
}

// RecentPosts returns the symbol stream for a ticker. Sentiment labels are
// the poster's own tags; unlabeled posts come through with an empty Label.
func (c *StockTwitsClient) RecentPosts(ctx context.Context, ticker string) ([]models.StockTwitsPost, error) {
	url := fmt.Sprintf("https://api.stocktwits.com/api/2/streams/symbol/%s.json", ticker)

	payload, err := c.antibot.FetchJSON(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("stocktwits fetch failed for %s: %w", ticker, err)
	}

	var stream stocktwitsStream
	if err := json.Unmarshal(payload, &stream); err != nil {
		return nil, fmt.Errorf("failed to decode stocktwits stream: %w", err)
	}

	posts := make([]models.StockTwitsPost, 0, len(stream.Messages))
	for _, msg := range stream.Messages {
		post := models.StockTwitsPost{
			ID:     msg.ID,
			Body:   msg.Body,
			Author: msg.User.Username,
		}
		if msg.Entities.Sentiment != nil {
			post.Label = msg.Entities.Sentiment.Basic
		}
		if ts, err := time.Parse("2006-01-02T15:04:05Z", msg.CreatedAt); err == nil {
			post.CreatedAt = ts
		}
		posts = append(posts, post)
	}

	c.logger.Debug().Str("ticker", ticker).Int("posts", len(posts)).Msg("Fetched StockTwits stream")
	return posts, nil
}
