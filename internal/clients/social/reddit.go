// -----------------------------------------------------------------------
// Reddit Client - public JSON listings of whitelisted stock subreddits
// -----------------------------------------------------------------------

package social

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"golang.org/x/time/rate"
)

// maxRedditPosts caps the posts retained per ticker search; collection stops
// as soon as the cap is reached so later subreddits are skipped entirely.
const maxRedditPosts = 10

type RedditClient struct {
	rest       *resty.Client
	subreddits []string
	// Shared limiter: Reddit throttles aggressively below 2 s spacing, and
	// multiple jobs may hit this client concurrently.
	limiter *rate.Limiter
	logger  arbor.ILogger
}

var _ interfaces.RedditService = (*RedditClient)(nil)

func NewRedditClient(subreddits []string, logger arbor.ILogger) *RedditClient {
	rest := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "prospectus:sentiment-collector:v1.0 (research)")

	return &RedditClient{
		rest:       rest,
		subreddits: subreddits,
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:     logger,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Subreddit  string  `json:"subreddit"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Author     string  `json:"author"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// SearchTicker searches each whitelisted subreddit for posts mentioning the
// ticker. A post is kept only when the cashtag or the bare ticker appears as
// a standalone word, which keeps short tickers like "A" or "IT" from
// matching ordinary prose.
func (c *RedditClient) SearchTicker(ctx context.Context, ticker string) ([]models.RedditPost, error) {
	mention := mentionPattern(ticker)

	var posts []models.RedditPost
	for _, sub := range c.subreddits {
		if len(posts) >= maxRedditPosts {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return posts, err
		}

		var listing redditListing
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":           ticker,
				"restrict_sr": "1",
				"sort":        "new",
				"t":           "day",
				"limit":       "25",
			}).
			SetResult(&listing).
			Get(fmt.Sprintf("https://www.reddit.com/r/%s/search.json", sub))
		if err != nil {
			c.logger.Warn().Err(err).Str("subreddit", sub).Msg("Reddit search failed, continuing")
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			c.logger.Warn().Int("status", resp.StatusCode()).Str("subreddit", sub).Msg("Reddit search rejected, continuing")
			continue
		}

		for _, child := range listing.Data.Children {
			d := child.Data
			if !mention.MatchString(d.Title) && !mention.MatchString(d.Selftext) {
				continue
			}
			posts = append(posts, models.RedditPost{
				ID:        d.ID,
				Subreddit: d.Subreddit,
				Title:     d.Title,
				Body:      d.Selftext,
				Author:    d.Author,
				Score:     d.Score,
				CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
			})
			if len(posts) >= maxRedditPosts {
				break
			}
		}
	}

	c.logger.Debug().Str("ticker", ticker).Int("posts", len(posts)).Msg("Reddit search completed")
	return posts, nil
}

// mentionPattern matches $TICKER (any case) or the uppercase ticker as a
// whole word. The bare form stays case-sensitive so "IT" never matches the
// pronoun.
func mentionPattern(ticker string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.ToUpper(ticker))
	return regexp.MustCompile(`((?i:\$` + escaped + `)\b|\b` + escaped + `\b)`)
}
