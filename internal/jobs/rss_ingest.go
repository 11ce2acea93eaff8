// -----------------------------------------------------------------------
// RSS Ingest Job - pulls configured feeds through the article pipeline
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// minItemContent is the floor below which a feed item's inline content is
// considered a stub and the full page is fetched instead.
const minItemContent = 200

type RSSIngestJob struct {
	meta
	feeds    interfaces.FeedStorage
	rss      interfaces.RSSService
	pipeline *pipeline.Pipeline
	logger   arbor.ILogger
}

func NewRSSIngestJob(feeds interfaces.FeedStorage, rss interfaces.RSSService, pl *pipeline.Pipeline, logger arbor.ILogger) *RSSIngestJob {
	return &RSSIngestJob{
		meta: meta{
			id:      "rss_ingest",
			name:    "RSS Ingest",
			trigger: interfaces.Trigger{Every: 30 * time.Minute},
			class:   interfaces.JobClassIngest,
		},
		feeds:    feeds,
		rss:      rss,
		pipeline: pl,
		logger:   logger,
	}
}

var _ interfaces.Job = (*RSSIngestJob)(nil)

func (j *RSSIngestJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("rss_ingest")

	feeds, err := j.feeds.EnabledFeeds(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("feeds", len(feeds)).Msg("Fetching enabled feeds")

	tally := counters{}
	junk := 0
	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}

		result, err := j.rss.Fetch(ctx, feed.URL)
		if err != nil {
			log.Warn().Err(err).Str("feed", feed.Name).Msg("Feed fetch failed, continuing")
			continue
		}
		junk += result.JunkFiltered

		for _, item := range result.Items {
			if ctx.Err() != nil {
				break
			}

			// Stub content forces a full fetch inside the pipeline.
			content := item.Content
			if len(strings.TrimSpace(content)) < minItemContent {
				content = ""
			}

			res := j.pipeline.Process(ctx, pipeline.Input{
				URL:         item.URL,
				Title:       item.Title,
				Content:     content,
				Source:      item.Source,
				PublishedAt: item.PublishedAt,
				Type:        models.ArticleTypeGeneral,
			})
			tally.add(res.Outcome)
			if res.Err != nil {
				log.Warn().Err(res.Err).Str("url", item.URL).Msg("Feed item failed")
			}
		}

		if err := j.feeds.TouchFetched(ctx, feed.ID); err != nil {
			log.Warn().Err(err).Str("feed", feed.Name).Msg("Failed to update last_fetched_at")
		}
	}

	log.Debug().Int("junk_filtered", junk).Msg("Feed junk filtering summary")
	logSummary(log, j.name, tally, started)
	return nil
}
