// -----------------------------------------------------------------------
// Archive Retry Job - completes paywalled articles from archive copies
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// archiveMinAge gives the archive time to finish its capture before the
// first availability check.
const archiveMinAge = 5 * time.Minute

type ArchiveRetryJob struct {
	meta
	articles  interfaces.ArticleStorage
	archive   interfaces.ArchiveService
	extractor interfaces.ExtractorService
	pipeline  *pipeline.Pipeline
	logger    arbor.ILogger
}

func NewArchiveRetryJob(
	articles interfaces.ArticleStorage,
	archive interfaces.ArchiveService,
	extractor interfaces.ExtractorService,
	pl *pipeline.Pipeline,
	logger arbor.ILogger,
) *ArchiveRetryJob {
	return &ArchiveRetryJob{
		meta: meta{
			id:      "archive_retry",
			name:    "Archive Retry",
			trigger: interfaces.Trigger{Every: 10 * time.Minute},
			class:   interfaces.JobClassIngest,
		},
		articles:  articles,
		archive:   archive,
		extractor: extractor,
		pipeline:  pl,
		logger:    logger,
	}
}

var _ interfaces.Job = (*ArchiveRetryJob)(nil)

func (j *ArchiveRetryJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("archive_retry")

	pending, err := j.articles.PendingArchive(ctx, archiveMinAge)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	log.Info().Int("pending", len(pending)).Msg("Checking archive availability")

	tally := counters{}
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		j.retryOne(ctx, &pending[i], tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *ArchiveRetryJob) retryOne(ctx context.Context, article *models.Article, tally counters, log arbor.ILogger) {
	archiveURL, ok, err := j.archive.CheckAvailable(ctx, article.URL)
	if err != nil {
		log.Warn().Err(err).Str("url", article.URL).Msg("Availability check failed, will retry next run")
		tally.add(pipeline.OutcomeFailed)
		return
	}
	if !ok {
		// Capture not ready yet; leave the row untouched so it is retried.
		tally.add(pipeline.OutcomeBudget)
		return
	}

	html, err := j.archive.FetchArchived(ctx, archiveURL)
	if err != nil {
		log.Warn().Err(err).Str("archive_url", archiveURL).Msg("Archived fetch failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	extraction := j.extractor.ExtractFromHTML(html, article.URL)
	if extraction.Err != nil {
		if extraction.Err.Kind == models.ExtractErrPaywall {
			// Even the archived copy is gated. Record the check and stop
			// retrying this article.
			if err := j.articles.MarkArchiveChecked(ctx, article.ID, ""); err != nil {
				log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to mark archive check")
			}
			tally.add(pipeline.OutcomePaywalled)
			return
		}
		log.Warn().Str("url", article.URL).Str("error", extraction.Err.Error()).Msg("Archived extraction failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	article.Content = extraction.Content
	if extraction.Title != "" {
		article.Title = extraction.Title
	}
	article.ArchiveURL = archiveURL

	if err := j.pipeline.RunAIPortion(ctx, article); err != nil {
		log.Warn().Err(err).Str("article_id", article.ID).Msg("AI re-run failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	if err := j.articles.UpdateContent(ctx, article); err != nil {
		log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to update article")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	log.Info().
		Str("article_id", article.ID).
		Str("archive_url", archiveURL).
		Int("chars", len(article.Content)).
		Msg("Paywalled article completed from archive")
	tally.add(pipeline.OutcomeSaved)
}
