// -----------------------------------------------------------------------
// Article Store - research-store persistence for AI-enriched articles
// Upserts are keyed by URL so every ingestion path is idempotent.
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type ArticleStore struct {
	db     *sqlx.DB
	logger arbor.ILogger

	// Older deployments carry a singular text "ticker" column instead of the
	// "tickers" array. Probed once on first use.
	probeOnce    sync.Once
	legacyTicker bool
}

var _ interfaces.ArticleStorage = (*ArticleStore)(nil)

func NewArticleStore(db *sqlx.DB, logger arbor.ILogger) *ArticleStore {
	return &ArticleStore{db: db, logger: logger}
}

// articleRow is the scan target; array and vector columns need adapters.
type articleRow struct {
	models.Article
	TickersArr pq.StringArray `db:"tickers"`
	ClaimsArr  pq.StringArray `db:"claims"`
	ArchiveURL sql.NullString `db:"archive_url"`
	Embedding  sql.NullString `db:"embedding"`
}

func (r *articleRow) toArticle() (models.Article, error) {
	a := r.Article
	a.Tickers = []string(r.TickersArr)
	a.Claims = []string(r.ClaimsArr)
	if r.ArchiveURL.Valid {
		a.ArchiveURL = r.ArchiveURL.String
	}
	if r.Embedding.Valid && r.Embedding.String != "" {
		vec, err := parseVector(r.Embedding.String)
		if err != nil {
			return a, err
		}
		a.Embedding = vec
	}
	return a, nil
}

// useLegacyTicker reports whether this schema predates the tickers array.
func (s *ArticleStore) useLegacyTicker(ctx context.Context) bool {
	s.probeOnce.Do(func() {
		var exists bool
		err := s.db.GetContext(ctx, &exists,
			`SELECT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'articles' AND column_name = 'tickers'
			)`)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Schema probe failed, assuming tickers array column")
			return
		}
		s.legacyTicker = !exists
		if s.legacyTicker {
			s.logger.Info().Msg("Articles table uses legacy singular ticker column")
		}
	})
	return s.legacyTicker
}

func (s *ArticleStore) tickersColumn(ctx context.Context) string {
	if s.useLegacyTicker(ctx) {
		return "string_to_array(COALESCE(ticker, ''), ',') AS tickers"
	}
	return "tickers"
}

const articleColumns = `id, title, url, content, summary, source, published_at, fetched_at,
	article_type, sector, relevance_score, claims, fact_check, conclusion,
	sentiment, sentiment_score, logic_check, fund,
	archive_submitted_at, archive_checked_at, archive_url, embedding::text AS embedding`

// GetByURL returns the article with the given URL, or nil when absent.
func (s *ArticleStore) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s, %s FROM articles WHERE url = $1`,
		articleColumns, s.tickersColumn(ctx))

	var row articleRow
	if err := s.db.GetContext(ctx, &row, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load article by url: %w", err)
	}

	article, err := row.toArticle()
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// Save upserts by URL and returns the row id. New rows get a generated UUID;
// updates refresh the AI-derived fields and fetched_at but keep the id.
func (s *ArticleStore) Save(ctx context.Context, article *models.Article) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.FetchedAt.IsZero() {
		article.FetchedAt = time.Now().UTC()
	}

	var embedding any
	if len(article.Embedding) > 0 {
		embedding = formatVector(article.Embedding)
	}

	legacy := s.useLegacyTicker(ctx)
	tickersCol, tickersVal := "tickers", any(pq.StringArray(article.Tickers))
	if legacy {
		tickersCol, tickersVal = "ticker", any(joinTickers(article.Tickers))
	}

	query := fmt.Sprintf(`
		INSERT INTO articles (
			id, title, url, content, summary, source, published_at, fetched_at,
			article_type, %s, sector, relevance_score, claims, fact_check,
			conclusion, sentiment, sentiment_score, logic_check, fund,
			archive_submitted_at, archive_checked_at, archive_url, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21, NULLIF($22, ''), $23::vector
		)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			fetched_at = EXCLUDED.fetched_at,
			%s = EXCLUDED.%s,
			sector = EXCLUDED.sector,
			relevance_score = EXCLUDED.relevance_score,
			claims = EXCLUDED.claims,
			fact_check = EXCLUDED.fact_check,
			conclusion = EXCLUDED.conclusion,
			sentiment = EXCLUDED.sentiment,
			sentiment_score = EXCLUDED.sentiment_score,
			logic_check = EXCLUDED.logic_check,
			embedding = COALESCE(EXCLUDED.embedding, articles.embedding)
		RETURNING id`, tickersCol, tickersCol, tickersCol)

	var id string
	err := s.db.QueryRowxContext(ctx, query,
		article.ID, article.Title, article.URL, article.Content, article.Summary,
		article.Source, article.PublishedAt, article.FetchedAt,
		article.Type, tickersVal, article.Sector, article.RelevanceScore,
		pq.StringArray(article.Claims), article.FactCheck,
		article.Conclusion, article.Sentiment, article.SentimentScore,
		article.LogicCheck, article.Fund,
		article.ArchiveSubmittedAt, article.ArchiveCheckedAt, article.ArchiveURL,
		embedding,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save article: %w", err)
	}

	article.ID = id
	return id, nil
}

// UpdateContent replaces content-derived fields on an existing article. Used
// by the archive retry path; the row id never changes.
func (s *ArticleStore) UpdateContent(ctx context.Context, article *models.Article) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var embedding any
	if len(article.Embedding) > 0 {
		embedding = formatVector(article.Embedding)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET
			title = $2,
			content = $3,
			summary = $4,
			sentiment = $5,
			sentiment_score = $6,
			logic_check = $7,
			fact_check = $8,
			conclusion = $9,
			embedding = COALESCE($10::vector, embedding),
			archive_url = NULLIF($11, ''),
			archive_checked_at = NOW()
		WHERE id = $1`,
		article.ID, article.Title, article.Content, article.Summary,
		article.Sentiment, article.SentimentScore, article.LogicCheck,
		article.FactCheck, article.Conclusion, embedding, article.ArchiveURL)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %s not found", article.ID)
	}
	return nil
}

// MarkArchiveChecked records an availability check. Empty archiveURL means
// the archived copy is still missing or paywalled.
func (s *ArticleStore) MarkArchiveChecked(ctx context.Context, id string, archiveURL string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE articles SET
			archive_checked_at = NOW(),
			archive_url = NULLIF($2, '')
		WHERE id = $1`, id, archiveURL)
	if err != nil {
		return fmt.Errorf("failed to mark archive checked: %w", err)
	}
	return nil
}

// PendingArchive lists articles submitted to the archive at least minAge ago
// with no archive URL yet.
func (s *ArticleStore) PendingArchive(ctx context.Context, minAge time.Duration) ([]models.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s, %s FROM articles
		WHERE archive_submitted_at IS NOT NULL
		  AND archive_submitted_at <= NOW() - $1::interval
		  AND archive_url IS NULL
		ORDER BY archive_submitted_at ASC`,
		articleColumns, s.tickersColumn(ctx))

	interval := fmt.Sprintf("%d seconds", int(minAge.Seconds()))
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, interval); err != nil {
		return nil, fmt.Errorf("failed to list pending-archive articles: %w", err)
	}

	articles := make([]models.Article, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toArticle()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// SearchSimilar runs a cosine-similarity query over article embeddings.
func (s *ArticleStore) SearchSimilar(ctx context.Context, embedding []float32, minSimilarity float64, limit int) ([]interfaces.ArticleMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s, %s, 1 - (embedding <=> $1::vector) AS similarity
		FROM articles
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		articleColumns, s.tickersColumn(ctx))

	type matchRow struct {
		articleRow
		Similarity float64 `db:"similarity"`
	}

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, query, formatVector(embedding), minSimilarity, limit); err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	matches := make([]interfaces.ArticleMatch, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toArticle()
		if err != nil {
			return nil, err
		}
		matches = append(matches, interfaces.ArticleMatch{Article: a, Similarity: rows[i].Similarity})
	}
	return matches, nil
}

func joinTickers(tickers []string) string {
	return strings.Join(tickers, ",")
}
