// -----------------------------------------------------------------------
// Article Pipeline - the shared ingestion path for every news source
// Stateless: the only state it mutates lives in the store and the domain
// health tracker, so any number of jobs can run it concurrently.
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/domainhealth"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// Outcome classifies what the pipeline did with one article. Jobs aggregate
// outcomes into their end-of-run counter line.
type Outcome string

const (
	OutcomeSaved       Outcome = "saved"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeBlacklisted Outcome = "blacklisted"
	OutcomeNonMarket   Outcome = "non-market"
	OutcomePaywalled   Outcome = "paywalled"
	OutcomeBudget      Outcome = "budget-exhausted"
	OutcomeFailed      Outcome = "failed"
)

// embedContentLimit bounds what is sent to the embedding model.
const embedContentLimit = 6000

// Relevance scoring: every article starts at the base; owning an extracted
// ticker or matching an owned sector adds on top, clamped to 1.0.
const (
	relevanceBase        = 0.5
	relevanceOwnedTicker = 0.3
	relevanceOwnedSector = 0.2
)

// Input is one candidate article handed to the pipeline.
type Input struct {
	URL   string
	Title string
	// Content skips the extraction step when already present (RSS items,
	// archived HTML, PDFs).
	Content     string
	Source      string
	PublishedAt *time.Time
	Type        models.ArticleType
	// BaselineRelevance overrides the base score when > 0 (ETF sector
	// searches use 0.7, research reports 0.9).
	BaselineRelevance float64
	Fund              *string
}

// Result reports what happened to one input.
type Result struct {
	Outcome   Outcome
	ArticleID string
	Err       error
}

type Pipeline struct {
	articles      interfaces.ArticleStorage
	relationships interfaces.RelationshipStorage
	funds         interfaces.FundStorage
	llm           interfaces.LLMService
	extractor     interfaces.ExtractorService
	health        *domainhealth.Tracker
	budget        time.Duration
	logger        arbor.ILogger
}

func New(
	articles interfaces.ArticleStorage,
	relationships interfaces.RelationshipStorage,
	funds interfaces.FundStorage,
	llm interfaces.LLMService,
	extractor interfaces.ExtractorService,
	health *domainhealth.Tracker,
	budget time.Duration,
	logger arbor.ILogger,
) *Pipeline {
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	return &Pipeline{
		articles:      articles,
		relationships: relationships,
		funds:         funds,
		llm:           llm,
		extractor:     extractor,
		health:        health,
		budget:        budget,
		logger:        logger,
	}
}

// Process runs one article through the full ingestion path.
func (p *Pipeline) Process(ctx context.Context, in Input) Result {
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	log := p.logger.WithPrefix("pipeline")

	// 1. Blacklist.
	if p.health.IsBlacklisted(ctx, in.URL) {
		log.Debug().Str("url", in.URL).Msg("Skipping blacklisted domain")
		return Result{Outcome: OutcomeBlacklisted}
	}

	// 2. Duplicate.
	existing, err := p.articles.GetByURL(ctx, in.URL)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if existing != nil {
		return Result{Outcome: OutcomeDuplicate, ArticleID: existing.ID}
	}

	// 3/4. Extraction under the per-article budget.
	content, title, source, publishedAt := in.Content, in.Title, in.Source, in.PublishedAt
	if strings.TrimSpace(content) == "" {
		if budgetExhausted(ctx) {
			return Result{Outcome: OutcomeBudget}
		}
		extraction := p.extractor.Extract(ctx, in.URL)
		if extraction.Err != nil {
			return p.handleExtractionFailure(ctx, in, extraction)
		}
		p.health.RecordSuccess(ctx, in.URL)
		content = extraction.Content
		if extraction.Title != "" {
			title = extraction.Title
		}
		if extraction.Source != "" {
			source = extraction.Source
		}
		if extraction.PublishedAt != nil {
			publishedAt = extraction.PublishedAt
		}
	}

	// AI enrichment.
	if budgetExhausted(ctx) {
		return Result{Outcome: OutcomeBudget}
	}
	summary, err := p.llm.Summarize(ctx, content)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	// 5/6. Relevance gate and ticker validation.
	tickers := common.NormalizeTickers(summary.Tickers)
	if summary.MarketRelevance == models.NotMarketRelated && len(tickers) == 0 {
		log.Debug().Str("url", in.URL).Str("reason", summary.RelevanceReason).Msg("Skipping non-market article")
		return Result{Outcome: OutcomeNonMarket}
	}

	// 7. Embedding; nullable on failure.
	var embedding []float32
	if !budgetExhausted(ctx) {
		embedText := content
		if len(embedText) > embedContentLimit {
			embedText = embedText[:embedContentLimit]
		}
		embedding, err = p.llm.Embed(ctx, embedText)
		if err != nil {
			log.Warn().Err(err).Str("url", in.URL).Msg("Embedding failed, persisting without vector")
			embedding = nil
		}
	}

	// 8. Relevance score.
	owned, err := p.funds.OwnedTickers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Owned-ticker lookup failed, scoring with base only")
		owned = nil
	}
	sector := firstSector(summary.Sectors)
	base := relevanceBase
	if in.BaselineRelevance > 0 {
		base = in.BaselineRelevance
	}
	relevance := RelevanceScore(base, tickers, sector, owned)

	// 9. Persist.
	article := &models.Article{
		Title:          title,
		URL:            in.URL,
		Content:        content,
		Summary:        summary.Summary,
		Source:         source,
		PublishedAt:    publishedAt,
		Type:           articleType(in.Type),
		Tickers:        tickers,
		Sector:         sector,
		RelevanceScore: relevance,
		Embedding:      embedding,
		Claims:         summary.Claims,
		FactCheck:      summary.FactCheck,
		Conclusion:     summary.Conclusion,
		Sentiment:      summary.Sentiment,
		SentimentScore: summary.SentimentScore,
		LogicCheck:     summary.LogicCheck,
		Fund:           in.Fund,
	}
	id, err := p.articles.Save(ctx, article)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	// 10. Relationship extraction.
	p.saveRelationships(ctx, id, summary, log)

	log.Info().
		Str("url", in.URL).
		Str("article_id", id).
		Int("tickers", len(tickers)).
		Str("sentiment", string(summary.Sentiment)).
		Msg("Article saved")
	return Result{Outcome: OutcomeSaved, ArticleID: id}
}

func (p *Pipeline) handleExtractionFailure(ctx context.Context, in Input, extraction *models.ExtractionResult) Result {
	if extraction.Err.Kind == models.ExtractErrPaywall {
		if !extraction.ArchiveSubmitted {
			return Result{Outcome: OutcomePaywalled}
		}
		now := time.Now().UTC()
		article := &models.Article{
			Title:              in.Title,
			URL:                in.URL,
			Content:            models.PaywallPlaceholderSummary,
			Summary:            models.PaywallPlaceholderSummary,
			Source:             in.Source,
			PublishedAt:        in.PublishedAt,
			Type:               articleType(in.Type),
			RelevanceScore:     relevanceBase,
			ArchiveSubmittedAt: &now,
			Fund:               in.Fund,
		}
		id, err := p.articles.Save(ctx, article)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err}
		}
		p.logger.Info().Str("url", in.URL).Msg("Paywalled article submitted for archive")
		return Result{Outcome: OutcomePaywalled, ArticleID: id}
	}

	if p.health.RecordFailure(ctx, in.URL, extraction.Err.Error()) {
		return Result{Outcome: OutcomeBlacklisted, Err: extraction.Err}
	}
	return Result{Outcome: OutcomeFailed, Err: extraction.Err}
}

// RunAIPortion re-runs summarization and embedding on an existing article's
// new content. Used by the archive retry job after an archived copy lands.
func (p *Pipeline) RunAIPortion(ctx context.Context, article *models.Article) error {
	summary, err := p.llm.Summarize(ctx, article.Content)
	if err != nil {
		return err
	}

	article.Summary = summary.Summary
	article.Tickers = common.NormalizeTickers(summary.Tickers)
	article.Sector = firstSector(summary.Sectors)
	article.Claims = summary.Claims
	article.FactCheck = summary.FactCheck
	article.Conclusion = summary.Conclusion
	article.Sentiment = summary.Sentiment
	article.SentimentScore = summary.SentimentScore
	article.LogicCheck = summary.LogicCheck

	embedText := article.Content
	if len(embedText) > embedContentLimit {
		embedText = embedText[:embedContentLimit]
	}
	embedding, err := p.llm.Embed(ctx, embedText)
	if err != nil {
		p.logger.Warn().Err(err).Str("article_id", article.ID).Msg("Embedding failed during archive re-run")
	} else {
		article.Embedding = embedding
	}
	return nil
}

func (p *Pipeline) saveRelationships(ctx context.Context, articleID string, summary *models.SummaryResult, log arbor.ILogger) {
	if summary.LogicCheck == models.LogicCheckHypeDetected {
		return
	}

	confidence := 0.4
	if summary.LogicCheck == models.LogicCheckDataBacked {
		confidence = 0.8
	}

	for _, triple := range summary.Relationships {
		source, target, relType, ok := NormalizeTriple(triple)
		if !ok {
			continue
		}
		rel := &models.Relationship{
			SourceTicker:    source,
			TargetTicker:    target,
			Type:            relType,
			Confidence:      confidence,
			SourceArticleID: articleID,
			DetectedAt:      time.Now().UTC(),
		}
		if err := p.relationships.Save(ctx, rel); err != nil {
			log.Warn().Err(err).
				Str("source", source).
				Str("target", target).
				Msg("Failed to save relationship")
		}
	}
}

// RelevanceScore computes the deterministic article relevance from the
// extracted tickers, the article sector and the owned-ticker map.
func RelevanceScore(base float64, tickers []string, sector string, owned map[string]string) float64 {
	score := base

	for _, t := range tickers {
		if _, ok := owned[t]; ok {
			score += relevanceOwnedTicker
			break
		}
	}

	if sector != "" {
		for _, ownedSector := range owned {
			if strings.EqualFold(sector, ownedSector) {
				score += relevanceOwnedSector
				break
			}
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// NormalizeTriple canonicalizes a relationship to Supplier → Buyer direction
// and validates both tickers. Inverse types are reversed rather than dropped.
func NormalizeTriple(t models.RelationshipTriple) (source, target, relType string, ok bool) {
	source = strings.ToUpper(strings.TrimSpace(t.Source))
	target = strings.ToUpper(strings.TrimSpace(t.Target))
	relType = strings.ToUpper(strings.TrimSpace(t.Type))

	if !common.IsValidTicker(source) || !common.IsValidTicker(target) || source == target {
		return "", "", "", false
	}

	switch relType {
	case "SUPPLIED_BY", "BUYS_FROM":
		source, target = target, source
		relType = "SUPPLIES"
	case "SUPPLIER", "SELLS_TO":
		relType = "SUPPLIES"
	case "":
		return "", "", "", false
	}
	return source, target, relType, true
}

func budgetExhausted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func firstSector(sectors []string) string {
	for _, s := range sectors {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func articleType(t models.ArticleType) models.ArticleType {
	if t == "" {
		return models.ArticleTypeGeneral
	}
	return t
}
