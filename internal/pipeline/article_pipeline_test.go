package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/domainhealth"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// ---- fakes -------------------------------------------------------------

type fakeArticles struct {
	byURL map[string]*models.Article
	saved []*models.Article
}

func newFakeArticles() *fakeArticles {
	return &fakeArticles{byURL: map[string]*models.Article{}}
}

func (f *fakeArticles) GetByURL(_ context.Context, url string) (*models.Article, error) {
	return f.byURL[url], nil
}

func (f *fakeArticles) Save(_ context.Context, a *models.Article) (string, error) {
	if existing, ok := f.byURL[a.URL]; ok {
		a.ID = existing.ID
	} else if a.ID == "" {
		a.ID = fmt.Sprintf("art-%d", len(f.saved)+1)
	}
	copied := *a
	f.byURL[a.URL] = &copied
	f.saved = append(f.saved, &copied)
	return a.ID, nil
}

func (f *fakeArticles) UpdateContent(context.Context, *models.Article) error   { return nil }
func (f *fakeArticles) MarkArchiveChecked(context.Context, string, string) error { return nil }
func (f *fakeArticles) PendingArchive(context.Context, time.Duration) ([]models.Article, error) {
	return nil, nil
}
func (f *fakeArticles) SearchSimilar(context.Context, []float32, float64, int) ([]interfaces.ArticleMatch, error) {
	return nil, nil
}

type fakeRelationships struct {
	saved []models.Relationship
}

func (f *fakeRelationships) Save(_ context.Context, rel *models.Relationship) error {
	f.saved = append(f.saved, *rel)
	return nil
}

type fakeFunds struct {
	owned map[string]string
}

func (f *fakeFunds) OwnedTickers(context.Context) (map[string]string, error) { return f.owned, nil }
func (f *fakeFunds) ActivePositions(context.Context) ([]models.Position, error) {
	return nil, nil
}

type fakeLLM struct {
	summary *models.SummaryResult
	embed   []float32
}

func (f *fakeLLM) Summarize(context.Context, string) (*models.SummaryResult, error) {
	return f.summary, nil
}
func (f *fakeLLM) Embed(context.Context, string) ([]float32, error) { return f.embed, nil }
func (f *fakeLLM) Complete(context.Context, string, string, bool, float64) (string, error) {
	return "", nil
}
func (f *fakeLLM) Health(context.Context) bool { return true }

type fakeExtractor struct {
	result *models.ExtractionResult
}

func (f *fakeExtractor) Extract(context.Context, string) *models.ExtractionResult { return f.result }
func (f *fakeExtractor) ExtractFromHTML(string, string) *models.ExtractionResult  { return f.result }
func (f *fakeExtractor) Health(context.Context) bool                              { return true }

type fakeHealthStore struct {
	counts      map[string]int
	blacklisted map[string]bool
}

func newFakeHealthStore() *fakeHealthStore {
	return &fakeHealthStore{counts: map[string]int{}, blacklisted: map[string]bool{}}
}

func (f *fakeHealthStore) RecordSuccess(_ context.Context, d string) error {
	f.counts[d] = 0
	return nil
}
func (f *fakeHealthStore) RecordFailure(_ context.Context, d, _ string) (int, error) {
	f.counts[d]++
	return f.counts[d], nil
}
func (f *fakeHealthStore) Get(context.Context, string) (*models.DomainHealthRecord, error) {
	return nil, nil
}
func (f *fakeHealthStore) SetBlacklisted(_ context.Context, d string) error {
	f.blacklisted[d] = true
	return nil
}
func (f *fakeHealthStore) IsBlacklisted(_ context.Context, d string) (bool, error) {
	return f.blacklisted[d], nil
}

// ---- helpers -----------------------------------------------------------

func marketSummary() *models.SummaryResult {
	return &models.SummaryResult{
		Summary:         "Chipmaker beats estimates.",
		Tickers:         []string{"NVDA", "AMD?", "nvda"},
		Sectors:         []string{"Technology"},
		Sentiment:       models.SentimentBullish,
		SentimentScore:  1,
		LogicCheck:      models.LogicCheckDataBacked,
		MarketRelevance: models.MarketRelated,
	}
}

func newTestPipeline(articles *fakeArticles, rels *fakeRelationships, funds *fakeFunds, llm *fakeLLM, ext *fakeExtractor, health *fakeHealthStore) *Pipeline {
	logger := common.GetLogger()
	tracker := domainhealth.NewTracker(health, 4, logger)
	return New(articles, rels, funds, llm, ext, tracker, 5*time.Minute, logger)
}

// ---- tests -------------------------------------------------------------

func TestProcessSavesMarketArticle(t *testing.T) {
	articles := newFakeArticles()
	rels := &fakeRelationships{}
	funds := &fakeFunds{owned: map[string]string{"NVDA": "Technology"}}
	llm := &fakeLLM{summary: marketSummary(), embed: make([]float32, models.EmbeddingDim)}
	ext := &fakeExtractor{result: &models.ExtractionResult{
		Title:   "NVDA beats",
		Content: "Long article body about record data center revenue.",
	}}
	p := newTestPipeline(articles, rels, funds, llm, ext, newFakeHealthStore())

	res := p.Process(context.Background(), Input{
		URL:  "https://news.example.com/nvda",
		Type: models.ArticleTypeMarketNews,
	})

	require.Equal(t, OutcomeSaved, res.Outcome)
	require.Len(t, articles.saved, 1)
	saved := articles.saved[0]

	// Uncertain ("AMD?") and duplicate tickers are dropped.
	assert.Equal(t, []string{"NVDA"}, saved.Tickers)
	// Base 0.5 + owned ticker 0.3 + owned sector 0.2 = 1.0.
	assert.InDelta(t, 1.0, saved.RelevanceScore, 1e-9)
	assert.Len(t, saved.Embedding, models.EmbeddingDim)
}

func TestProcessSkipsDuplicates(t *testing.T) {
	articles := newFakeArticles()
	articles.byURL["https://news.example.com/dup"] = &models.Article{ID: "existing-1"}
	p := newTestPipeline(articles, &fakeRelationships{}, &fakeFunds{}, &fakeLLM{}, &fakeExtractor{}, newFakeHealthStore())

	res := p.Process(context.Background(), Input{URL: "https://news.example.com/dup"})
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, "existing-1", res.ArticleID)
	assert.Empty(t, articles.saved)
}

func TestProcessSkipsBlacklistedDomain(t *testing.T) {
	health := newFakeHealthStore()
	health.blacklisted["badsite.com"] = true
	articles := newFakeArticles()
	p := newTestPipeline(articles, &fakeRelationships{}, &fakeFunds{}, &fakeLLM{}, &fakeExtractor{}, health)

	res := p.Process(context.Background(), Input{URL: "https://www.badsite.com/story"})
	assert.Equal(t, OutcomeBlacklisted, res.Outcome)
	assert.Empty(t, articles.saved)
}

func TestProcessPersistsPaywallPlaceholder(t *testing.T) {
	articles := newFakeArticles()
	ext := &fakeExtractor{result: &models.ExtractionResult{
		ArchiveSubmitted: true,
		Err:              &models.ExtractionError{Kind: models.ExtractErrPaywall},
	}}
	p := newTestPipeline(articles, &fakeRelationships{}, &fakeFunds{}, &fakeLLM{}, ext, newFakeHealthStore())

	res := p.Process(context.Background(), Input{
		URL:   "https://paid.example.com/story",
		Title: "Exclusive report",
	})

	require.Equal(t, OutcomePaywalled, res.Outcome)
	require.Len(t, articles.saved, 1)
	saved := articles.saved[0]
	assert.Equal(t, models.PaywallPlaceholderSummary, saved.Summary)
	assert.Equal(t, models.PaywallPlaceholderSummary, saved.Content)
	assert.NotNil(t, saved.ArchiveSubmittedAt)
}

func TestProcessSkipsPaywallWithoutArchiveSubmission(t *testing.T) {
	articles := newFakeArticles()
	ext := &fakeExtractor{result: &models.ExtractionResult{
		Err: &models.ExtractionError{Kind: models.ExtractErrPaywall},
	}}
	p := newTestPipeline(articles, &fakeRelationships{}, &fakeFunds{}, &fakeLLM{}, ext, newFakeHealthStore())

	res := p.Process(context.Background(), Input{URL: "https://paid.example.com/story"})
	assert.Equal(t, OutcomePaywalled, res.Outcome)
	assert.Empty(t, articles.saved)
}

func TestProcessNonMarketGate(t *testing.T) {
	summary := &models.SummaryResult{
		Summary:         "Celebrity gossip.",
		MarketRelevance: models.NotMarketRelated,
	}
	articles := newFakeArticles()
	p := newTestPipeline(articles, &fakeRelationships{}, &fakeFunds{}, &fakeLLM{summary: summary}, &fakeExtractor{}, newFakeHealthStore())

	res := p.Process(context.Background(), Input{
		URL:     "https://news.example.com/gossip",
		Content: "Nothing about markets here.",
	})
	assert.Equal(t, OutcomeNonMarket, res.Outcome)
	assert.Empty(t, articles.saved)
}

func TestProcessExtractionFailureRecordsDomainHealth(t *testing.T) {
	health := newFakeHealthStore()
	health.counts["slowsite.com"] = 3
	ext := &fakeExtractor{result: &models.ExtractionResult{
		Err: &models.ExtractionError{Kind: models.ExtractErrTimeout},
	}}
	p := newTestPipeline(newFakeArticles(), &fakeRelationships{}, &fakeFunds{}, &fakeLLM{}, ext, health)

	// Fourth consecutive failure blacklists the domain.
	res := p.Process(context.Background(), Input{URL: "https://slowsite.com/a"})
	assert.Equal(t, OutcomeBlacklisted, res.Outcome)
	assert.True(t, health.blacklisted["slowsite.com"])
}

func TestProcessSkipsRelationshipsOnHype(t *testing.T) {
	summary := marketSummary()
	summary.LogicCheck = models.LogicCheckHypeDetected
	summary.Relationships = []models.RelationshipTriple{
		{Source: "TSMC", Target: "NVDA", Type: "SUPPLIES"},
	}
	rels := &fakeRelationships{}
	p := newTestPipeline(newFakeArticles(), rels, &fakeFunds{}, &fakeLLM{summary: summary}, &fakeExtractor{}, newFakeHealthStore())

	res := p.Process(context.Background(), Input{
		URL:     "https://news.example.com/hype",
		Content: "Pure hype piece.",
	})
	assert.Equal(t, OutcomeSaved, res.Outcome)
	assert.Empty(t, rels.saved)
}

func TestRelevanceScore(t *testing.T) {
	owned := map[string]string{"NVDA": "Technology", "XOM": "Energy"}

	tests := []struct {
		name    string
		base    float64
		tickers []string
		sector  string
		want    float64
	}{
		{"base only", 0.5, []string{"KO"}, "Consumer Staples", 0.5},
		{"owned ticker", 0.5, []string{"NVDA"}, "", 0.8},
		{"owned sector only", 0.5, []string{"AMD"}, "Technology", 0.7},
		{"ticker and sector clamp", 0.5, []string{"NVDA"}, "Energy", 1.0},
		{"etf baseline", 0.7, nil, "", 0.7},
		{"no owned set", 0.5, []string{"NVDA"}, "Technology", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ownedSet := owned
			if tt.name == "no owned set" {
				ownedSet = nil
			}
			assert.InDelta(t, tt.want, RelevanceScore(tt.base, tt.tickers, tt.sector, ownedSet), 1e-9)
		})
	}
}

func TestNormalizeTriple(t *testing.T) {
	t.Run("canonical direction kept", func(t *testing.T) {
		s, tgt, typ, ok := NormalizeTriple(models.RelationshipTriple{Source: "TSM", Target: "NVDA", Type: "supplies"})
		require.True(t, ok)
		assert.Equal(t, "TSM", s)
		assert.Equal(t, "NVDA", tgt)
		assert.Equal(t, "SUPPLIES", typ)
	})

	t.Run("inverse direction reversed", func(t *testing.T) {
		s, tgt, typ, ok := NormalizeTriple(models.RelationshipTriple{Source: "NVDA", Target: "TSM", Type: "SUPPLIED_BY"})
		require.True(t, ok)
		assert.Equal(t, "TSM", s)
		assert.Equal(t, "NVDA", tgt)
		assert.Equal(t, "SUPPLIES", typ)
	})

	t.Run("invalid ticker rejected", func(t *testing.T) {
		_, _, _, ok := NormalizeTriple(models.RelationshipTriple{Source: "Nvidia Corp", Target: "TSM", Type: "SUPPLIES"})
		assert.False(t, ok)
	})

	t.Run("self edge rejected", func(t *testing.T) {
		_, _, _, ok := NormalizeTriple(models.RelationshipTriple{Source: "NVDA", Target: "NVDA", Type: "SUPPLIES"})
		assert.False(t, ok)
	})
}
