// -----------------------------------------------------------------------
// App - dependency wiring for the ingestion and analysis service
// Construction order: stores, clients, pipeline/analyzer, jobs, scheduler,
// handlers. Shutdown runs in reverse.
// -----------------------------------------------------------------------

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/clients/antibot"
	"github.com/ternarybob/prospectus/internal/clients/archive"
	"github.com/ternarybob/prospectus/internal/clients/congressapi"
	"github.com/ternarybob/prospectus/internal/clients/extract"
	"github.com/ternarybob/prospectus/internal/clients/llm"
	"github.com/ternarybob/prospectus/internal/clients/rss"
	"github.com/ternarybob/prospectus/internal/clients/search"
	"github.com/ternarybob/prospectus/internal/clients/social"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/domainhealth"
	"github.com/ternarybob/prospectus/internal/handlers"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/jobs"
	"github.com/ternarybob/prospectus/internal/pipeline"
	"github.com/ternarybob/prospectus/internal/scheduler"
	"github.com/ternarybob/prospectus/internal/storage/postgres"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Stores *postgres.Stores

	// External service clients
	LLMService     interfaces.LLMService
	SearchService  interfaces.SearchService
	ArchiveService interfaces.ArchiveService
	Extractor      interfaces.ExtractorService
	AntiBot        interfaces.AntiBotService
	RSSService     interfaces.RSSService
	CongressAPI    interfaces.CongressAPIService
	StockTwits     interfaces.StockTwitsService
	Reddit         interfaces.RedditService

	// Core components
	DomainHealth *domainhealth.Tracker
	Pipeline     *pipeline.Pipeline
	Analyzer     *analyzer.Analyzer
	Scheduler    interfaces.SchedulerService

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	HealthHandler *handlers.HealthHandler
}

// New constructs the application graph. Database connectivity failures abort
// startup: nothing useful runs without the stores.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	stores, err := postgres.Connect(ctx, cfg.Storage.ResearchDSN, cfg.Storage.MetaDSN, logger)
	if err != nil {
		var connErr *postgres.ConnectivityError
		if errors.As(err, &connErr) {
			return nil, fmt.Errorf("database unavailable at startup: %w", err)
		}
		return nil, err
	}
	a.Stores = stores

	// External service clients.
	a.LLMService = llm.NewClient(&cfg.LLM, logger)
	a.SearchService = search.NewClient(cfg.Services.SearchURL, logger)
	a.ArchiveService = archive.NewClient(cfg.Services.ArchiveURL, logger)
	a.Extractor = extract.NewClient(a.ArchiveService, logger)
	a.AntiBot = antibot.NewClient(cfg.Services.AntiBotURL, logger)
	a.RSSService = rss.NewClient(logger)
	a.CongressAPI = congressapi.NewClient(cfg.Services.CongressAPIURL, cfg.Services.CongressAPIKey, logger)
	a.StockTwits = social.NewStockTwitsClient(a.AntiBot, logger)
	a.Reddit = social.NewRedditClient(cfg.Social.Subreddits, logger)

	// Core components.
	a.DomainHealth = domainhealth.NewTracker(stores.DomainHealth, cfg.Scheduler.BlacklistThreshold, logger)
	a.Pipeline = pipeline.New(
		stores.Articles,
		stores.Relationships,
		stores.Funds,
		a.LLMService,
		a.Extractor,
		a.DomainHealth,
		cfg.ArticleBudgetDuration(),
		logger,
	)
	a.Analyzer = analyzer.New(
		a.LLMService,
		stores.Congress,
		stores.Politicians,
		stores.Securities,
		cfg.LLM.DefaultModel,
		logger,
	)

	logsDir := filepath.Join(cfg.Scheduler.RunRoot, "logs")
	sched := scheduler.New(logsDir, stores.Executions, stores.RetryQueue, logger)
	a.Scheduler = sched
	if err := a.registerJobs(sched); err != nil {
		return nil, err
	}

	// HTTP handlers.
	a.JobHandler = handlers.NewJobHandler(a.Scheduler)
	a.HealthHandler = handlers.NewHealthHandler(stores.Ping, map[string]handlers.ServiceChecker{
		"llm":      a.LLMService.Health,
		"search":   a.SearchService.Health,
		"archive":  a.ArchiveService.Health,
		"antibot":  a.AntiBot.Health,
		"congress": a.CongressAPI.Health,
	})

	return a, nil
}

func (a *App) registerJobs(sched *scheduler.Scheduler) error {
	cfg := a.Config
	all := []interfaces.Job{
		jobs.NewMarketNewsJob(a.SearchService, a.Pipeline, cfg.Pipeline.MaxResults, cfg.JobBudgetDuration(), a.Logger),
		jobs.NewRSSIngestJob(a.Stores.Feeds, a.RSSService, a.Pipeline, a.Logger),
		jobs.NewTickerResearchJob(a.Stores.Funds, a.Stores.Securities, a.SearchService, a.Pipeline, cfg.JobBudgetDuration(), a.Logger),
		jobs.NewArchiveRetryJob(a.Stores.Articles, a.ArchiveService, a.Extractor, a.Pipeline, a.Logger),
		jobs.NewResearchReportsJob(cfg.Research.Dir, a.Stores.Articles, a.Pipeline, a.Logger),
		jobs.NewCongressFetchJob(a.CongressAPI, a.Stores.Congress, a.Stores.Politicians, a.Analyzer, a.Logger),
		jobs.NewCongressAnalysisJob(a.Analyzer, a.Logger),
		jobs.NewCongressSessionsJob(a.Stores.Congress, a.Analyzer, a.Logger),
		jobs.NewCongressScrapeJob(a.CongressAPI, a.Stores.Congress, a.Stores.Politicians, a.Logger),
		jobs.NewSocialCollectJob(a.Stores.Funds, a.StockTwits, a.Reddit, a.Stores.Social, a.Analyzer, a.Logger),
		jobs.NewSocialExtractJob(a.Stores.Social, a.Logger),
		jobs.NewSocialSessionsJob(a.Stores.Social, a.Logger),
		jobs.NewSocialAnalyzeJob(a.Stores.Social, a.Analyzer, a.Logger),
		jobs.NewSocialRetentionJob(a.Stores.Social, a.Logger),
	}
	for _, job := range all {
		if err := sched.RegisterJob(job); err != nil {
			return err
		}
	}
	return nil
}

// StartScheduler attempts scheduler ownership for this process.
func (a *App) StartScheduler(ctx context.Context) error {
	started, err := a.Scheduler.Start(ctx)
	if err != nil {
		return err
	}
	if !started {
		a.Logger.Info().Msg("Scheduler not started in this process")
	}
	return nil
}

// Shutdown stops the scheduler and closes the store pools.
func (a *App) Shutdown(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Shutdown(ctx)
	}
	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Store close reported errors")
		}
	}
}
