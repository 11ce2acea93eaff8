package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. Values are loaded from TOML
// file(s) first, then overridden by environment variables.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	LLM         LLMConfig       `toml:"llm"`
	Services    ServicesConfig  `toml:"services"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Social      SocialConfig    `toml:"social"`
	Research    ResearchConfig  `toml:"research"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the two database connection strings.
type StorageConfig struct {
	ResearchDSN string `toml:"research_dsn"` // relational store with vector column
	MetaDSN     string `toml:"meta_dsn"`     // operational metadata/auth store
}

// LLMConfig configures the local/remote LLM service.
type LLMConfig struct {
	Endpoint       string  `toml:"endpoint"`
	DefaultModel   string  `toml:"default_model"`
	SummarizeModel string  `toml:"summarize_model"`
	EmbedModel     string  `toml:"embed_model"`
	Timeout        string  `toml:"timeout"`     // e.g. "30s"
	Temperature    float64 `toml:"temperature"` // default for summarize calls
}

// ServicesConfig holds URLs and keys for the external collaborators.
type ServicesConfig struct {
	SearchURL      string `toml:"search_url"`
	ArchiveURL     string `toml:"archive_url"`
	AntiBotURL     string `toml:"antibot_url"`
	CongressAPIKey string `toml:"congress_api_key"`
	CongressAPIURL string `toml:"congress_api_url"`
}

// SchedulerConfig controls the job scheduler and its election protocol.
type SchedulerConfig struct {
	Disabled           bool   `toml:"disabled"`
	Workers            int    `toml:"workers"`              // worker pool size (default 7)
	RunRoot            string `toml:"run_root"`             // root for logs/ lock + heartbeat files
	MisfireGraceHours  int    `toml:"misfire_grace_hours"`  // default 24
	HeartbeatInterval  string `toml:"heartbeat_interval"`   // default "20s"
	HealthInterval     string `toml:"health_interval"`      // default "5m"
	BlacklistThreshold int    `toml:"blacklist_threshold"`  // domain auto-blacklist, default 4
}

// PipelineConfig bounds per-article and per-job work.
type PipelineConfig struct {
	ArticleBudget string `toml:"article_budget"` // default "5m"
	JobBudget     string `toml:"job_budget"`     // default "50m"
	MaxResults    int    `toml:"max_results"`    // search results per news run
}

// SocialConfig controls the social-sentiment collectors.
type SocialConfig struct {
	WatchedTickers []string `toml:"watched_tickers"`
	Subreddits     []string `toml:"subreddits"`
}

// ResearchConfig locates the research-report PDF tree.
type ResearchConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults applied before file and
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8085},
		LLM: LLMConfig{
			Endpoint:       "http://localhost:11434",
			DefaultModel:   "llama3.1",
			SummarizeModel: "llama3.1",
			EmbedModel:     "nomic-embed-text",
			Timeout:        "30s",
			Temperature:    0.1,
		},
		Scheduler: SchedulerConfig{
			Workers:            7,
			RunRoot:            ".",
			MisfireGraceHours:  24,
			HeartbeatInterval:  "20s",
			HealthInterval:     "5m",
			BlacklistThreshold: 4,
		},
		Pipeline: PipelineConfig{
			ArticleBudget: "5m",
			JobBudget:     "50m",
			MaxResults:    20,
		},
		Social: SocialConfig{
			Subreddits: []string{"stocks", "investing", "wallstreetbets", "StockMarket", "options"},
		},
		Research: ResearchConfig{Dir: "research"},
		Logging:  LoggingConfig{Level: "info", Output: []string{"stdout"}},
	}
}

// LoadFromFiles loads configuration from TOML files in order (later files
// override earlier ones), then applies environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies recognized environment variables on top of file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESEARCH_DATABASE_URL"); v != "" {
		cfg.Storage.ResearchDSN = v
	}
	if v := os.Getenv("META_DATABASE_URL"); v != "" {
		cfg.Storage.MetaDSN = v
	}
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.DefaultModel = v
	}
	if v := os.Getenv("LLM_SUMMARIZE_MODEL"); v != "" {
		cfg.LLM.SummarizeModel = v
	}
	if v := os.Getenv("SEARCH_URL"); v != "" {
		cfg.Services.SearchURL = v
	}
	if v := os.Getenv("ARCHIVE_URL"); v != "" {
		cfg.Services.ArchiveURL = v
	}
	if v := os.Getenv("ANTIBOT_URL"); v != "" {
		cfg.Services.AntiBotURL = v
	}
	if v := os.Getenv("CONGRESS_API_KEY"); v != "" {
		cfg.Services.CongressAPIKey = v
	}
	if v := os.Getenv("DISABLE_SCHEDULER"); isTruthy(v) {
		cfg.Scheduler.Disabled = true
	}
	if v := os.Getenv("BLACKLIST_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.BlacklistThreshold = n
		}
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

// Validate checks the configuration for values that would fail later in a
// harder-to-diagnose way.
func (c *Config) Validate() error {
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.BlacklistThreshold <= 0 {
		return fmt.Errorf("scheduler.blacklist_threshold must be positive, got %d", c.Scheduler.BlacklistThreshold)
	}
	for _, d := range []struct {
		name, val string
	}{
		{"llm.timeout", c.LLM.Timeout},
		{"pipeline.article_budget", c.Pipeline.ArticleBudget},
		{"pipeline.job_budget", c.Pipeline.JobBudget},
		{"scheduler.heartbeat_interval", c.Scheduler.HeartbeatInterval},
		{"scheduler.health_interval", c.Scheduler.HealthInterval},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", d.name, d.val)
		}
	}
	return nil
}

// ArticleBudgetDuration returns the parsed per-article budget.
func (c *Config) ArticleBudgetDuration() time.Duration {
	d, _ := time.ParseDuration(c.Pipeline.ArticleBudget)
	return d
}

// JobBudgetDuration returns the parsed per-job budget.
func (c *Config) JobBudgetDuration() time.Duration {
	d, _ := time.ParseDuration(c.Pipeline.JobBudget)
	return d
}
