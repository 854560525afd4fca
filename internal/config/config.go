package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once by the
// root command and passed explicitly into every component.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Score      ScoreConfig      `yaml:"score" mapstructure:"score"`
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Geo        GeoConfig        `yaml:"geo" mapstructure:"geo"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScrapeConfig controls the fetch layer shared by all source adapters.
type ScrapeConfig struct {
	DelayMinMS   int    `yaml:"delay_min_ms" mapstructure:"delay_min_ms"`
	DelayMaxMS   int    `yaml:"delay_max_ms" mapstructure:"delay_max_ms"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	CacheTTLHrs  int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	Headless     bool   `yaml:"headless" mapstructure:"headless"`
}

// DelayMin returns the minimum inter-request delay.
func (s ScrapeConfig) DelayMin() time.Duration { return time.Duration(s.DelayMinMS) * time.Millisecond }

// DelayMax returns the maximum inter-request delay.
func (s ScrapeConfig) DelayMax() time.Duration { return time.Duration(s.DelayMaxMS) * time.Millisecond }

// Timeout returns the per-request timeout.
func (s ScrapeConfig) Timeout() time.Duration { return time.Duration(s.TimeoutSecs) * time.Second }

// CacheTTL returns the page-cache lifetime.
func (s ScrapeConfig) CacheTTL() time.Duration { return time.Duration(s.CacheTTLHrs) * time.Hour }

// SourcesConfig selects and configures the directory adapters.
type SourcesConfig struct {
	Enabled    []string `yaml:"enabled" mapstructure:"enabled"`
	FeedURL    string   `yaml:"feed_url" mapstructure:"feed_url"`
	FeedFormat string   `yaml:"feed_format" mapstructure:"feed_format"` // csv or xlsx, inferred from URL when empty
}

// ScoreConfig carries the five sub-score maxima. The maxima must sum to 100.
type ScoreConfig struct {
	WeightsFile  string `yaml:"weights_file" mapstructure:"weights_file"`
	Age          int    `yaml:"age" mapstructure:"age"`
	Size         int    `yaml:"size" mapstructure:"size"`
	BusinessType int    `yaml:"business_type" mapstructure:"business_type"`
	Website      int    `yaml:"website" mapstructure:"website"`
	Contact      int    `yaml:"contact" mapstructure:"contact"`
}

// AIConfig holds Anthropic settings for enrichment.
type AIConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Workers   int    `yaml:"workers" mapstructure:"workers"`
}

// OutreachConfig personalizes generated outreach emails.
type OutreachConfig struct {
	CompanyName string `yaml:"company_name" mapstructure:"company_name"`
	SenderName  string `yaml:"sender_name" mapstructure:"sender_name"`
	SenderTitle string `yaml:"sender_title" mapstructure:"sender_title"`
}

// ExportConfig configures export file output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// SalesforceConfig holds Salesforce JWT auth settings for lead push.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds Notion API credentials for lead push.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// GeoConfig configures the geocode/territory backfill.
type GeoConfig struct {
	TerritoryShapefile string  `yaml:"territory_shapefile" mapstructure:"territory_shapefile"`
	GeocodeRPS         float64 `yaml:"geocode_rps" mapstructure:"geocode_rps"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "leads.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("scrape.delay_min_ms", 500)
	v.SetDefault("scrape.delay_max_ms", 1500)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.max_body_bytes", 2<<20)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("scrape.cache_ttl_hours", 24)
	v.SetDefault("scrape.headless", true)
	v.SetDefault("sources.enabled", []string{"yellowpages", "googlemaps"})
	v.SetDefault("score.age", 30)
	v.SetDefault("score.size", 25)
	v.SetDefault("score.business_type", 20)
	v.SetDefault("score.website", 10)
	v.SetDefault("score.contact", 15)
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.workers", 4)
	v.SetDefault("outreach.company_name", "LogicLamp Technologies")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("geo.geocode_rps", 2.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. The command name
// scopes the check so unrelated credentials stay optional.
func (c *Config) Validate(command string) error {
	if c.Scrape.DelayMinMS < 0 || c.Scrape.DelayMaxMS < c.Scrape.DelayMinMS {
		return eris.New("config: scrape delay range is invalid (min must be <= max)")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if sum := c.Score.Age + c.Score.Size + c.Score.BusinessType + c.Score.Website + c.Score.Contact; sum != 100 {
		return eris.Errorf("config: score component maxima must sum to 100, got %d", sum)
	}

	switch command {
	case "find", "outreach":
		if c.AI.Enabled && c.AI.Key == "" {
			return eris.New("config: ai.key is required when enrichment is enabled (set LEADSCOUT_AI_KEY or ai.key, or disable with ai.enabled=false)")
		}
		if c.AI.Workers < 1 || c.AI.Workers > 8 {
			return eris.New("config: ai.workers must be between 1 and 8")
		}
	case "push-salesforce":
		if c.Salesforce.ClientID == "" || c.Salesforce.Username == "" || c.Salesforce.KeyPath == "" {
			return eris.New("config: salesforce client_id, username and key_path are required for push")
		}
	case "push-notion":
		if c.Notion.Token == "" || c.Notion.LeadDB == "" {
			return eris.New("config: notion token and lead_db are required for push")
		}
	case "geo":
		if c.Geo.TerritoryShapefile == "" {
			return eris.New("config: geo.territory_shapefile is required for territory tagging")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return eris.Errorf("config: invalid server port %d", c.Server.Port)
		}
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
