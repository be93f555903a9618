package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// RegistryConfig configures the LEI registry used for family resolution.
type RegistryConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	MaxCandidates  int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EngineConfig configures fan-out and synthesis concurrency.
type EngineConfig struct {
	FanoutConcurrency  int     `yaml:"fanout_concurrency" mapstructure:"fanout_concurrency"`
	AnalyzeConcurrency int     `yaml:"analyze_concurrency" mapstructure:"analyze_concurrency"`
	DefaultTimeoutSecs int     `yaml:"default_timeout_secs" mapstructure:"default_timeout_secs"`
	RetryMaxAttempts   int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBackoffMs     int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	TrendThresholdPct  float64 `yaml:"trend_threshold_pct" mapstructure:"trend_threshold_pct"`
}

// SourcesConfig configures the source catalog.
type SourcesConfig struct {
	CatalogFile string         `yaml:"catalog_file" mapstructure:"catalog_file"` // optional YAML overrides
	News        NewsConfig     `yaml:"news" mapstructure:"news"`
	CFPB        EndpointConfig `yaml:"cfpb" mapstructure:"cfpb"`
	EDGAR       EdgarConfig    `yaml:"edgar" mapstructure:"edgar"`
	Courts      EndpointConfig `yaml:"courts" mapstructure:"courts"`
}

// NewsConfig configures the RSS news index source.
type NewsConfig struct {
	FeedURL     string `yaml:"feed_url" mapstructure:"feed_url"`
	MaxItems    int    `yaml:"max_items" mapstructure:"max_items"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EndpointConfig is a base URL plus optional API key.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// EdgarConfig configures the SEC EDGAR full-text client.
type EdgarConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig configures the cross-request result cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, none
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the configured cache TTL.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// AnthropicConfig holds settings for the optional narrative collaborator.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("registry.base_url", "https://api.gleif.org/api/v1")
	v.SetDefault("registry.max_candidates", 10)
	v.SetDefault("registry.requests_per_sec", 1.0)
	v.SetDefault("registry.timeout_secs", 20)
	v.SetDefault("engine.fanout_concurrency", 5)
	v.SetDefault("engine.analyze_concurrency", 4)
	v.SetDefault("engine.default_timeout_secs", 30)
	v.SetDefault("engine.retry_max_attempts", 2)
	v.SetDefault("engine.retry_backoff_ms", 500)
	v.SetDefault("engine.trend_threshold_pct", 10.0)
	v.SetDefault("sources.news.feed_url", "https://news.google.com/rss/search")
	v.SetDefault("sources.news.max_items", 100)
	v.SetDefault("sources.news.timeout_secs", 30)
	v.SetDefault("sources.cfpb.base_url", "https://www.consumerfinance.gov/data-research/consumer-complaints/search/api/v1")
	v.SetDefault("sources.edgar.base_url", "https://efts.sec.gov/LATEST/search-index")
	v.SetDefault("sources.edgar.user_agent", "Sells Advisors blake@sellsadvisors.com")
	v.SetDefault("sources.courts.base_url", "https://www.courtlistener.com/api/rest/v4")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "profile-cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)

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
