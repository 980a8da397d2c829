// Package config handles configuration loading for TrendLens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/trendlens/trendlens/pkg/logger"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Ads      AdsConfig      `mapstructure:"ads"      yaml:"ads"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis"    yaml:"redis"`
	Alerts   AlertsConfig   `mapstructure:"alerts"   yaml:"alerts"`
	Scraper  ScraperConfig  `mapstructure:"scraper"  yaml:"scraper"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Notify   NotifyConfig   `mapstructure:"notify"   yaml:"notify"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  logger.Config  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary       string  `mapstructure:"primary"        yaml:"primary"` // "openai" or "ollama"
	OpenAIKey     string  `mapstructure:"openai_key"     yaml:"openai_key"`
	OpenAIBaseURL string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	OllamaURL     string  `mapstructure:"ollama_url"     yaml:"ollama_url"`
	Model         string  `mapstructure:"model"          yaml:"model"`
	FallbackModel string  `mapstructure:"fallback_model" yaml:"fallback_model"`
	Temperature   float64 `mapstructure:"temperature"    yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"     yaml:"max_tokens"`
}

// AdsConfig holds search volume provider configuration.
type AdsConfig struct {
	Provider        string `mapstructure:"provider"          yaml:"provider"` // "google" or "fake"
	DeveloperToken  string `mapstructure:"developer_token"   yaml:"developer_token"`
	ClientID        string `mapstructure:"client_id"         yaml:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"     yaml:"client_secret"`
	RefreshToken    string `mapstructure:"refresh_token"     yaml:"refresh_token"`
	CustomerID      string `mapstructure:"customer_id"       yaml:"customer_id"`
	LoginCustomerID string `mapstructure:"login_customer_id" yaml:"login_customer_id"`
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name"     yaml:"name"`
}

// DSN builds the MySQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig holds Redis connection settings for dashboard state.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
}

// AlertsConfig holds default alert thresholds. Runtime values in the
// settings store take precedence over these.
type AlertsConfig struct {
	MinIncreasePct float64 `mapstructure:"min_increase_pct" yaml:"min_increase_pct"`
	MaxDecreasePct float64 `mapstructure:"max_decrease_pct" yaml:"max_decrease_pct"`
	MinHits        float64 `mapstructure:"min_hits"         yaml:"min_hits"`
}

// ScraperConfig holds site crawl settings.
type ScraperConfig struct {
	MaxPages   int    `mapstructure:"max_pages"   yaml:"max_pages"`
	MaxDepth   int    `mapstructure:"max_depth"   yaml:"max_depth"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	UserAgent  string `mapstructure:"user_agent"  yaml:"user_agent"`
}

// PipelineConfig holds analysis pipeline settings.
type PipelineConfig struct {
	ConcurrentFetches int `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
	CacheTTL          int `mapstructure:"cache_ttl"          yaml:"cache_ttl"` // seconds
	SimilarPerKeyword int `mapstructure:"similar_per_keyword" yaml:"similar_per_keyword"`
	IdeasPerGroup     int `mapstructure:"ideas_per_group"    yaml:"ideas_per_group"`
}

// NotifyConfig holds alert delivery settings.
type NotifyConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	DryRun          bool   `mapstructure:"dry_run"           yaml:"dry_run"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.trendlens/config.yaml (home directory)
//  3. /etc/trendlens/config.yaml (system)
//
// Environment variables override config file values.
// Format: TRENDLENS_<SECTION>_<KEY>, e.g., TRENDLENS_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".trendlens"))
	v.AddConfigPath("/etc/trendlens")

	v.SetEnvPrefix("TRENDLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("TRENDLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)

	// Ads provider defaults
	v.SetDefault("ads.provider", "fake")

	// Database defaults
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "trendlens")
	v.SetDefault("database.name", "trendlens")

	// Redis defaults
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	// Alert thresholds
	v.SetDefault("alerts.min_increase_pct", 10.0)
	v.SetDefault("alerts.max_decrease_pct", -10.0)
	v.SetDefault("alerts.min_hits", 100.0)

	// Scraper defaults
	v.SetDefault("scraper.max_pages", 30)
	v.SetDefault("scraper.max_depth", 2)
	v.SetDefault("scraper.timeout_sec", 15)
	v.SetDefault("scraper.user_agent", "TrendLensBot/1.0")

	// Pipeline defaults
	v.SetDefault("pipeline.concurrent_fetches", 5)
	v.SetDefault("pipeline.cache_ttl", 300) // 5 minutes
	v.SetDefault("pipeline.similar_per_keyword", 10)
	v.SetDefault("pipeline.ideas_per_group", 10)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("TRENDLENS_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("TRENDLENS_ADS_DEVELOPER_TOKEN"); key != "" {
		cfg.Ads.DeveloperToken = key
	}
	if key := os.Getenv("TRENDLENS_ADS_CLIENT_SECRET"); key != "" {
		cfg.Ads.ClientSecret = key
	}
	if key := os.Getenv("TRENDLENS_ADS_REFRESH_TOKEN"); key != "" {
		cfg.Ads.RefreshToken = key
	}
	if key := os.Getenv("TRENDLENS_DATABASE_PASSWORD"); key != "" {
		cfg.Database.Password = key
	}
	if key := os.Getenv("TRENDLENS_NOTIFY_SLACK_WEBHOOK_URL"); key != "" {
		cfg.Notify.SlackWebhookURL = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
