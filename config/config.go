package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	StockAPI   StockAPIConfig
	Crawler    CrawlerConfig
	Gemini     GeminiConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Matching   MatchingConfig
	Comparison ComparisonConfig
	Scheduler  SchedulerConfig
	Notify     NotifyConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StockAPIConfig holds the home retailer stock API configuration
type StockAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// CrawlerConfig holds the external content fetch/extract service configuration
type CrawlerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Extractor string        `mapstructure:"extractor"` // "crawler", "gemini" or "off"
	Pacing    time.Duration `mapstructure:"pacing"`
}

// GeminiConfig holds the Gemini structured-extraction configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MatchingConfig holds match-engine configuration
type MatchingConfig struct {
	DefaultThreshold   float64 `mapstructure:"default_threshold"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// ComparisonConfig holds retailer fan-out configuration
type ComparisonConfig struct {
	MaxRetailers   int           `mapstructure:"max_retailers"`
	RetailerPacing time.Duration `mapstructure:"retailer_pacing"`
}

// SchedulerConfig holds the periodic price-check configuration
type SchedulerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	CheckPacing time.Duration `mapstructure:"check_pacing"`
}

// NotifyConfig holds SMTP notification configuration
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SMTPServer string `mapstructure:"smtp_server"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	SMTPUser   string `mapstructure:"smtp_user"`
	SMTPPass   string `mapstructure:"smtp_pass"`
	FromEmail  string `mapstructure:"from_email"`
	ToEmail    string `mapstructure:"to_email"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a local .env file into the environment when present.
// Existing environment variables are never overridden.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Stock API defaults
	v.SetDefault("stockapi.base_url", "https://api.youinstock.com/officeworks/api")

	// Crawler defaults
	v.SetDefault("crawler.base_url", "https://api.firecrawl.dev")
	v.SetDefault("crawler.extractor", "crawler")
	v.SetDefault("crawler.pacing", "2s")

	// Gemini defaults
	v.SetDefault("gemini.model", "gemini-2.0-flash")

	// Cache defaults
	v.SetDefault("cache.ttl", "10m")

	// Matching defaults
	v.SetDefault("matching.default_threshold", 0.95)
	v.SetDefault("matching.enable_debug_logging", false)

	// Comparison defaults
	v.SetDefault("comparison.max_retailers", 4)
	v.SetDefault("comparison.retailer_pacing", "1s")

	// Scheduler defaults
	v.SetDefault("scheduler.interval", "30m")
	v.SetDefault("scheduler.check_pacing", "1s")

	// Notify defaults
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_port", 587)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required (set PRICELENS_DATABASE_URL)")
	}

	switch config.Crawler.Extractor {
	case "crawler", "gemini", "off":
	default:
		return fmt.Errorf("extractor must be 'crawler', 'gemini' or 'off', got: %s", config.Crawler.Extractor)
	}

	if config.Crawler.Extractor == "gemini" && config.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is required when extractor is 'gemini' (set PRICELENS_GEMINI_API_KEY)")
	}

	if config.Notify.Enabled {
		if config.Notify.SMTPServer == "" || config.Notify.FromEmail == "" || config.Notify.ToEmail == "" {
			return fmt.Errorf("SMTP server, from and to addresses are required when notifications are enabled")
		}
	}

	return nil
}
