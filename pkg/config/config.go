package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Ingest configuration
	Ingest IngestConfig `mapstructure:"ingest"`

	// Cache configuration for completion responses
	Cache CacheConfig `mapstructure:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Schema configuration
	Schema SchemaConfig `mapstructure:"schema"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath is the directory for error-log parquet files. Empty disables capture.
	ParquetPath string `mapstructure:"parquet_path"`
	// TokenTracking enables per-call token usage files under ParquetPath/tokens.
	TokenTracking bool `mapstructure:"token_tracking"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json, color
	// File enables a rotating log file in addition to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, memory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// Failover routes to an in-memory store once the live store is unreachable.
	Failover bool `mapstructure:"failover"`
	// MaxRetryTime bounds how long a failing query is retried before the
	// store counts as unreachable.
	MaxRetryTime time.Duration `mapstructure:"max_retry_time"`
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Models is a map of model configurations keyed by provider id ("default", ...)
	Models map[string]NLPModelConfig `mapstructure:"models"`

	// Fallbacks lists model ids tried in order after "default" fails.
	Fallbacks []string `mapstructure:"fallbacks"`

	// Retry controls exponential backoff around each model.
	Retry RetryConfig `mapstructure:"retry"`
}

// NLPModelConfig holds configuration for a specific model
type NLPModelConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, openai-compatible
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RetryConfig holds retry settings for completion calls
type RetryConfig struct {
	MaxRetries        int     `mapstructure:"max_retries"`
	InitialDelayMs    int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs        int     `mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// IngestConfig holds ingestion pipeline settings
type IngestConfig struct {
	// MaxConcurrency bounds concurrent kind extractions. 0 uses SEMAPHORE_LIMIT.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// MaxRecords caps records per kind. 0 uses the extractor defaults.
	MaxRecords int `mapstructure:"max_records"`
	// CompletionTimeout is the per-call completion timeout in seconds.
	CompletionTimeout int `mapstructure:"completion_timeout"`
	// StoreTimeout is the per-call store timeout in seconds.
	StoreTimeout int `mapstructure:"store_timeout"`
}

// CacheConfig holds completion cache settings
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	TTL     int    `mapstructure:"ttl"` // in seconds, 0 keeps entries forever
}

// SchemaConfig selects the type registry contents
type SchemaConfig struct {
	// Path is a YAML schema file loaded at startup.
	Path string `mapstructure:"path"`
	// Defaults installs the built-in narrative world kinds.
	Defaults bool `mapstructure:"defaults"`
	// Strict makes re-registration of a kind an error.
	Strict bool `mapstructure:"strict"`
	// Lazy defers relationship endpoint checks to resolution.
	Lazy bool `mapstructure:"lazy"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "color")
	viper.SetDefault("log.max_size_mb", 50)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "neo4j")
	viper.SetDefault("database.uri", "bolt://localhost:7687")
	viper.SetDefault("database.username", "neo4j")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "neo4j")
	viper.SetDefault("database.failover", true)
	viper.SetDefault("database.max_retry_time", "5s")

	viper.SetDefault("nlp.models.default.provider", "openai")
	viper.SetDefault("nlp.models.default.model", "gpt-4o-mini")
	viper.SetDefault("nlp.models.default.temperature", 0.2)
	viper.SetDefault("nlp.models.default.max_tokens", 2048)

	viper.SetDefault("nlp.retry.max_retries", 3)
	viper.SetDefault("nlp.retry.initial_delay_ms", 1000)
	viper.SetDefault("nlp.retry.max_delay_ms", 60000)
	viper.SetDefault("nlp.retry.backoff_multiplier", 2.0)

	// Ingest defaults
	viper.SetDefault("ingest.max_concurrency", 0)
	viper.SetDefault("ingest.max_records", 0)
	viper.SetDefault("ingest.completion_timeout", 120)
	viper.SetDefault("ingest.store_timeout", 30)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("schema.defaults", true)

	// Cache and telemetry live under the user's home directory
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".loregraph", "telemetry"))
		viper.SetDefault("cache.path", filepath.Join(home, ".loregraph", "cache"))
	}
	viper.SetDefault("cache.ttl", 24*60*60)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Initialize Models map if nil
	if config.NLP.Models == nil {
		config.NLP.Models = make(map[string]NLPModelConfig)
	}

	defaultModel := config.NLP.Models["default"]
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		defaultModel.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		defaultModel.BaseURL = baseURL
	}
	if model := os.Getenv("LOREGRAPH_MODEL"); model != "" {
		defaultModel.Model = model
	}
	config.NLP.Models["default"] = defaultModel

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		config.Database.Database = db
	}
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	if path := os.Getenv("LOREGRAPH_SCHEMA"); path != "" {
		config.Schema.Path = path
	}
}
