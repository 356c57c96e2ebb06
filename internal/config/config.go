// Package config defines the configuration structures of the tariff
// dashboard.  No I/O lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimitRPS limits the endpoints that fetch from upstream feeds, per
	// client IP.  Zero disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Dataset source kinds.
const (
	SourceFile  = "file"
	SourceMinIO = "minio"
)

// DatasetsConfig locates the policy document and the reference tables.
// An empty PolicyPath selects the built-in policy document.
type DatasetsConfig struct {
	Source        string        `mapstructure:"source"` // "file" | "minio"
	PolicyPath    string        `mapstructure:"policy_path"`
	SectionsPath  string        `mapstructure:"sections_path"`
	EntriesPath   string        `mapstructure:"entries_path"`
	RootLabel     string        `mapstructure:"root_label"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// ReferenceConfig tunes reference search.  SearchSessions bounds how many
// clients keep a search sequence.
type ReferenceConfig struct {
	MaxRows        int `mapstructure:"max_rows"`
	SearchSessions int `mapstructure:"search_sessions"`
}

// PricingConfig tunes the illustrative price estimate.
type PricingConfig struct {
	BasePrice float64 `mapstructure:"base_price"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// NewsConfig drives ingestion, retention and the live feed.
type NewsConfig struct {
	Feeds           []string      `mapstructure:"feeds"`
	FilteredFeeds   []string      `mapstructure:"filtered_feeds"` // subset that only keeps tariff-related items
	LiveFeedURL     string        `mapstructure:"live_feed_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	FetchInterval   time.Duration `mapstructure:"fetch_interval"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RetentionDays   int           `mapstructure:"retention_days"`
	PageSize        int           `mapstructure:"page_size"`
	LiveCacheTTL    time.Duration `mapstructure:"live_cache_ttl"`
	APIKey          string        `mapstructure:"api_key"`
}

// KafkaConfig holds producer parameters for news events.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// MinIOConfig holds object storage parameters for dataset objects.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Datasets  DatasetsConfig    `mapstructure:"datasets"`
	Reference ReferenceConfig   `mapstructure:"reference"`
	Pricing   PricingConfig     `mapstructure:"pricing"`
	Redis     RedisConfig       `mapstructure:"redis"`
	News      NewsConfig        `mapstructure:"news"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	MinIO     MinIOConfig       `mapstructure:"minio"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Log       logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns
// the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("config: server.rate_limit_rps and server.rate_limit_burst must not be negative")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Datasets.Source {
	case SourceFile:
	case SourceMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when datasets.source is minio")
		}
		if c.Datasets.Watch {
			return fmt.Errorf("config: datasets.watch is only supported for the file source")
		}
	default:
		return fmt.Errorf("config: datasets.source %q is invalid; expected file|minio", c.Datasets.Source)
	}
	if c.Datasets.SectionsPath == "" || c.Datasets.EntriesPath == "" {
		return fmt.Errorf("config: datasets.sections_path and datasets.entries_path are required")
	}

	if c.Reference.MaxRows < 1 {
		return fmt.Errorf("config: reference.max_rows must be ≥ 1, got %d", c.Reference.MaxRows)
	}
	if c.Pricing.BasePrice <= 0 {
		return fmt.Errorf("config: pricing.base_price must be > 0, got %v", c.Pricing.BasePrice)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if c.News.RetentionDays < 7 {
		return fmt.Errorf("config: news.retention_days must be ≥ 7, got %d", c.News.RetentionDays)
	}
	if c.News.PageSize < 1 || c.News.PageSize > 100 {
		return fmt.Errorf("config: news.page_size %d is out of range [1, 100]", c.News.PageSize)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
