package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default values
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDatasetSource = SourceFile
	DefaultSectionsPath  = "data/hs_sections.csv"
	DefaultEntriesPath   = "data/hs_data.csv"
	DefaultWatchDebounce = 500 * time.Millisecond

	DefaultMaxRows        = 50
	DefaultSearchSessions = 1024
	DefaultBasePrice      = 100.0

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPool   = 10
	DefaultRedisPrefix = ""

	DefaultLiveFeedURL     = "https://news.google.com/rss/search?q=tariff"
	DefaultUserAgent       = "Mozilla/5.0 (compatible; tariff-dashboard/1.0)"
	DefaultFetchTimeout    = 20 * time.Second
	DefaultFetchInterval   = time.Hour
	DefaultCleanupInterval = 24 * time.Hour
	DefaultRetentionDays   = 60
	DefaultPageSize        = 10
	DefaultLiveCacheTTL    = 5 * time.Minute

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaTopic        = "tariff.news.ingested"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = time.Second
	DefaultKafkaWriteTimeout = 10 * time.Second

	DefaultMetricsNamespace = "tariff"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultFeeds are the Google News searches polled by ingestion.
var DefaultFeeds = []string{
	"https://news.google.com/rss/search?q=tariff+policy+Trump+2025",
	"https://news.google.com/rss/search?q=China+US+tariff",
	"https://news.google.com/rss/search?q=trade+war",
	"https://news.google.com/rss/search?q=import+tax+US+2025",
	"https://news.google.com/rss/headlines/section/topic/BUSINESS",
}

// DefaultFilteredFeeds are general feeds whose items must pass the tariff
// relevance check.
var DefaultFilteredFeeds = []string{
	"https://news.google.com/rss/headlines/section/topic/BUSINESS",
}

// ApplyDefaults fills zero-value fields of cfg.  Explicit values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Datasets ──────────────────────────────────────────────────────────────
	if cfg.Datasets.Source == "" {
		cfg.Datasets.Source = DefaultDatasetSource
	}
	if cfg.Datasets.SectionsPath == "" {
		cfg.Datasets.SectionsPath = DefaultSectionsPath
	}
	if cfg.Datasets.EntriesPath == "" {
		cfg.Datasets.EntriesPath = DefaultEntriesPath
	}
	if cfg.Datasets.WatchDebounce == 0 {
		cfg.Datasets.WatchDebounce = DefaultWatchDebounce
	}

	if cfg.Reference.MaxRows == 0 {
		cfg.Reference.MaxRows = DefaultMaxRows
	}
	if cfg.Reference.SearchSessions == 0 {
		cfg.Reference.SearchSessions = DefaultSearchSessions
	}
	if cfg.Pricing.BasePrice == 0 {
		cfg.Pricing.BasePrice = DefaultBasePrice
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPool
	}

	// ── News ──────────────────────────────────────────────────────────────────
	if cfg.News.Feeds == nil {
		cfg.News.Feeds = append([]string(nil), DefaultFeeds...)
	}
	if cfg.News.FilteredFeeds == nil {
		cfg.News.FilteredFeeds = append([]string(nil), DefaultFilteredFeeds...)
	}
	if cfg.News.LiveFeedURL == "" {
		cfg.News.LiveFeedURL = DefaultLiveFeedURL
	}
	if cfg.News.UserAgent == "" {
		cfg.News.UserAgent = DefaultUserAgent
	}
	if cfg.News.FetchTimeout == 0 {
		cfg.News.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.News.FetchInterval == 0 {
		cfg.News.FetchInterval = DefaultFetchInterval
	}
	if cfg.News.CleanupInterval == 0 {
		cfg.News.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.News.RetentionDays == 0 {
		cfg.News.RetentionDays = DefaultRetentionDays
	}
	if cfg.News.PageSize == 0 {
		cfg.News.PageSize = DefaultPageSize
	}
	if cfg.News.LiveCacheTTL == 0 {
		cfg.News.LiveCacheTTL = DefaultLiveCacheTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Metrics / Log ─────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a fully defaulted Config.
func Default() *Config {
	cfg := &Config{}
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
