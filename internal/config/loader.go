package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "TARIFF"

// newViper builds a Viper with YAML file type, the TARIFF_ env prefix and a
// "." → "_" key replacer so "news.api_key" resolves to TARIFF_NEWS_API_KEY.
// Every key is registered with its default so env-only overrides reach
// Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

func registerDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)

	v.SetDefault("datasets.source", d.Datasets.Source)
	v.SetDefault("datasets.policy_path", "")
	v.SetDefault("datasets.sections_path", d.Datasets.SectionsPath)
	v.SetDefault("datasets.entries_path", d.Datasets.EntriesPath)
	v.SetDefault("datasets.root_label", "")
	v.SetDefault("datasets.watch", false)
	v.SetDefault("datasets.watch_debounce", d.Datasets.WatchDebounce)

	v.SetDefault("reference.max_rows", d.Reference.MaxRows)
	v.SetDefault("reference.search_sessions", d.Reference.SearchSessions)
	v.SetDefault("pricing.base_price", d.Pricing.BasePrice)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", "")

	v.SetDefault("news.feeds", d.News.Feeds)
	v.SetDefault("news.filtered_feeds", d.News.FilteredFeeds)
	v.SetDefault("news.live_feed_url", d.News.LiveFeedURL)
	v.SetDefault("news.user_agent", d.News.UserAgent)
	v.SetDefault("news.fetch_timeout", d.News.FetchTimeout)
	v.SetDefault("news.fetch_interval", d.News.FetchInterval)
	v.SetDefault("news.cleanup_interval", d.News.CleanupInterval)
	v.SetDefault("news.retention_days", d.News.RetentionDays)
	v.SetDefault("news.page_size", d.News.PageSize)
	v.SetDefault("news.live_cache_ttl", d.News.LiveCacheTTL)
	v.SetDefault("news.api_key", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the YAML file at configPath, merges TARIFF_* overrides, applies
// defaults and validates.  An empty path loads from the environment only.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from TARIFF_* variables and defaults only.
//
//	TARIFF_<SECTION>_<FIELD>   e.g.  TARIFF_REDIS_ADDR, TARIFF_NEWS_API_KEY
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes the new
// Config to onChange.  Invalid revisions go to onError instead (which may be
// nil).  Only settings that are safe to swap at runtime, such as the log
// level, should be applied by the callback.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error.  For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
