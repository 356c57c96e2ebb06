// Package bootstrap builds the runtime object graph shared by the API
// server, the worker and the CLI from a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/application/newsfeed"
	"github.com/haebom/tariff/internal/config"
	"github.com/haebom/tariff/internal/infrastructure/database/redis"
	"github.com/haebom/tariff/internal/infrastructure/datasource"
	"github.com/haebom/tariff/internal/infrastructure/feed"
	"github.com/haebom/tariff/internal/infrastructure/messaging/kafka"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
	objstore "github.com/haebom/tariff/internal/infrastructure/storage/minio"
)

// IngestLockTTL bounds how long a crashed ingestion can block the next one.
const IngestLockTTL = 10 * time.Minute

// Runtime owns the long-lived clients.  Close releases them in reverse
// order of creation.
type Runtime struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Source    string

	redis    *redis.Client
	objects  *objstore.Client
	producer *kafka.Producer
	events   *kafka.NewsEvents
	closers  []func() error
}

// New creates the logger and the metrics registry.  Remote clients are
// created on first use.
func New(cfg *config.Config, source string) (*Runtime, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	return NewWithLogger(cfg, source, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, source string, logger logging.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger, Source: source, Metrics: prometheus.NewNoopAppMetrics()}
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
			ConstLabels:          map[string]string{"component": source},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics initialization failed: %w", err)
		}
		rt.Collector = collector
		rt.Metrics = prometheus.NewAppMetrics(collector)
	}
	return rt, nil
}

// Redis connects on first call.
func (rt *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	if rt.redis != nil {
		return rt.redis, nil
	}
	c := rt.Config.Redis
	client, err := redis.NewClient(ctx, redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		KeyPrefix:    c.KeyPrefix,
	}, rt.Logger.Named("redis"))
	if err != nil {
		return nil, err
	}
	rt.redis = client
	rt.closers = append(rt.closers, client.Close)
	return client, nil
}

// Objects connects to MinIO on first call.
func (rt *Runtime) Objects(ctx context.Context) (*objstore.Client, error) {
	if rt.objects != nil {
		return rt.objects, nil
	}
	c := rt.Config.MinIO
	client, err := objstore.NewClient(ctx, objstore.Config{
		Endpoint:     c.Endpoint,
		AccessKey:    c.AccessKey,
		SecretKey:    c.SecretKey,
		Bucket:       c.Bucket,
		UseSSL:       c.UseSSL,
		Region:       c.Region,
		CreateBucket: true,
	}, rt.Logger.Named("minio"))
	if err != nil {
		return nil, err
	}
	rt.objects = client
	rt.closers = append(rt.closers, client.Close)
	return client, nil
}

// Events returns the Kafka event publisher, or nil when Kafka is disabled.
func (rt *Runtime) Events() (*kafka.NewsEvents, error) {
	if !rt.Config.Kafka.Enabled {
		return nil, nil
	}
	if rt.events != nil {
		return rt.events, nil
	}
	c := rt.Config.Kafka
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      c.Brokers,
		RequiredAcks: c.RequiredAcks,
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
		WriteTimeout: c.WriteTimeout,
	}, rt.Logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	rt.producer = producer
	rt.events = kafka.NewNewsEvents(producer, rt.Source, c.Topic)
	rt.closers = append(rt.closers, producer.Close)
	return rt.events, nil
}

// Datasets builds the dataset manager and performs the first load.
func (rt *Runtime) Datasets(ctx context.Context) (*datasource.Manager, error) {
	c := rt.Config.Datasets
	var src datasource.Source = datasource.FileSource{}
	if c.Source == config.SourceMinIO {
		objects, err := rt.Objects(ctx)
		if err != nil {
			return nil, err
		}
		src = datasource.NewObjectSource(objects)
	}

	opts := datasource.ManagerOptions{RootLabel: c.RootLabel, Metrics: rt.Metrics}
	events, err := rt.Events()
	if err != nil {
		return nil, err
	}
	if events != nil {
		opts.Listener = events
	}

	m := datasource.NewManager(src, datasource.Paths{
		Policy:   c.PolicyPath,
		Sections: c.SectionsPath,
		Entries:  c.EntriesPath,
	}, opts, rt.Logger)
	if _, err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Dashboard builds the dashboard service over data.
func (rt *Runtime) Dashboard(data dashboard.DatasetProvider) dashboard.Service {
	return dashboard.NewService(data, dashboard.Config{
		BasePrice: rt.Config.Pricing.BasePrice,
		MaxRows:   rt.Config.Reference.MaxRows,
		Sessions:  rt.Config.Reference.SearchSessions,
	}, rt.Metrics, rt.Logger)
}

// News builds the news service on Redis.
func (rt *Runtime) News(ctx context.Context) (newsfeed.Service, error) {
	client, err := rt.Redis(ctx)
	if err != nil {
		return nil, err
	}
	c := rt.Config.News
	deps := newsfeed.Deps{
		Repo: redis.NewNewsStore(client, rt.Logger.Named("news_store")),
		Fetcher: feed.NewFetcher(feed.Options{
			UserAgent: c.UserAgent,
			Timeout:   c.FetchTimeout,
		}, rt.Logger),
		Lock:    redis.NewMutex(client, "news-ingest", IngestLockTTL),
		Cache:   redis.NewRedisCache(client, rt.Logger.Named("cache"), redis.WithNamespace("news")),
		Metrics: rt.Metrics,
	}
	events, err := rt.Events()
	if err != nil {
		return nil, err
	}
	if events != nil {
		deps.Events = events
	}
	return newsfeed.NewService(deps, newsfeed.Config{
		Feeds:         c.Feeds,
		FilteredFeeds: c.FilteredFeeds,
		LiveFeedURL:   c.LiveFeedURL,
		PageSize:      c.PageSize,
		RetentionDays: c.RetentionDays,
		LiveCacheTTL:  c.LiveCacheTTL,
	}, rt.Logger), nil
}

// Consumer creates a Kafka consumer for topics.
func (rt *Runtime) Consumer(groupID string, fromLatest bool, topics ...string) (*kafka.Consumer, error) {
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    rt.Config.Kafka.Brokers,
		GroupID:    groupID,
		Topics:     topics,
		FromLatest: fromLatest,
	}, rt.Logger.Named("kafka"))
}

// RedisCheck reports Redis health for readiness probes.  It is nil until
// Redis has been connected.
func (rt *Runtime) RedisCheck() func(ctx context.Context) error {
	if rt.redis == nil {
		return nil
	}
	return rt.redis.Ping
}

// ObjectsCheck reports MinIO health; nil until connected.
func (rt *Runtime) ObjectsCheck() func(ctx context.Context) error {
	if rt.objects == nil {
		return nil
	}
	return rt.objects.HealthCheck
}

// Close releases every client.  The first error is returned.
func (rt *Runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	return first
}
