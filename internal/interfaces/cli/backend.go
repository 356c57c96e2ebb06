package cli

import (
	"context"
	"io"
	"sync"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/application/newsfeed"
	"github.com/haebom/tariff/internal/bootstrap"
	"github.com/haebom/tariff/internal/config"
	"github.com/haebom/tariff/internal/infrastructure/datasource"
	"github.com/haebom/tariff/internal/infrastructure/messaging/kafka"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	objstore "github.com/haebom/tariff/internal/infrastructure/storage/minio"
)

// Uploader stores dataset objects.
type Uploader interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (objstore.ObjectInfo, error)
	Bucket() string
}

// Backend gives commands their services.  Everything is built lazily so a
// policy lookup never dials Redis.
type Backend interface {
	Snapshot(ctx context.Context) (*datasource.Snapshot, error)
	Dashboard(ctx context.Context) (dashboard.Service, error)
	News(ctx context.Context) (newsfeed.Service, error)
	Uploader(ctx context.Context) (Uploader, error)
	// Tail streams ingestion events until ctx ends.
	Tail(ctx context.Context, fromLatest bool, fn func(kafka.NewsIngestedPayload) error) error
	Close() error
}

type runtimeBackend struct {
	rt *bootstrap.Runtime

	once     sync.Once
	datasets *datasource.Manager
	dsErr    error
}

// NewRuntimeBackend is the production BackendFactory.
func NewRuntimeBackend(cfg *config.Config, logger logging.Logger) (Backend, error) {
	// The CLI never serves metrics.
	cfg.Metrics.Enabled = false
	rt, err := bootstrap.NewWithLogger(cfg, "tariff-cli", logger)
	if err != nil {
		return nil, err
	}
	return &runtimeBackend{rt: rt}, nil
}

func (b *runtimeBackend) load(ctx context.Context) (*datasource.Manager, error) {
	b.once.Do(func() {
		b.datasets, b.dsErr = b.rt.Datasets(ctx)
	})
	return b.datasets, b.dsErr
}

func (b *runtimeBackend) Snapshot(ctx context.Context) (*datasource.Snapshot, error) {
	m, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return m.Current(), nil
}

func (b *runtimeBackend) Dashboard(ctx context.Context) (dashboard.Service, error) {
	m, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return b.rt.Dashboard(m), nil
}

func (b *runtimeBackend) News(ctx context.Context) (newsfeed.Service, error) {
	return b.rt.News(ctx)
}

func (b *runtimeBackend) Uploader(ctx context.Context) (Uploader, error) {
	return b.rt.Objects(ctx)
}

func (b *runtimeBackend) Tail(ctx context.Context, fromLatest bool, fn func(kafka.NewsIngestedPayload) error) error {
	consumer, err := b.rt.Consumer("tariff-cli-tail", fromLatest, b.rt.Config.Kafka.Topic)
	if err != nil {
		return err
	}
	defer consumer.Close()

	consumer.Subscribe(b.rt.Config.Kafka.Topic, func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.DecodeEnvelope(msg)
		if err != nil {
			return err
		}
		var p kafka.NewsIngestedPayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		return fn(p)
	})
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (b *runtimeBackend) Close() error { return b.rt.Close() }
