// API server entry point for the tariff dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/bootstrap"
	"github.com/haebom/tariff/internal/config"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	httpserver "github.com/haebom/tariff/internal/interfaces/http"
	"github.com/haebom/tariff/internal/interfaces/http/handlers"
	"github.com/haebom/tariff/internal/interfaces/http/middleware"
	"github.com/haebom/tariff/pkg/errors"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := run(cfg, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig falls back to environment and defaults when the file is absent.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, configPath string) error {
	rt, err := bootstrap.New(cfg, "apiserver")
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting tariff API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("dataset_source", cfg.Datasets.Source),
	)

	if _, err := os.Stat(configPath); err == nil {
		err := config.Watch(configPath, func(next *config.Config) {
			logger.SetLevel(next.Log.Level)
			logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	datasets, err := rt.Datasets(ctx)
	if err != nil {
		return err
	}
	if cfg.Datasets.Watch {
		go func() {
			if err := datasets.Watch(ctx, cfg.Datasets.WatchDebounce); err != nil {
				logger.Error("dataset watcher stopped", logging.Err(err))
			}
		}()
	}
	svc := rt.Dashboard(datasets)

	checkers := []handlers.HealthChecker{
		handlers.CheckerFunc{ComponentName: "datasets", Fn: func(context.Context) error {
			if !datasets.Ready() {
				return errors.New(errors.ErrCodeServiceUnavailable, "datasets not loaded")
			}
			return nil
		}},
	}

	routerCfg := httpserver.RouterConfig{
		PolicyHandler:    handlers.NewPolicyHandler(svc, logger),
		ReferenceHandler: handlers.NewReferenceHandler(svc, logger),
		SelectionHandler: handlers.NewSelectionHandler(svc, logger),
		Logging: middleware.LoggingConfig{
			SkipPaths:     []string{"/healthz", "/readyz", cfg.Metrics.Path},
			SlowThreshold: 2 * time.Second,
		},
		APIKey:           cfg.News.APIKey,
		Logger:           logger,
		Metrics:          rt.Metrics,
		MetricsCollector: rt.Collector,
	}

	if cfg.Redis.Enabled {
		newsSvc, err := rt.News(ctx)
		if err != nil {
			return err
		}
		routerCfg.NewsHandler = handlers.NewNewsHandler(newsSvc, svc, logger)
	} else {
		logger.Warn("redis disabled, news endpoints are not mounted")
	}
	if check := rt.RedisCheck(); check != nil {
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "redis", Fn: check})
	}
	if check := rt.ObjectsCheck(); check != nil {
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "minio", Fn: check})
	}
	routerCfg.HealthHandler = handlers.NewHealthHandler(version, rt.Metrics, checkers...)

	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 10*time.Minute)
		defer limiter.Stop()
		routerCfg.Limiter = limiter
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		routerCfg.CORS = &cors
	}

	gin.SetMode(cfg.Server.Mode)
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
