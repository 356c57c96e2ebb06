// Background worker for the tariff dashboard: periodic news ingestion and
// retention cleanup, with health and metrics endpoints for probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/application/newsfeed"
	"github.com/haebom/tariff/internal/bootstrap"
	"github.com/haebom/tariff/internal/config"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	httpserver "github.com/haebom/tariff/internal/interfaces/http"
	"github.com/haebom/tariff/internal/interfaces/http/handlers"
)

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	defaultHealthPort       = 8081
	shutdownTimeout         = 10 * time.Second
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	once := flag.Bool("once", false, "run a single ingest and cleanup, then exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Redis.Enabled {
		fmt.Fprintln(os.Stderr, "worker requires redis.enabled")
		os.Exit(1)
	}

	if err := run(cfg, *healthPort, *once); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, healthPort int, once bool) error {
	rt, err := bootstrap.New(cfg, "worker")
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := rt.News(ctx)
	if err != nil {
		return err
	}

	if once {
		res, err := svc.Ingest(ctx)
		if err != nil {
			return err
		}
		cleaned, err := svc.Cleanup(ctx, 0)
		if err != nil {
			return err
		}
		logger.Info("worker run complete",
			logging.Int("new", res.New),
			logging.Int("processed", res.Processed),
			logging.Int("removed", cleaned.Removed),
		)
		return nil
	}

	logger.Info("starting tariff worker",
		logging.String("version", version),
		logging.Duration("fetch_interval", cfg.News.FetchInterval),
		logging.Duration("cleanup_interval", cfg.News.CleanupInterval),
		logging.Int("feeds", len(cfg.News.Feeds)+len(cfg.News.FilteredFeeds)),
	)

	healthSrv := startHealthServer(cfg, rt, healthPort)

	newsfeed.NewScheduler(svc, cfg.News.FetchInterval, cfg.News.CleanupInterval, logger.Named("scheduler")).Run(ctx)

	logger.Info("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}
	return nil
}

// startHealthServer exposes probes and metrics on their own port.
func startHealthServer(cfg *config.Config, rt *bootstrap.Runtime, port int) *httpserver.Server {
	var checkers []handlers.HealthChecker
	if check := rt.RedisCheck(); check != nil {
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "redis", Fn: check})
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, rt.Metrics, checkers...),
		Logger:           rt.Logger,
		MetricsCollector: rt.Collector,
	})

	srvCfg := cfg.Server
	srvCfg.Port = port
	srv := httpserver.NewServer(srvCfg, router, rt.Logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			rt.Logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}
