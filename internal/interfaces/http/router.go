package http

import (
	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
	"github.com/haebom/tariff/internal/interfaces/http/handlers"
	"github.com/haebom/tariff/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	PolicyHandler    *handlers.PolicyHandler
	ReferenceHandler *handlers.ReferenceHandler
	SelectionHandler *handlers.SelectionHandler
	NewsHandler      *handlers.NewsHandler
	HealthHandler    *handlers.HealthHandler

	// Middleware
	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig
	// APIKey guards the news mutation endpoints.  Empty disables the guard.
	APIKey string
	// Limiter throttles the news endpoints that reach upstream feeds.
	Limiter middleware.RateLimiter

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration.  Nil handlers leave their routes unmounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := gin.New()

	// --- Global middleware ---
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	// --- Probes and metrics ---
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.PolicyHandler != nil {
		cfg.PolicyHandler.RegisterRoutes(api)
	}
	if cfg.ReferenceHandler != nil {
		cfg.ReferenceHandler.RegisterRoutes(api)
	}
	if cfg.SelectionHandler != nil {
		cfg.SelectionHandler.RegisterRoutes(api)
	}
	if h := cfg.NewsHandler; h != nil {
		h.RegisterRoutes(api)

		var limit []gin.HandlerFunc
		if cfg.Limiter != nil {
			limit = append(limit, middleware.RateLimit(cfg.Limiter))
		}
		guard := middleware.RequireAPIKey(cfg.APIKey)

		api.POST("/news/fetch", chain(limit, guard, h.Fetch)...)
		api.POST("/news/cleanup", guard, h.Cleanup)
		r.GET("/api/rss", chain(limit, h.RSS)...)
	}

	return r
}

// chain returns pre followed by hs in a fresh slice.
func chain(pre []gin.HandlerFunc, hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+len(hs))
	return append(append(out, pre...), hs...)
}
