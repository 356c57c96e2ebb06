package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Policy tree
	NodeSelectionsTotal  CounterVec
	RateResolutionsTotal CounterVec
	PolicyNodes          GaugeVec
	PolicyOmissions      GaugeVec

	// Reference search
	ReferenceSearchesTotal  CounterVec
	ReferenceSearchDuration HistogramVec
	ReferenceSearchResults  HistogramVec
	ReferenceEntries        GaugeVec

	// Datasets
	DatasetReloadsTotal CounterVec

	// News
	NewsFetchTotal       CounterVec
	NewsFetchDuration    HistogramVec
	NewsItemsTotal       CounterVec
	NewsIngestDuration   HistogramVec
	NewsCleanupRemoved   CounterVec
	EventsPublishedTotal CounterVec

	// Infrastructure
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSearchDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25}
	DefaultResultCountBuckets    = []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000, 5000}
	DefaultFetchDurationBuckets  = []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60}
)

// NewAppMetrics registers every application metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.NodeSelectionsTotal = collector.RegisterCounter("node_selections_total", "Policy tree node selections", "kind")
	m.RateResolutionsTotal = collector.RegisterCounter("rate_resolutions_total", "Rate expressions resolved, by matching rule", "rule")
	m.PolicyNodes = collector.RegisterGauge("policy_nodes", "Nodes in the loaded policy tree", "kind")
	m.PolicyOmissions = collector.RegisterGauge("policy_omissions", "Malformed policy branches omitted at load")

	m.ReferenceSearchesTotal = collector.RegisterCounter("reference_searches_total", "Reference table searches", "scope", "truncated")
	m.ReferenceSearchDuration = collector.RegisterHistogram("reference_search_duration_seconds", "Reference search duration", DefaultSearchDurationBuckets, "scope")
	m.ReferenceSearchResults = collector.RegisterHistogram("reference_search_results", "Matches per reference search before truncation", DefaultResultCountBuckets, "scope")
	m.ReferenceEntries = collector.RegisterGauge("reference_entries", "Loaded reference rows", "kind")

	m.DatasetReloadsTotal = collector.RegisterCounter("dataset_reloads_total", "Dataset reload attempts", "status")

	m.NewsFetchTotal = collector.RegisterCounter("news_feed_fetches_total", "Feed fetches", "feed", "status")
	m.NewsFetchDuration = collector.RegisterHistogram("news_feed_fetch_duration_seconds", "Feed fetch duration", DefaultFetchDurationBuckets, "feed")
	m.NewsItemsTotal = collector.RegisterCounter("news_items_total", "Feed items seen during ingestion, by outcome", "outcome")
	m.NewsIngestDuration = collector.RegisterHistogram("news_ingest_duration_seconds", "Full ingestion run duration", DefaultFetchDurationBuckets)
	m.NewsCleanupRemoved = collector.RegisterCounter("news_cleanup_removed_total", "Items removed by retention cleanup")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Events handed to the broker", "event", "status")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// NewNoopAppMetrics returns metrics that record nothing.
func NewNoopAppMetrics() *AppMetrics {
	c, h, g := noopCounterVec{}, noopHistogramVec{}, noopGaugeVec{}
	return &AppMetrics{
		HTTPRequestsTotal: c, HTTPRequestDuration: h, HTTPActiveRequests: g,
		NodeSelectionsTotal: c, RateResolutionsTotal: c, PolicyNodes: g, PolicyOmissions: g,
		ReferenceSearchesTotal: c, ReferenceSearchDuration: h, ReferenceSearchResults: h, ReferenceEntries: g,
		DatasetReloadsTotal: c,
		NewsFetchTotal: c, NewsFetchDuration: h, NewsItemsTotal: c, NewsIngestDuration: h,
		NewsCleanupRemoved: c, EventsPublishedTotal: c,
		CacheHitsTotal: c, CacheMissesTotal: c, HealthCheckStatus: g, ErrorsTotal: c,
	}
}

// Helpers

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSearch records one reference search.  scope is "all" or "section".
func RecordSearch(m *AppMetrics, scope string, matches int, truncated bool, duration time.Duration) {
	m.ReferenceSearchesTotal.WithLabelValues(scope, strconv.FormatBool(truncated)).Inc()
	m.ReferenceSearchDuration.WithLabelValues(scope).Observe(duration.Seconds())
	m.ReferenceSearchResults.WithLabelValues(scope).Observe(float64(matches))
}

func RecordFeedFetch(m *AppMetrics, feed string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.NewsFetchTotal.WithLabelValues(feed, status).Inc()
	m.NewsFetchDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordHealth(m *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
