package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppMetrics_Helpers(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "GET", "/api/v1/reference/search", 200, 15*time.Millisecond)
	RecordSearch(m, "section", 120, true, time.Millisecond)
	RecordFeedFetch(m, "google-tariff", errors.New("timeout"), 2*time.Second)
	RecordCacheAccess(m, "live_feed", true)
	RecordCacheAccess(m, "live_feed", false)
	RecordHealth(m, "redis", true)
	RecordError(m, "newsfeed", "NEWS_001")
	m.RateResolutionsTotal.WithLabelValues("fentanyl").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",path="/api/v1/reference/search",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_reference_searches_total{scope="section",truncated="true"} 1`)
	assert.Contains(t, out, `test_unit_news_feed_fetches_total{feed="google-tariff",status="failure"} 1`)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="live_feed"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="live_feed"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="redis"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{code="NEWS_001",component="newsfeed"} 1`)
	assert.Contains(t, out, `test_unit_rate_resolutions_total{rule="fentanyl"} 1`)
}

func TestNoopAppMetrics(t *testing.T) {
	m := NewNoopAppMetrics()
	assert.NotPanics(t, func() {
		RecordHTTPRequest(m, "GET", "/", 200, time.Millisecond)
		RecordSearch(m, "all", 0, false, 0)
		RecordFeedFetch(m, "f", nil, 0)
		RecordCacheAccess(m, "c", true)
		RecordHealth(m, "x", false)
		RecordError(m, "x", "y")
		m.PolicyNodes.WithLabelValues("outcome").Set(14)
		m.NewsCleanupRemoved.WithLabelValues().Add(3)
	})
}
