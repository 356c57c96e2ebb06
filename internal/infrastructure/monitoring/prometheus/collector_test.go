package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestCollector_CounterGaugeHistogram(t *testing.T) {
	c := newTestCollector(t)

	c.RegisterCounter("hits_total", "hits", "kind").WithLabelValues("a").Add(2)
	c.RegisterGauge("depth", "depth", "q").WithLabelValues("x").Set(7)
	c.RegisterHistogram("latency_seconds", "latency", nil, "op").WithLabelValues("get").Observe(0.2)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_hits_total{kind="a"} 2`)
	assert.Contains(t, out, `test_unit_depth{q="x"} 7`)
	assert.Contains(t, out, `test_unit_latency_seconds_count{op="get"} 1`)
}

func TestCollector_DuplicateRegistrationSharesSeries(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("v").Inc()
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("v").Inc()

	n, err := testutil.GatherAndCount(c.Gatherer(), "test_unit_dup_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, scrape(t, c), `test_unit_dup_total{k="v"} 2`)
}

func TestCollector_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("shape", "shape")
	g := c.RegisterGauge("shape", "shape")
	assert.IsType(t, noopGaugeVec{}, g)
	assert.NotPanics(t, func() { g.WithLabelValues().Set(1) })
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "op", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.ObserveDuration(), time.Duration(0))
	assert.Contains(t, scrape(t, c), "test_unit_op_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
