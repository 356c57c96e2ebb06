package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency by route template, so path
// parameters do not explode label cardinality.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		active := m.HTTPActiveRequests.WithLabelValues(c.Request.Method)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
