package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scan-service/pkg/metrics"
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/metrics" || path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		// Use the route template so path cardinality stays bounded
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint returns a gin handler serving the prometheus registry
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
