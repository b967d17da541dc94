// Package metrics exposes Prometheus instrumentation for the HTTP
// surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	invoicesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backoffice_invoices_created_total",
			Help: "Invoices created since process start.",
		},
	)

	authDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_auth_denials_total",
			Help: "Requests denied by authentication or authorization.",
		},
		[]string{"status"},
	)
)

// Middleware records request counts and latency per route. The route
// template (not the raw URL) is used to bound label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		if c.Writer.Status() == 401 || c.Writer.Status() == 403 {
			authDenialsTotal.WithLabelValues(status).Inc()
		}
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// InvoiceCreated bumps the invoice creation counter.
func InvoiceCreated() {
	invoicesCreatedTotal.Inc()
}
