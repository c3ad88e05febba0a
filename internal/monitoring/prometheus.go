// Package monitoring exposes the Prometheus scrape endpoint and small
// recording helpers shared by packages that must not import internal/metrics
// directly (pkg/cache in particular).
package monitoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilops/vigil-core/internal/metrics"
)

// SetupPrometheusMetrics configures the Prometheus metrics endpoint for
// VIGIL-CORE. Metric vectors themselves live in internal/metrics and are
// registered through promauto on the default registry.
func SetupPrometheusMetrics(router gin.IRoutes) {
	// Build info (ignore if already registered; tests set up several routers)
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vigil_core_build_info",
		Help: "Build information for VIGIL-CORE",
		ConstLabels: prometheus.Labels{
			"component": "vigil-core",
		},
	}, func() float64 { return 1 }))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RecordCacheOperation records one cache operation outcome.
// result: hit, miss, error, success.
func RecordCacheOperation(operation, result string) {
	metrics.CacheRequestsTotal.WithLabelValues(operation, result).Inc()
}
