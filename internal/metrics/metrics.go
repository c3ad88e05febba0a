// ================================
// internal/metrics/metrics.go - Self-monitoring for VIGIL-CORE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Detection adapter metrics
	DetectorTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_detector_ticks_total",
			Help: "Total number of detection adapter ticks",
		},
		[]string{"detector", "result"}, // result: ok, error, skipped
	)

	DetectorTickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_core_detector_tick_duration_seconds",
			Help:    "Detection adapter tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	// Alert lifecycle metrics
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_alerts_created_total",
			Help: "Total number of alert events created",
		},
		[]string{"type", "severity"},
	)

	AlertsDeduplicatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_alerts_deduplicated_total",
			Help: "Total number of alert candidates suppressed or merged by deduplication",
		},
		[]string{"type", "outcome"}, // outcome: unchanged, updated
	)

	// Escalation metrics
	InstancesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_escalation_instances_created_total",
			Help: "Total number of escalation instances created",
		},
		[]string{"rule"},
	)

	InstanceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_escalation_transitions_total",
			Help: "Total number of escalation instance status transitions",
		},
		[]string{"to_status"},
	)

	StepsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_escalation_steps_dispatched_total",
			Help: "Total number of escalation steps dispatched",
		},
		[]string{"level"},
	)

	StepsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_escalation_steps_skipped_total",
			Help: "Total number of escalation steps skipped by acknowledgment or termination",
		},
		[]string{"level", "reason"}, // reason: acknowledged, terminal
	)

	SchedulerLagSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_core_scheduler_lag_seconds",
			Help:    "Delay between a step's due time and its dispatch",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_notifications_total",
			Help: "Total number of notification attempts by channel and result",
		},
		[]string{"channel", "status"}, // status: sent, failed, rate_limited
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_core_notification_duration_seconds",
			Help:    "Channel send duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"channel"},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_rate_limit_hits_total",
			Help: "Total number of sends refused by a channel rate-limit window",
		},
		[]string{"channel", "window"}, // window: minute, hour, day
	)

	// Rule engine metrics
	RulesMatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_rules_matched_total",
			Help: "Total number of rule matches against alert events",
		},
		[]string{"rule"},
	)

	RulesDeactivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_rules_deactivated_total",
			Help: "Total number of rules deactivated for configuration errors",
		},
		[]string{"source"}, // source: bootstrap, api
	)

	// Valkey cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_cache_requests_total",
			Help: "Total number of cache requests",
		},
		[]string{"operation", "result"}, // get/set/incr/delete, hit/miss/error/success
	)

	// Live stream metrics
	ActiveStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_core_stream_clients_active",
			Help: "Number of connected websocket stream clients",
		},
	)
)
