package config

import "github.com/spf13/viper"

// setDefaults sets reasonable default values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Detection defaults
	v.SetDefault("detection.sla.enabled", true)
	v.SetDefault("detection.sla.interval_seconds", 300)
	v.SetDefault("detection.sla.max_delay_hours", 24)
	v.SetDefault("detection.workload.enabled", true)
	v.SetDefault("detection.workload.interval_seconds", 600)
	v.SetDefault("detection.workload.max_ratio", 1.5)
	v.SetDefault("detection.batch_age.enabled", true)
	v.SetDefault("detection.batch_age.interval_seconds", 900)
	v.SetDefault("detection.batch_age.max_age_hours", 48)

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval_seconds", 30)

	// Dispatch defaults
	v.SetDefault("dispatch.send_timeout_seconds", 10)

	// Rules bootstrap defaults
	v.SetDefault("rules.path", "")
	v.SetDefault("rules.watch", true)

	// Cache defaults (empty addr = in-memory fallback)
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 300)

	// Claims read-model defaults (empty endpoint = no detection adapters)
	v.SetDefault("claims_api.endpoint", "")
	v.SetDefault("claims_api.timeout_ms", 5000)

	// Risk engine defaults
	v.SetDefault("risk_engine.enabled", false)
	v.SetDefault("risk_engine.endpoint", "http://localhost:9200")
	v.SetDefault("risk_engine.timeout_ms", 2000)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
}
