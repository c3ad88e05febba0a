package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Detection  DetectionConfig  `mapstructure:"detection" yaml:"detection"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch" yaml:"dispatch"`
	Rules      RulesConfig      `mapstructure:"rules" yaml:"rules"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	ClaimsAPI  ClaimsAPIConfig  `mapstructure:"claims_api" yaml:"claims_api"`
	RiskEngine RiskEngineConfig `mapstructure:"risk_engine" yaml:"risk_engine"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// DetectionConfig holds the per-adapter scan settings. Thresholds are inputs
// to the adapters, not alert-content business rules, which stay with the
// domain services feeding the engine.
type DetectionConfig struct {
	SLA      SLADetectorConfig      `mapstructure:"sla" yaml:"sla"`
	Workload WorkloadDetectorConfig `mapstructure:"workload" yaml:"workload"`
	BatchAge BatchAgeDetectorConfig `mapstructure:"batch_age" yaml:"batch_age"`
}

type SLADetectorConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	MaxDelayHours   int  `mapstructure:"max_delay_hours" yaml:"max_delay_hours"`
}

type WorkloadDetectorConfig struct {
	Enabled         bool    `mapstructure:"enabled" yaml:"enabled"`
	IntervalSeconds int     `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	MaxRatio        float64 `mapstructure:"max_ratio" yaml:"max_ratio"`
}

type BatchAgeDetectorConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	MaxAgeHours     int  `mapstructure:"max_age_hours" yaml:"max_age_hours"`
}

// SchedulerConfig drives the escalation poll loop.
type SchedulerConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

// DispatchConfig bounds outbound channel calls.
type DispatchConfig struct {
	SendTimeoutSeconds int `mapstructure:"send_timeout_seconds" yaml:"send_timeout_seconds"`
}

// RulesConfig points at the escalation-rules bootstrap file.
type RulesConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// CacheConfig configures the Valkey/Redis node backing rate-limit windows.
// Empty Addr selects the in-memory fallback.
type CacheConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	TTL      int    `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// CORSConfig handles Cross-Origin Resource Sharing for the back-office UI.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// ClaimsAPIConfig points at the claims read-model the detection adapters
// scan. Empty Endpoint disables the adapters that need it.
type ClaimsAPIConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// RiskEngineConfig configures the external AI risk-prediction service. The
// engine only consumes its severity/score; prediction itself stays external.
type RiskEngineConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
