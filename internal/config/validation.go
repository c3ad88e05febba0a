package config

import (
	"fmt"
	"net/url"
)

func validateConfig(c *Config) error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	if c.Scheduler.PollIntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.poll_interval_seconds must be positive")
	}
	if c.Dispatch.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("dispatch.send_timeout_seconds must be positive")
	}

	for name, interval := range map[string]int{
		"detection.sla.interval_seconds":       c.Detection.SLA.IntervalSeconds,
		"detection.workload.interval_seconds":  c.Detection.Workload.IntervalSeconds,
		"detection.batch_age.interval_seconds": c.Detection.BatchAge.IntervalSeconds,
	} {
		if interval <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.ClaimsAPI.Endpoint != "" {
		if err := validateEndpoint(c.ClaimsAPI.Endpoint); err != nil {
			return fmt.Errorf("claims_api.endpoint: %w", err)
		}
	}

	if c.RiskEngine.Enabled {
		if err := validateEndpoint(c.RiskEngine.Endpoint); err != nil {
			return fmt.Errorf("risk_engine.endpoint: %w", err)
		}
		if c.RiskEngine.TimeoutMs <= 0 {
			return fmt.Errorf("risk_engine.timeout_ms must be positive")
		}
	}

	return nil
}

// validateEndpoint validates that an endpoint is a proper http(s) URL.
func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint must include host")
	}
	return nil
}
