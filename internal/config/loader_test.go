package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/models"
)

func TestConfigLoading(t *testing.T) {
	t.Run("load from file", func(t *testing.T) {
		configContent := `
environment: test
port: 9999
log_level: debug

scheduler:
  poll_interval_seconds: 5

detection:
  sla:
    enabled: true
    interval_seconds: 60
    max_delay_hours: 12

cache:
  addr: "test-valkey:6379"
  ttl: 30
`
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(configContent)
		require.NoError(t, err)
		tmpFile.Close()

		os.Setenv("CONFIG_PATH", tmpFile.Name())
		defer os.Unsetenv("CONFIG_PATH")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test", config.Environment)
		assert.Equal(t, 9999, config.Port)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, 5, config.Scheduler.PollIntervalSeconds)
		assert.Equal(t, 60, config.Detection.SLA.IntervalSeconds)
		assert.Equal(t, 12, config.Detection.SLA.MaxDelayHours)
		assert.Equal(t, "test-valkey:6379", config.Cache.Addr)
		assert.Equal(t, 30, config.Cache.TTL)
	})

	t.Run("defaults", func(t *testing.T) {
		os.Unsetenv("CONFIG_PATH")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, 30, config.Scheduler.PollIntervalSeconds)
		assert.Equal(t, 10, config.Dispatch.SendTimeoutSeconds)
		assert.True(t, config.Detection.SLA.Enabled)
		assert.False(t, config.Tracing.Enabled)
	})

	t.Run("validation rejects bad values", func(t *testing.T) {
		content := `
port: 0
`
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())
		_, err = tmpFile.WriteString(content)
		require.NoError(t, err)
		tmpFile.Close()

		os.Setenv("CONFIG_PATH", tmpFile.Name())
		defer os.Unsetenv("CONFIG_PATH")

		_, err = Load()
		assert.Error(t, err)
	})
}

func TestLoadRulesFile(t *testing.T) {
	content := `
channels:
  - id: email-default
    type: email
    rate_limits:
      max_per_minute: 10
      max_per_hour: 100
      max_per_day: 500

rules:
  - id: sla-breach
    name: SLA breach escalation
    alert_type: SLA_BREACH
    severity: high
    conditions:
      - field_path: metadata.delayHours
        operator: greater_than
        value: 24
    steps:
      - level: 0
        delay_minutes: 0
        recipients:
          - kind: role
            identifier: SUPERVISOR
            channels: [email-default]
      - level: 1
        delay_minutes: 60
        stop_on_acknowledge: true
        recipients:
          - kind: role
            identifier: MANAGER
            channels: [email-default]
`
	tmpFile, err := os.CreateTemp("", "rules-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()

	f, err := LoadRulesFile(tmpFile.Name())
	require.NoError(t, err)
	require.Len(t, f.Channels, 1)
	require.Len(t, f.Rules, 1)

	ch := f.Channels[0].ToModel()
	assert.Equal(t, "email-default", ch.ID)
	assert.Equal(t, models.ChannelEmail, ch.Type)
	assert.Equal(t, 10, ch.RateLimits.MaxPerMinute)
	assert.True(t, ch.Active)

	rule := f.Rules[0].ToModel()
	require.NoError(t, models.ValidateRule(rule))
	assert.Equal(t, "SLA_BREACH", rule.AlertType)
	assert.True(t, rule.Active)
	require.Len(t, rule.Conditions, 1)
	n, ok := rule.Conditions[0].Value.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, float64(24), n)
	require.Len(t, rule.Steps, 2)
	assert.True(t, rule.Steps[1].StopOnAcknowledge)
}
