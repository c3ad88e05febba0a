package models

import "fmt"

// ConfigError marks a malformed rule or channel definition. The engine
// reacts by deactivating the offending object and carrying on; it never
// aborts the process for configuration problems.
type ConfigError struct {
	Object string // "rule" or "channel"
	ID     string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s: %s", e.Object, e.ID, e.Field, e.Reason)
}

func ruleErr(id, field, reason string) error {
	return &ConfigError{Object: "rule", ID: id, Field: field, Reason: reason}
}

var validOperators = map[string]bool{
	OpEquals:      true,
	OpGreaterThan: true,
	OpLessThan:    true,
	OpContains:    true,
}

var validJoins = map[string]bool{
	"":      true, // defaults to AND
	JoinAnd: true,
	JoinOr:  true,
}

var validRecipientKinds = map[string]bool{
	RecipientUser:     true,
	RecipientRole:     true,
	RecipientGroup:    true,
	RecipientExternal: true,
}

// ValidateRule checks an escalation rule for structural problems. A non-nil
// return is always a *ConfigError.
func ValidateRule(r *EscalationRule) error {
	if r.Name == "" {
		return ruleErr(r.ID, "name", "must not be empty")
	}
	if r.AlertType == "" {
		return ruleErr(r.ID, "alert_type", "must not be empty (use ALL to match every type)")
	}
	for i, c := range r.Conditions {
		if c.FieldPath == "" {
			return ruleErr(r.ID, fmt.Sprintf("conditions[%d].field_path", i), "must not be empty")
		}
		if !validOperators[c.Operator] {
			return ruleErr(r.ID, fmt.Sprintf("conditions[%d].operator", i),
				fmt.Sprintf("unknown operator %q", c.Operator))
		}
		if !validJoins[c.LogicalOperator] {
			return ruleErr(r.ID, fmt.Sprintf("conditions[%d].logical_operator", i),
				fmt.Sprintf("unknown logical operator %q", c.LogicalOperator))
		}
	}
	if len(r.Steps) == 0 {
		return ruleErr(r.ID, "steps", "must contain at least one step")
	}
	prevLevel := -1
	prevDelay := -1
	for i, s := range r.Steps {
		if s.Level <= prevLevel {
			return ruleErr(r.ID, fmt.Sprintf("steps[%d].level", i), "levels must be ascending")
		}
		if s.DelayMinutes < 0 {
			return ruleErr(r.ID, fmt.Sprintf("steps[%d].delay_minutes", i), "must not be negative")
		}
		if s.DelayMinutes < prevDelay {
			return ruleErr(r.ID, fmt.Sprintf("steps[%d].delay_minutes", i),
				"delays must not decrease across levels")
		}
		if len(s.Recipients) == 0 {
			return ruleErr(r.ID, fmt.Sprintf("steps[%d].recipients", i), "must not be empty")
		}
		for j, rec := range s.Recipients {
			if !validRecipientKinds[rec.Kind] {
				return ruleErr(r.ID, fmt.Sprintf("steps[%d].recipients[%d].kind", i, j),
					fmt.Sprintf("unknown recipient kind %q", rec.Kind))
			}
			if rec.Identifier == "" {
				return ruleErr(r.ID, fmt.Sprintf("steps[%d].recipients[%d].identifier", i, j),
					"must not be empty")
			}
			if len(rec.Channels) == 0 {
				return ruleErr(r.ID, fmt.Sprintf("steps[%d].recipients[%d].channels", i, j),
					"must reference at least one channel")
			}
		}
		prevLevel = s.Level
		prevDelay = s.DelayMinutes
	}
	return nil
}

// ValidateChannel checks a notification channel definition.
func ValidateChannel(c *NotificationChannel) error {
	if c.ID == "" {
		return &ConfigError{Object: "channel", ID: c.ID, Field: "id", Reason: "must not be empty"}
	}
	switch c.Type {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelChat, ChannelWebhook:
	default:
		return &ConfigError{Object: "channel", ID: c.ID, Field: "type",
			Reason: fmt.Sprintf("unknown channel type %q", c.Type)}
	}
	rl := c.RateLimits
	if rl.MaxPerMinute < 0 || rl.MaxPerHour < 0 || rl.MaxPerDay < 0 {
		return &ConfigError{Object: "channel", ID: c.ID, Field: "rate_limits",
			Reason: "limits must not be negative"}
	}
	return nil
}

// ValidateCandidate checks an inbound alert candidate.
func ValidateCandidate(c *AlertCandidate) error {
	if c.Type == "" {
		return &ConfigError{Object: "candidate", Field: "type", Reason: "must not be empty"}
	}
	if c.Message == "" {
		return &ConfigError{Object: "candidate", Field: "message", Reason: "must not be empty"}
	}
	switch c.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return nil
	default:
		return &ConfigError{Object: "candidate", Field: "severity",
			Reason: fmt.Sprintf("unknown severity %q", c.Severity)}
	}
}
