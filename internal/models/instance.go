package models

import "time"

// EscalationInstance statuses. The machine only moves forward:
// active → acknowledged → resolved; active → resolved; active → cancelled.
const (
	InstanceActive       = "active"
	InstanceAcknowledged = "acknowledged"
	InstanceResolved     = "resolved"
	InstanceCancelled    = "cancelled"
)

// History entry actions. Notification attempts use the step's action name
// (default ActionNotify); lifecycle transitions use the fixed names below.
const (
	ActionNotify       = "notify"
	ActionAcknowledged = "acknowledged"
	ActionResolved     = "resolved"
	ActionCancelled    = "cancelled"
)

// EscalationEvent is one append-only history entry of an instance. Entries
// are never mutated after being recorded.
type EscalationEvent struct {
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Recipient string    `json:"recipient,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Status    string    `json:"status,omitempty"` // sent, failed, rate_limited
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// EscalationInstance is one running execution of a rule against one alert.
// At most one non-terminal instance exists per (alertId, ruleId) pair, and
// instances are retained forever for audit.
type EscalationInstance struct {
	ID             string            `json:"id"`
	AlertID        string            `json:"alert_id"`
	RuleID         string            `json:"rule_id"`
	Status         string            `json:"status"`
	StartedAt      time.Time         `json:"started_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string            `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy     string            `json:"resolved_by,omitempty"`
	ResolveNote    string            `json:"resolve_note,omitempty"`
	History        []EscalationEvent `json:"history"`
}

func (i *EscalationInstance) IsTerminal() bool {
	return i.Status == InstanceResolved || i.Status == InstanceCancelled
}

// LevelDispatched reports whether history already records an attempt (or a
// lifecycle skip) for the given step level, so due-step computation can be
// re-derived after a restart.
func (i *EscalationInstance) LevelDispatched(level int) bool {
	for _, h := range i.History {
		if h.Level == level && h.Action != ActionAcknowledged &&
			h.Action != ActionResolved && h.Action != ActionCancelled {
			return true
		}
	}
	return false
}

// DueAt computes the absolute due time of a step for this instance.
func (i *EscalationInstance) DueAt(step EscalationStep) time.Time {
	return i.StartedAt.Add(time.Duration(step.DelayMinutes) * time.Minute)
}

// InstanceQuery filters escalation instance listings.
type InstanceQuery struct {
	AlertID string `json:"alert_id,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}
