package models

import "time"

// AlertTypeAll makes a rule match events of every type.
const AlertTypeAll = "ALL"

// Condition operators.
const (
	OpEquals      = "equals"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpContains    = "contains"
)

// Logical operators joining a condition to the NEXT one in the list.
const (
	JoinAnd = "AND"
	JoinOr  = "OR"
)

// Recipient kinds resolved through the directory.
const (
	RecipientUser     = "user"
	RecipientRole     = "role"
	RecipientGroup    = "group"
	RecipientExternal = "external"
)

// Condition is one predicate over an alert event. FieldPath is resolved by
// dot-path traversal into the event and its metadata; a missing path makes
// the condition false.
type Condition struct {
	FieldPath string `json:"field_path"`
	Operator  string `json:"operator"`
	Value     Value  `json:"value"`
	// LogicalOperator joins this condition's result with the next
	// condition's. Empty defaults to AND. The last condition's operator
	// is ignored.
	LogicalOperator string `json:"logical_operator,omitempty"`
}

// Recipient is an abstract notification target; the directory resolver
// expands it into concrete addressable targets.
type Recipient struct {
	Kind       string   `json:"kind"` // user, role, group, external
	Identifier string   `json:"identifier"`
	Channels   []string `json:"channels"` // NotificationChannel ids
}

// EscalationStep is one timed stage of an escalation plan. DelayMinutes is
// relative to the instance start, not to the previous step.
type EscalationStep struct {
	Level             int         `json:"level"` // 0-based, ascending
	DelayMinutes      int         `json:"delay_minutes"`
	Recipients        []Recipient `json:"recipients"`
	Actions           []string    `json:"actions"`
	StopOnAcknowledge bool        `json:"stop_on_acknowledge"`
}

// EscalationRule maps alert characteristics to a timed multi-level
// notification plan.
type EscalationRule struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	AlertType  string           `json:"alert_type"` // event type or "ALL"
	Severity   string           `json:"severity,omitempty"`
	Conditions []Condition      `json:"conditions"`
	Steps      []EscalationStep `json:"steps"`
	Active     bool             `json:"active"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// AppliesTo reports whether the rule's alert-type selector covers the event.
// Condition evaluation is the matcher's job.
func (r *EscalationRule) AppliesTo(eventType string) bool {
	return r.Active && (r.AlertType == AlertTypeAll || r.AlertType == eventType)
}

// StepForLevel returns the step at the given level, nil when absent.
func (r *EscalationRule) StepForLevel(level int) *EscalationStep {
	for i := range r.Steps {
		if r.Steps[i].Level == level {
			return &r.Steps[i]
		}
	}
	return nil
}
