package models

import "time"

// Audit categories.
const (
	AuditAlert        = "alert"
	AuditInstance     = "instance"
	AuditNotification = "notification"
)

// AuditEntry is one immutable row of the engine's audit trail. Every state
// transition and every notification attempt produces one; entries are never
// deleted.
type AuditEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Category   string    `json:"category"` // alert, instance, notification
	Action     string    `json:"action"`
	Actor      string    `json:"actor,omitempty"`
	AlertID    string    `json:"alert_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	RuleID     string    `json:"rule_id,omitempty"`
	Level      int       `json:"level,omitempty"`
	Recipient  string    `json:"recipient,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	Status     string    `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// AuditQuery filters audit trail listings.
type AuditQuery struct {
	Category   string    `json:"category,omitempty"`
	Action     string    `json:"action,omitempty"`
	AlertID    string    `json:"alert_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	Since      time.Time `json:"since,omitempty"`
	Until      time.Time `json:"until,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}
