package models

import "time"

// Severity levels carried by alert events. Detectors may override these with
// the risk-prediction service's score band.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// AlertEvent is one detected abnormal condition, deduplicated per scope.
// At most one unresolved event exists per (type, scope) at any time.
type AlertEvent struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`               // e.g. SLA_BREACH, WORKLOAD_RATIO, BATCH_AGE
	Scope     string     `json:"scope"`              // entity id; empty = global condition
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	Resolved  bool       `json:"resolved"`
	CreatedAt time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// DedupKey is the canonical alert-uniqueness key. Every call path runs
// through this one key.
type DedupKey struct {
	Type  string
	Scope string
}

func (e *AlertEvent) DedupKey() DedupKey {
	return DedupKey{Type: e.Type, Scope: e.Scope}
}

// AlertCandidate is what detection adapters emit before deduplication.
type AlertCandidate struct {
	Type     string   `json:"type"`
	Scope    string   `json:"scope"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Metadata Metadata `json:"metadata,omitempty"`
}

func (c *AlertCandidate) DedupKey() DedupKey {
	return DedupKey{Type: c.Type, Scope: c.Scope}
}

// AlertQuery filters alert event listings.
type AlertQuery struct {
	Type     string `json:"type,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Severity string `json:"severity,omitempty"`
	Resolved *bool  `json:"resolved,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// EventValue exposes the alert event as a Value tree so rule conditions can
// address both top-level fields and metadata with one dot-path syntax
// (e.g. "severity", "scope", "metadata.delayHours").
func (e *AlertEvent) EventValue() Value {
	m := map[string]Value{
		"id":       String(e.ID),
		"type":     String(e.Type),
		"scope":    String(e.Scope),
		"severity": String(e.Severity),
		"message":  String(e.Message),
		"metadata": e.Metadata.Value(),
	}
	return Map(m)
}
