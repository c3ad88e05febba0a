package storage

import (
	"context"
	"errors"

	"github.com/vigilops/vigil-core/internal/models"
)

var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a create would violate a uniqueness
	// guarantee (one unresolved alert per (type, scope), one non-terminal
	// instance per (alertId, ruleId)).
	ErrConflict = errors.New("storage: conflict")
)

// AlertStore persists alert events. The store enforces the unresolved
// (type, scope) uniqueness constraint on create.
type AlertStore interface {
	CreateAlert(ctx context.Context, event *models.AlertEvent) error
	GetAlert(ctx context.Context, id string) (*models.AlertEvent, error)
	// FindOpenAlert returns the single unresolved event for the key, or
	// ErrNotFound.
	FindOpenAlert(ctx context.Context, key models.DedupKey) (*models.AlertEvent, error)
	UpdateAlert(ctx context.Context, event *models.AlertEvent) error
	ListAlerts(ctx context.Context, q models.AlertQuery) ([]*models.AlertEvent, error)
}

// RuleStore persists escalation rules. Rules are deactivated, never removed.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.EscalationRule) error
	GetRule(ctx context.Context, id string) (*models.EscalationRule, error)
	UpdateRule(ctx context.Context, rule *models.EscalationRule) error
	ListRules(ctx context.Context, activeOnly bool) ([]*models.EscalationRule, error)
}

// InstanceStore persists escalation instances and their append-only history.
type InstanceStore interface {
	// CreateInstance fails with ErrConflict while a non-terminal instance
	// exists for the same (alertId, ruleId) pair.
	CreateInstance(ctx context.Context, inst *models.EscalationInstance) error
	GetInstance(ctx context.Context, id string) (*models.EscalationInstance, error)
	// UpdateInstance persists status/timestamps; history is only written
	// through AppendHistory.
	UpdateInstance(ctx context.Context, inst *models.EscalationInstance) error
	AppendHistory(ctx context.Context, instanceID string, ev models.EscalationEvent) error
	ListInstances(ctx context.Context, q models.InstanceQuery) ([]*models.EscalationInstance, error)
	// ListOpenInstances returns every non-terminal instance; the scheduler
	// polls this to re-derive due steps after a restart.
	ListOpenInstances(ctx context.Context) ([]*models.EscalationInstance, error)
}

// ChannelStore persists notification channel definitions.
type ChannelStore interface {
	UpsertChannel(ctx context.Context, ch *models.NotificationChannel) error
	GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error)
	ListChannels(ctx context.Context) ([]*models.NotificationChannel, error)
}

// AuditStore is the append-only audit sink. Entries are never deleted.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error)
}

// Store aggregates every persistence surface the engine needs. Persistence
// technology stays behind this interface; the in-memory implementation is
// the reference.
type Store interface {
	AlertStore
	RuleStore
	InstanceStore
	ChannelStore
	AuditStore
}
