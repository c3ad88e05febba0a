package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// Lifecycle errors surfaced to API callers.
type TransitionError struct {
	InstanceID string
	From       string
	To         string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("instance %s: cannot move from %s to %s", e.InstanceID, e.From, e.To)
}

// EscalationService owns instance state transitions. The machine only moves
// forward; every transition appends one history event and one audit row.
type EscalationService struct {
	store  storage.InstanceStore
	audit  *AuditService
	logger logging.Logger
}

func NewEscalationService(store storage.InstanceStore, audit *AuditService, log logging.Logger) *EscalationService {
	return &EscalationService{store: store, audit: audit, logger: log}
}

// Acknowledge moves an active instance to acknowledged. Steps with
// stop_on_acknowledge stop firing; the rest keep going. Acknowledging a
// non-active instance is a client error.
func (s *EscalationService) Acknowledge(ctx context.Context, instanceID, actor string) (*models.EscalationInstance, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.InstanceActive {
		return nil, &TransitionError{InstanceID: instanceID, From: inst.Status, To: models.InstanceAcknowledged}
	}

	now := time.Now().UTC()
	inst.Status = models.InstanceAcknowledged
	inst.AcknowledgedAt = &now
	inst.AcknowledgedBy = actor
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("acknowledge %s: %w", instanceID, err)
	}
	s.recordTransition(ctx, inst, models.ActionAcknowledged, actor, "")
	s.logger.Info("Escalation acknowledged", "instanceId", instanceID, "by", actor)
	return inst, nil
}

// Resolve moves the instance to resolved. Resolving an already resolved
// instance succeeds without recording anything, so operators racing each
// other both get a clean answer. Resolving a cancelled instance is an error.
func (s *EscalationService) Resolve(ctx context.Context, instanceID, actor, note string) (*models.EscalationInstance, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status == models.InstanceResolved {
		return inst, nil
	}
	if inst.Status == models.InstanceCancelled {
		return nil, &TransitionError{InstanceID: instanceID, From: inst.Status, To: models.InstanceResolved}
	}

	now := time.Now().UTC()
	inst.Status = models.InstanceResolved
	inst.ResolvedAt = &now
	inst.ResolvedBy = actor
	inst.ResolveNote = note
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", instanceID, err)
	}
	s.recordTransition(ctx, inst, models.ActionResolved, actor, note)
	s.logger.Info("Escalation resolved", "instanceId", instanceID, "by", actor)
	return inst, nil
}

// Cancel moves a non-terminal instance to cancelled. The scheduler calls
// this when the underlying alert has been resolved.
func (s *EscalationService) Cancel(ctx context.Context, instanceID, reason string) (*models.EscalationInstance, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		return inst, nil
	}

	inst.Status = models.InstanceCancelled
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("cancel %s: %w", instanceID, err)
	}
	s.recordTransition(ctx, inst, models.ActionCancelled, "", reason)
	s.logger.Info("Escalation cancelled", "instanceId", instanceID, "reason", reason)
	return inst, nil
}

func (s *EscalationService) Get(ctx context.Context, instanceID string) (*models.EscalationInstance, error) {
	return s.store.GetInstance(ctx, instanceID)
}

func (s *EscalationService) List(ctx context.Context, q models.InstanceQuery) ([]*models.EscalationInstance, error) {
	return s.store.ListInstances(ctx, q)
}

func (s *EscalationService) recordTransition(ctx context.Context, inst *models.EscalationInstance, action, actor, detail string) {
	metrics.InstanceTransitionsTotal.WithLabelValues(inst.Status).Inc()
	ev := models.EscalationEvent{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Recipient: actor,
		Success:   true,
	}
	if err := s.store.AppendHistory(ctx, inst.ID, ev); err != nil {
		s.logger.Error("History append failed", "instanceId", inst.ID, "action", action, "error", err)
	}
	inst.History = append(inst.History, ev)
	s.audit.Record(ctx, models.AuditEntry{
		Category:   models.AuditInstance,
		Action:     action,
		Actor:      actor,
		AlertID:    inst.AlertID,
		InstanceID: inst.ID,
		RuleID:     inst.RuleID,
		Detail:     detail,
	})
}
