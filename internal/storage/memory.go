package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigilops/vigil-core/internal/models"
)

type pairKey struct {
	alertID string
	ruleID  string
}

// MemoryStore is the reference Store implementation: an arena of objects
// plus uniqueness indexes, guarded by one RWMutex. It gives the engine the
// same guarantees a relational store would enforce with unique constraints.
type MemoryStore struct {
	mu sync.RWMutex

	alerts     map[string]*models.AlertEvent
	openAlerts map[models.DedupKey]string // key -> alert id while unresolved

	rules map[string]*models.EscalationRule

	instances     map[string]*models.EscalationInstance
	openInstances map[pairKey]string // pair -> instance id while non-terminal
	instanceOrder []string

	channels map[string]*models.NotificationChannel

	audit []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:        make(map[string]*models.AlertEvent),
		openAlerts:    make(map[models.DedupKey]string),
		rules:         make(map[string]*models.EscalationRule),
		instances:     make(map[string]*models.EscalationInstance),
		openInstances: make(map[pairKey]string),
		channels:      make(map[string]*models.NotificationChannel),
	}
}

// --- alerts ---

func (s *MemoryStore) CreateAlert(ctx context.Context, event *models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := event.DedupKey()
	if !event.Resolved {
		if _, exists := s.openAlerts[key]; exists {
			return fmt.Errorf("open alert already exists for (%s, %s): %w", key.Type, key.Scope, ErrConflict)
		}
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	cp := copyAlert(event)
	s.alerts[cp.ID] = cp
	if !cp.Resolved {
		s.openAlerts[key] = cp.ID
	}
	return nil
}

func (s *MemoryStore) GetAlert(ctx context.Context, id string) (*models.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return copyAlert(a), nil
}

func (s *MemoryStore) FindOpenAlert(ctx context.Context, key models.DedupKey) (*models.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.openAlerts[key]
	if !ok {
		return nil, fmt.Errorf("open alert (%s, %s): %w", key.Type, key.Scope, ErrNotFound)
	}
	return copyAlert(s.alerts[id]), nil
}

func (s *MemoryStore) UpdateAlert(ctx context.Context, event *models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.alerts[event.ID]
	if !ok {
		return fmt.Errorf("alert %s: %w", event.ID, ErrNotFound)
	}
	key := prev.DedupKey()
	cp := copyAlert(event)
	s.alerts[cp.ID] = cp
	if prev.Resolved != cp.Resolved {
		if cp.Resolved {
			delete(s.openAlerts, key)
		} else {
			s.openAlerts[key] = cp.ID
		}
	}
	return nil
}

func (s *MemoryStore) ListAlerts(ctx context.Context, q models.AlertQuery) ([]*models.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AlertEvent, 0)
	for _, a := range s.alerts {
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.Scope != "" && a.Scope != q.Scope {
			continue
		}
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if q.Resolved != nil && a.Resolved != *q.Resolved {
			continue
		}
		out = append(out, copyAlert(a))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// --- rules ---

func (s *MemoryStore) CreateRule(ctx context.Context, rule *models.EscalationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrConflict)
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	s.rules[rule.ID] = copyRule(rule)
	return nil
}

func (s *MemoryStore) GetRule(ctx context.Context, id string) (*models.EscalationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return copyRule(r), nil
}

func (s *MemoryStore) UpdateRule(ctx context.Context, rule *models.EscalationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}
	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.ID] = copyRule(rule)
	return nil
}

func (s *MemoryStore) ListRules(ctx context.Context, activeOnly bool) ([]*models.EscalationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.EscalationRule, 0, len(s.rules))
	for _, r := range s.rules {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, copyRule(r))
	}
	return out, nil
}

// --- instances ---

func (s *MemoryStore) CreateInstance(ctx context.Context, inst *models.EscalationInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{alertID: inst.AlertID, ruleID: inst.RuleID}
	if _, exists := s.openInstances[key]; exists {
		return fmt.Errorf("open instance exists for alert %s rule %s: %w", inst.AlertID, inst.RuleID, ErrConflict)
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.Status == "" {
		inst.Status = models.InstanceActive
	}
	if inst.StartedAt.IsZero() {
		inst.StartedAt = time.Now().UTC()
	}
	cp := copyInstance(inst)
	s.instances[cp.ID] = cp
	s.instanceOrder = append(s.instanceOrder, cp.ID)
	if !cp.IsTerminal() {
		s.openInstances[key] = cp.ID
	}
	return nil
}

func (s *MemoryStore) GetInstance(ctx context.Context, id string) (*models.EscalationInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return copyInstance(i), nil
}

func (s *MemoryStore) UpdateInstance(ctx context.Context, inst *models.EscalationInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.instances[inst.ID]
	if !ok {
		return fmt.Errorf("instance %s: %w", inst.ID, ErrNotFound)
	}
	cp := copyInstance(inst)
	// History is append-only and owned by AppendHistory; keep the stored
	// history authoritative.
	cp.History = prev.History
	s.instances[cp.ID] = cp

	key := pairKey{alertID: cp.AlertID, ruleID: cp.RuleID}
	if cp.IsTerminal() {
		if s.openInstances[key] == cp.ID {
			delete(s.openInstances, key)
		}
	}
	return nil
}

func (s *MemoryStore) AppendHistory(ctx context.Context, instanceID string, ev models.EscalationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	inst.History = append(inst.History, ev)
	return nil
}

func (s *MemoryStore) ListInstances(ctx context.Context, q models.InstanceQuery) ([]*models.EscalationInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.EscalationInstance, 0)
	for _, id := range s.instanceOrder {
		i := s.instances[id]
		if q.AlertID != "" && i.AlertID != q.AlertID {
			continue
		}
		if q.RuleID != "" && i.RuleID != q.RuleID {
			continue
		}
		if q.Status != "" && i.Status != q.Status {
			continue
		}
		out = append(out, copyInstance(i))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOpenInstances(ctx context.Context) ([]*models.EscalationInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.EscalationInstance, 0, len(s.openInstances))
	for _, id := range s.openInstances {
		out = append(out, copyInstance(s.instances[id]))
	}
	return out, nil
}

// --- channels ---

func (s *MemoryStore) UpsertChannel(ctx context.Context, ch *models.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.channels[ch.ID] = &cp
	return nil
}

func (s *MemoryStore) GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

func (s *MemoryStore) ListChannels(ctx context.Context) ([]*models.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.NotificationChannel, 0, len(s.channels))
	for _, ch := range s.channels {
		cp := *ch
		out = append(out, &cp)
	}
	return out, nil
}

// --- audit ---

func (s *MemoryStore) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
	return nil
}

func (s *MemoryStore) QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, 0)
	for _, e := range s.audit {
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.AlertID != "" && e.AlertID != q.AlertID {
			continue
		}
		if q.InstanceID != "" && e.InstanceID != q.InstanceID {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && e.Timestamp.After(q.Until) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// --- copies ---

func copyAlert(a *models.AlertEvent) *models.AlertEvent {
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = make(models.Metadata, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func copyRule(r *models.EscalationRule) *models.EscalationRule {
	cp := *r
	cp.Conditions = append([]models.Condition(nil), r.Conditions...)
	cp.Steps = make([]models.EscalationStep, len(r.Steps))
	for i, st := range r.Steps {
		stc := st
		stc.Recipients = append([]models.Recipient(nil), st.Recipients...)
		stc.Actions = append([]string(nil), st.Actions...)
		cp.Steps[i] = stc
	}
	return &cp
}

func copyInstance(i *models.EscalationInstance) *models.EscalationInstance {
	cp := *i
	cp.History = append([]models.EscalationEvent(nil), i.History...)
	if i.AcknowledgedAt != nil {
		t := *i.AcknowledgedAt
		cp.AcknowledgedAt = &t
	}
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
