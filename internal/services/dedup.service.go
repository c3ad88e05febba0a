package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// Deduplication outcomes.
const (
	DedupCreated   = "created"
	DedupUpdated   = "updated"
	DedupUnchanged = "unchanged"
)

// Deduplicator performs the atomic find-or-update-or-create against the
// event store, keyed on the canonical (type, scope) pair. Candidates for the
// same key are serialized on a per-key lock; the store's uniqueness
// constraint backstops races from other replicas.
type Deduplicator struct {
	store  storage.AlertStore
	audit  *AuditService
	logger logging.Logger

	mu    sync.Mutex
	locks map[models.DedupKey]*sync.Mutex
}

func NewDeduplicator(store storage.AlertStore, audit *AuditService, log logging.Logger) *Deduplicator {
	return &Deduplicator{
		store:  store,
		audit:  audit,
		logger: log,
		locks:  make(map[models.DedupKey]*sync.Mutex),
	}
}

// lockFor returns the per-key mutex. The registry grows with distinct keys;
// alert-type × scope cardinality in this domain is small enough not to need
// eviction.
func (d *Deduplicator) lockFor(key models.DedupKey) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	return l
}

// Process applies one candidate:
//   - no open event for the key  -> create, return DedupCreated
//   - open event, same content   -> DedupUnchanged, no downstream trigger
//   - open event, changed content-> update message/severity in place,
//     DedupUpdated; any running escalation instance is left untouched
func (d *Deduplicator) Process(ctx context.Context, cand *models.AlertCandidate) (string, *models.AlertEvent, error) {
	key := cand.DedupKey()
	l := d.lockFor(key)
	l.Lock()
	defer l.Unlock()

	existing, err := d.store.FindOpenAlert(ctx, key)
	if err == nil {
		return d.merge(ctx, existing, cand)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", nil, fmt.Errorf("dedup lookup (%s, %s): %w", key.Type, key.Scope, err)
	}

	event := &models.AlertEvent{
		Type:      cand.Type,
		Scope:     cand.Scope,
		Severity:  cand.Severity,
		Message:   cand.Message,
		Metadata:  cand.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateAlert(ctx, event); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another replica won the create; fold into its event.
			existing, ferr := d.store.FindOpenAlert(ctx, key)
			if ferr != nil {
				return "", nil, fmt.Errorf("dedup conflict re-read (%s, %s): %w", key.Type, key.Scope, ferr)
			}
			return d.merge(ctx, existing, cand)
		}
		return "", nil, fmt.Errorf("dedup create (%s, %s): %w", key.Type, key.Scope, err)
	}

	metrics.AlertsCreatedTotal.WithLabelValues(event.Type, event.Severity).Inc()
	d.audit.Record(ctx, models.AuditEntry{
		Category: models.AuditAlert,
		Action:   "created",
		AlertID:  event.ID,
		Detail:   event.Message,
	})
	d.logger.Info("Alert event created",
		"alertId", event.ID, "type", event.Type, "scope", event.Scope, "severity", event.Severity)
	return DedupCreated, event, nil
}

func (d *Deduplicator) merge(ctx context.Context, existing *models.AlertEvent, cand *models.AlertCandidate) (string, *models.AlertEvent, error) {
	if existing.Message == cand.Message && existing.Severity == cand.Severity {
		metrics.AlertsDeduplicatedTotal.WithLabelValues(existing.Type, DedupUnchanged).Inc()
		return DedupUnchanged, existing, nil
	}

	existing.Message = cand.Message
	existing.Severity = cand.Severity
	if err := d.store.UpdateAlert(ctx, existing); err != nil {
		return "", nil, fmt.Errorf("dedup update %s: %w", existing.ID, err)
	}
	metrics.AlertsDeduplicatedTotal.WithLabelValues(existing.Type, DedupUpdated).Inc()
	d.audit.Record(ctx, models.AuditEntry{
		Category: models.AuditAlert,
		Action:   "updated",
		AlertID:  existing.ID,
		Detail:   existing.Message,
	})
	return DedupUpdated, existing, nil
}

// ResolveScope marks the open event for the key resolved, if any. Detectors
// call this when they observe the condition normalized; the scheduler then
// cancels the instances still escalating it.
func (d *Deduplicator) ResolveScope(ctx context.Context, key models.DedupKey) (*models.AlertEvent, bool, error) {
	l := d.lockFor(key)
	l.Lock()
	defer l.Unlock()

	existing, err := d.store.FindOpenAlert(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	now := time.Now().UTC()
	existing.Resolved = true
	existing.ResolvedAt = &now
	if err := d.store.UpdateAlert(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("resolve alert %s: %w", existing.ID, err)
	}
	d.audit.Record(ctx, models.AuditEntry{
		Category: models.AuditAlert,
		Action:   "resolved",
		AlertID:  existing.ID,
	})
	d.logger.Info("Alert event resolved", "alertId", existing.ID, "type", key.Type, "scope", key.Scope)
	return existing, true, nil
}
