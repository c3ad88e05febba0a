package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

func newTestLifecycle(t *testing.T) (*EscalationService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	audit := NewAuditService(store, logging.NewNop(), nil)
	return NewEscalationService(store, audit, logging.NewNop()), store
}

func seedInstance(t *testing.T, store *storage.MemoryStore) *models.EscalationInstance {
	t.Helper()
	inst := &models.EscalationInstance{
		AlertID:   "evt-1",
		RuleID:    "r-1",
		Status:    models.InstanceActive,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateInstance(context.Background(), inst))
	return inst
}

func TestAcknowledgeActiveInstance(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	got, err := svc.Acknowledge(ctx, inst.ID, "supervisor-anna")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceAcknowledged, got.Status)
	assert.Equal(t, "supervisor-anna", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)

	stored, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, models.ActionAcknowledged, stored.History[0].Action)

	// Second acknowledge is rejected: the machine only moves forward.
	_, err = svc.Acknowledge(ctx, inst.ID, "supervisor-ben")
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, models.InstanceAcknowledged, terr.From)
}

func TestResolveIsIdempotent(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	got, err := svc.Resolve(ctx, inst.ID, "supervisor-anna", "false positive")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceResolved, got.Status)
	assert.Equal(t, "false positive", got.ResolveNote)

	// Second resolve succeeds and records nothing new.
	again, err := svc.Resolve(ctx, inst.ID, "supervisor-ben", "duplicate click")
	require.NoError(t, err)
	assert.Equal(t, "supervisor-anna", again.ResolvedBy)

	stored, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
}

func TestResolveAfterAcknowledge(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, inst.ID, "anna")
	require.NoError(t, err)
	got, err := svc.Resolve(ctx, inst.ID, "anna", "")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceResolved, got.Status)
}

func TestResolveCancelledInstanceFails(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, inst.ID, "alert resolved")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, inst.ID, "anna", "")
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestCancelTerminalIsNoOp(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, inst.ID, "anna", "")
	require.NoError(t, err)

	got, err := svc.Cancel(ctx, inst.ID, "alert resolved")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceResolved, got.Status, "cancel must not overwrite resolved")

	stored, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
}

func TestAcknowledgedInstanceStaysOpen(t *testing.T) {
	svc, store := newTestLifecycle(t)
	inst := seedInstance(t, store)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, inst.ID, "anna")
	require.NoError(t, err)

	// The scheduler still has to see it: steps without stop_on_acknowledge
	// fire after acknowledgment.
	open, err := store.ListOpenInstances(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, inst.ID, open[0].ID)

	_, err = svc.Cancel(ctx, inst.ID, "alert resolved")
	require.NoError(t, err)
	open, err = store.ListOpenInstances(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}
