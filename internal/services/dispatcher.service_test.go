package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/pkg/cache"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// staticResolver maps recipient identifiers to fixed targets.
type staticResolver struct {
	targets map[string][]models.Target
	err     error
}

func (r *staticResolver) Resolve(_ context.Context, rec models.Recipient) ([]models.Target, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.targets[rec.Identifier], nil
}

// recordingAdapter captures sends and answers with a scripted result per
// target id.
type recordingAdapter struct {
	channelType string
	mu          sync.Mutex
	sent        []Notification
	fail        map[string]string // target id -> error message
	delay       time.Duration
}

func (a *recordingAdapter) Type() string { return a.channelType }

func (a *recordingAdapter) Send(ctx context.Context, _ *models.NotificationChannel, n Notification) models.DeliveryResult {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.DeliveryResult{Status: models.DeliveryFailed, Timestamp: time.Now(), Error: ctx.Err().Error()}
		}
	}
	a.mu.Lock()
	a.sent = append(a.sent, n)
	a.mu.Unlock()
	if msg, ok := a.fail[n.Target.ID]; ok {
		return models.DeliveryResult{Status: models.DeliveryFailed, Timestamp: time.Now(), Error: msg}
	}
	return models.DeliveryResult{Status: models.DeliverySent, Timestamp: time.Now()}
}

type dispatchFixture struct {
	dispatcher *Dispatcher
	store      *storage.MemoryStore
	adapter    *recordingAdapter
	resolver   *staticResolver
	event      *models.AlertEvent
	rule       *models.EscalationRule
	inst       *models.EscalationInstance
}

func newDispatchFixture(t *testing.T, limits models.RateLimits) *dispatchFixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	audit := NewAuditService(store, logging.NewNop(), nil)
	limiter := NewRateLimiter(cache.NewNoopValkeyCache(logger.New("error")), logging.NewNop())
	resolver := &staticResolver{targets: map[string][]models.Target{
		"supervisor": {
			{Kind: "user", ID: "anna", Address: "anna@example.com"},
			{Kind: "user", ID: "ben", Address: "ben@example.com"},
		},
		"oncall": {
			{Kind: "user", ID: "cara", Address: "cara@example.com"},
		},
	}}
	adapter := &recordingAdapter{channelType: models.ChannelEmail}

	d := NewDispatcher(store, store, resolver, limiter, audit, 2*time.Second, logging.NewNop())
	d.RegisterAdapter(adapter)

	require.NoError(t, store.UpsertChannel(ctx, &models.NotificationChannel{
		ID: "mail", Type: models.ChannelEmail, RateLimits: limits, Active: true,
	}))

	event := &models.AlertEvent{
		ID: "evt-1", Type: "SLA_BREACH", Scope: "claim-7",
		Severity: models.SeverityHigh,
		Message:  "claim {{alert.scope}} breached after {{metadata.delayHours}}h",
		Metadata: models.MetadataFromAny(map[string]interface{}{"delayHours": 30}),
	}
	rule := activeRule("r-1", "SLA_BREACH")
	inst := &models.EscalationInstance{
		AlertID: event.ID, RuleID: rule.ID,
		Status: models.InstanceActive, StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateInstance(ctx, inst))

	return &dispatchFixture{dispatcher: d, store: store, adapter: adapter, resolver: resolver, event: event, rule: rule, inst: inst}
}

func step(level int, recipients ...models.Recipient) models.EscalationStep {
	return models.EscalationStep{Level: level, Recipients: recipients}
}

func historyOf(t *testing.T, store *storage.MemoryStore, id string) []models.EscalationEvent {
	t.Helper()
	inst, err := store.GetInstance(context.Background(), id)
	require.NoError(t, err)
	return inst.History
}

func TestDispatchStepFansOutPerTargetAndChannel(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	ctx := context.Background()

	st := step(0,
		models.Recipient{Kind: models.RecipientRole, Identifier: "supervisor", Channels: []string{"mail"}},
		models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}},
	)
	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, st)

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 3, "one attempt per resolved target")
	for _, h := range hist {
		assert.Equal(t, 0, h.Level)
		assert.Equal(t, models.ActionNotify, h.Action)
		assert.Equal(t, models.DeliverySent, h.Status)
		assert.True(t, h.Success)
	}

	require.Len(t, f.adapter.sent, 3)
	assert.Equal(t, "claim claim-7 breached after 30h", f.adapter.sent[0].Body,
		"placeholders resolve from alert fields and metadata")
}

func TestDispatchStepRendersUnknownPlaceholdersVerbatim(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	f.event.Message = "breach {{metadata.missing}} on {{alert.scope}}"
	ctx := context.Background()

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}}))

	require.Len(t, f.adapter.sent, 1)
	assert.Equal(t, "breach {{metadata.missing}} on claim-7", f.adapter.sent[0].Body)
}

func TestDispatchStepPartialFailureStillCompletes(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	f.adapter.fail = map[string]string{"ben": "smtp 550 mailbox unavailable"}
	ctx := context.Background()

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(1, models.Recipient{Kind: models.RecipientRole, Identifier: "supervisor", Channels: []string{"mail"}}))

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 2)
	byTarget := map[string]models.EscalationEvent{}
	for _, h := range hist {
		byTarget[h.Recipient] = h
	}
	assert.Equal(t, models.DeliverySent, byTarget["anna"].Status)
	assert.Equal(t, models.DeliveryFailed, byTarget["ben"].Status)
	assert.Contains(t, byTarget["ben"].Error, "smtp 550")
	f.inst.History = hist
	assert.True(t, f.inst.LevelDispatched(1), "a step with failures is still dispatched")
}

func TestDispatchStepRateLimitIsRecordedNotRetried(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{MaxPerMinute: 1})
	ctx := context.Background()

	rec := models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}}
	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, step(0, rec))
	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, step(1, rec))

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 2)
	assert.Equal(t, models.DeliverySent, hist[0].Status)
	assert.Equal(t, models.DeliveryRateLimited, hist[1].Status)
	assert.False(t, hist[1].Success)
	assert.Len(t, f.adapter.sent, 1, "a refused attempt never reaches the transport")
}

func TestDispatchStepRefusalConsumesNoQuota(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{MaxPerHour: 2})
	ctx := context.Background()
	rec := models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}}

	// Two sends exhaust the window; further refusals must not extend it.
	for lvl := 0; lvl < 5; lvl++ {
		f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, step(lvl, rec))
	}
	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 5)
	sent := 0
	for _, h := range hist {
		if h.Status == models.DeliverySent {
			sent++
		}
	}
	assert.Equal(t, 2, sent)
}

func TestDispatchStepParallelFanoutHonorsRateLimit(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{MaxPerMinute: 1})
	ctx := context.Background()

	// Slow transport: every attempt of the step is in flight before the
	// first one completes, so the window must be claimed up front, not
	// settled after the send.
	f.adapter.delay = 100 * time.Millisecond

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, step(0,
		models.Recipient{Kind: models.RecipientRole, Identifier: "supervisor", Channels: []string{"mail"}},
		models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}},
	))

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 3)
	sent, limited := 0, 0
	for _, h := range hist {
		switch h.Status {
		case models.DeliverySent:
			sent++
		case models.DeliveryRateLimited:
			limited++
		}
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, limited)
	assert.Len(t, f.adapter.sent, 1)
}

func TestDispatchStepInactiveChannelFails(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	ctx := context.Background()
	require.NoError(t, f.store.UpsertChannel(ctx, &models.NotificationChannel{
		ID: "mail", Type: models.ChannelEmail, Active: false,
	}))

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}}))

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, models.DeliveryFailed, hist[0].Status)
	assert.Contains(t, hist[0].Error, "inactive")
	assert.Empty(t, f.adapter.sent)
}

func TestDispatchStepDirectoryFailureRecordsAttempt(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	f.resolver.err = errors.New("ldap unreachable")
	ctx := context.Background()

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "supervisor", Channels: []string{"mail"}}))

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 2, "per-recipient failure plus the no-targets marker")
	assert.Contains(t, hist[0].Error, "ldap unreachable")
	f.inst.History = hist
	assert.True(t, f.inst.LevelDispatched(0), "failed resolution still marks the level dispatched")
}

func TestDispatchStepSendTimeoutBounded(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	f.adapter.delay = 100 * time.Millisecond
	f.dispatcher.sendTimeout = 10 * time.Millisecond
	ctx := context.Background()

	start := time.Now()
	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}}))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 90*time.Millisecond, "send must be cut off at the dispatch timeout")
	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, models.DeliveryFailed, hist[0].Status)
	assert.Contains(t, hist[0].Error, "context deadline exceeded")
}

func TestDispatchStepCustomActionName(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	ctx := context.Background()

	st := step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "oncall", Channels: []string{"mail"}})
	st.Actions = []string{"page"}
	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst, st)

	hist := historyOf(t, f.store, f.inst.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, "page", hist[0].Action)
}

func TestDispatchStepAuditRows(t *testing.T) {
	f := newDispatchFixture(t, models.RateLimits{})
	ctx := context.Background()

	f.dispatcher.DispatchStep(ctx, f.event, f.rule, f.inst,
		step(0, models.Recipient{Kind: models.RecipientRole, Identifier: "supervisor", Channels: []string{"mail"}}))

	rows, err := f.store.QueryAudit(ctx, models.AuditQuery{Category: models.AuditNotification, InstanceID: f.inst.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "mail", r.Channel)
		assert.Equal(t, models.DeliverySent, r.Status)
		assert.Equal(t, 0, r.Level)
	}
}
