package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// fakeDomain is a scripted claims back office.
type fakeDomain struct {
	claims []OpenClaim
	loads  []TeamLoad
	err    error
}

func (f *fakeDomain) OpenClaims(context.Context) ([]OpenClaim, error) { return f.claims, f.err }
func (f *fakeDomain) TeamLoads(context.Context) ([]TeamLoad, error)  { return f.loads, f.err }

type fakeScorer struct {
	score float64
	err   error
}

func (f *fakeScorer) Score(context.Context, string, map[string]float64) (float64, error) {
	return f.score, f.err
}

var detectorRef = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func claim(id string, ageHours float64, assigned bool) OpenClaim {
	return OpenClaim{
		ID:       id,
		Team:     "east",
		OpenedAt: detectorRef.Add(-time.Duration(ageHours * float64(time.Hour))),
		Assigned: assigned,
	}
}

func TestSLADetectorFlagsOverdueClaims(t *testing.T) {
	domain := &fakeDomain{claims: []OpenClaim{
		claim("c-ok", 10, true),
		claim("c-late", 30, true),
		claim("c-very-late", 50, true),
	}}
	d := NewSLADetector(domain, nil, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }

	cands, err := d.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 2)

	byScope := map[string]models.AlertCandidate{}
	for _, c := range cands {
		byScope[c.Scope] = c
	}
	assert.Equal(t, models.SeverityHigh, byScope["c-late"].Severity)
	assert.Equal(t, models.SeverityCritical, byScope["c-very-late"].Severity, "double the SLA escalates the severity")

	res := models.ResolvePath(byScope["c-late"].Metadata.Value(), "delayHours")
	require.True(t, res.Found)
	n, ok := res.Value.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 30, n, 0.01)
}

func TestSLADetectorRiskScoreOverridesSeverity(t *testing.T) {
	domain := &fakeDomain{claims: []OpenClaim{claim("c-late", 30, true)}}
	d := NewSLADetector(domain, &fakeScorer{score: 0.9}, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }

	cands, err := d.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, models.SeverityCritical, cands[0].Severity)
}

func TestSLADetectorScorerFailureFallsBack(t *testing.T) {
	domain := &fakeDomain{claims: []OpenClaim{claim("c-late", 30, true)}}
	d := NewSLADetector(domain, &fakeScorer{err: errors.New("risk engine down")}, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }

	cands, err := d.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, models.SeverityHigh, cands[0].Severity, "scorer outage must not block detection")
}

func TestWorkloadDetectorRatioLadder(t *testing.T) {
	domain := &fakeDomain{loads: []TeamLoad{
		{Team: "calm", OpenClaims: 10, Adjusters: 10},
		{Team: "busy", OpenClaims: 20, Adjusters: 10},
		{Team: "slammed", OpenClaims: 40, Adjusters: 10},
		{Team: "empty-ok", OpenClaims: 0, Adjusters: 0},
		{Team: "abandoned", OpenClaims: 5, Adjusters: 0},
	}}
	d := NewWorkloadDetector(domain, config.WorkloadDetectorConfig{MaxRatio: 1.5})

	cands, err := d.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 3)

	byScope := map[string]models.AlertCandidate{}
	for _, c := range cands {
		byScope[c.Scope] = c
	}
	assert.Equal(t, models.SeverityMedium, byScope["busy"].Severity)
	assert.Equal(t, models.SeverityHigh, byScope["slammed"].Severity)
	assert.Equal(t, models.SeverityCritical, byScope["abandoned"].Severity)
	assert.NotContains(t, byScope, "calm")
	assert.NotContains(t, byScope, "empty-ok")
}

func TestBatchAgeDetectorGlobalScope(t *testing.T) {
	domain := &fakeDomain{claims: []OpenClaim{
		claim("c-assigned-old", 100, true), // assigned claims are the SLA adapter's problem
		claim("c-backlog-1", 50, false),
		claim("c-backlog-2", 60, false),
	}}
	d := NewBatchAgeDetector(domain, config.BatchAgeDetectorConfig{MaxAgeHours: 48})
	d.now = func() time.Time { return detectorRef }

	cands, err := d.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "", cands[0].Scope, "backlog age is one global condition")
	assert.Contains(t, cands[0].Message, "c-backlog-2")

	// Backlog inside the ceiling stays quiet.
	domain.claims = []OpenClaim{claim("c-backlog-1", 20, false)}
	cands, err = d.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func newRunnerFixture(t *testing.T) (*DetectorRunner, *storage.MemoryStore, *fakeDomain) {
	t.Helper()
	store := storage.NewMemoryStore()
	nop := logging.NewNop()
	audit := NewAuditService(store, nop, nil)
	dedup := NewDeduplicator(store, audit, nop)
	matcher := NewRuleMatcher(store, store, audit, nil, nop)
	ingest := NewIngestor(dedup, matcher, nil, nop)
	domain := &fakeDomain{}
	return NewDetectorRunner(ingest, store, nop), store, domain
}

func TestRunnerCreatesAndClearsEvents(t *testing.T) {
	runner, store, domain := newRunnerFixture(t)
	ctx := context.Background()

	d := NewSLADetector(domain, nil, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }
	runner.Register(d)

	domain.claims = []OpenClaim{claim("c-1", 30, true), claim("c-2", 40, true)}
	runner.RunOnce(ctx, d)

	unresolved := false
	open, err := store.ListAlerts(ctx, models.AlertQuery{Type: AlertTypeSLABreach, Resolved: &unresolved})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	// c-1 recovers; its event is resolved, c-2 stays open.
	domain.claims = []OpenClaim{claim("c-2", 41, true)}
	runner.RunOnce(ctx, d)

	open, err = store.ListAlerts(ctx, models.AlertQuery{Type: AlertTypeSLABreach, Resolved: &unresolved})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "c-2", open[0].Scope)
}

func TestRunnerRepeatTicksAreQuiet(t *testing.T) {
	runner, store, domain := newRunnerFixture(t)
	ctx := context.Background()

	d := NewSLADetector(domain, nil, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }
	runner.Register(d)

	domain.claims = []OpenClaim{claim("c-1", 30, true)}
	runner.RunOnce(ctx, d)
	runner.RunOnce(ctx, d)
	runner.RunOnce(ctx, d)

	events, err := store.ListAlerts(ctx, models.AlertQuery{Type: AlertTypeSLABreach})
	require.NoError(t, err)
	assert.Len(t, events, 1, "same breach reported thrice is still one event")
}

func TestRunnerDoesNotTouchForeignTypes(t *testing.T) {
	runner, store, domain := newRunnerFixture(t)
	ctx := context.Background()

	// An operator-emitted event of a different type must survive
	// reconciliation even though no detector reports it.
	require.NoError(t, store.CreateAlert(ctx, &models.AlertEvent{
		Type: "MANUAL_CHECK", Scope: "claim-9",
		Severity: models.SeverityLow, Message: "manual review requested",
	}))

	d := NewSLADetector(domain, nil, config.SLADetectorConfig{MaxDelayHours: 24}, logging.NewNop())
	d.now = func() time.Time { return detectorRef }
	runner.Register(d)
	runner.RunOnce(ctx, d)

	unresolved := false
	open, err := store.ListAlerts(ctx, models.AlertQuery{Resolved: &unresolved})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "MANUAL_CHECK", open[0].Type)
}
