package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// Detector scans a slice of the back office and reports every condition
// currently abnormal. Evaluation is stateless and idempotent: the full
// breaching set comes back on every tick, and deduplication upstream turns
// repeats into no-ops.
type Detector interface {
	Name() string
	// AlertType is the detector's event-type namespace. The runner resolves
	// open events of this type whose scope stopped breaching.
	AlertType() string
	Interval() time.Duration
	Evaluate(ctx context.Context) ([]models.AlertCandidate, error)
}

// DetectorRunner drives every registered detector on its own cadence. A
// tick that overruns its interval is skipped, never stacked, and a
// panicking detector takes down its tick, not the process.
type DetectorRunner struct {
	ingest *Ingestor
	alerts storage.AlertStore
	logger logging.Logger

	detectors []Detector
}

func NewDetectorRunner(ingest *Ingestor, alerts storage.AlertStore, log logging.Logger) *DetectorRunner {
	return &DetectorRunner{ingest: ingest, alerts: alerts, logger: log}
}

func (r *DetectorRunner) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Run blocks until the context is cancelled.
func (r *DetectorRunner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range r.detectors {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()
			r.loop(ctx, d)
		}(d)
	}
	wg.Wait()
}

func (r *DetectorRunner) loop(ctx context.Context, d Detector) {
	r.logger.Info("Detection adapter started", "detector", d.Name(), "interval", d.Interval())
	ticker := time.NewTicker(d.Interval())
	defer ticker.Stop()

	var running int32
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Detection adapter stopped", "detector", d.Name())
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&running, 0, 1) {
				metrics.DetectorTicksTotal.WithLabelValues(d.Name(), "skipped").Inc()
				r.logger.Warn("Detection tick still running, skipping", "detector", d.Name())
				continue
			}
			go func() {
				defer atomic.StoreInt32(&running, 0)
				r.RunOnce(ctx, d)
			}()
		}
	}
}

// RunOnce executes one evaluation pass: ingest every breaching candidate,
// then resolve the detector's open events whose scope is no longer in the
// breaching set.
func (r *DetectorRunner) RunOnce(ctx context.Context, d Detector) {
	start := time.Now()
	defer func() {
		metrics.DetectorTickDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			metrics.DetectorTicksTotal.WithLabelValues(d.Name(), "error").Inc()
			r.logger.Error("Detection tick panicked", "detector", d.Name(), "panic", rec)
		}
	}()

	candidates, err := d.Evaluate(ctx)
	if err != nil {
		metrics.DetectorTicksTotal.WithLabelValues(d.Name(), "error").Inc()
		r.logger.Error("Detection tick failed", "detector", d.Name(), "error", err)
		return
	}

	breaching := make(map[models.DedupKey]bool, len(candidates))
	for i := range candidates {
		cand := candidates[i]
		breaching[cand.DedupKey()] = true
		if _, _, err := r.ingest.Ingest(ctx, &cand); err != nil {
			r.logger.Error("Candidate ingest failed",
				"detector", d.Name(), "scope", cand.Scope, "error", err)
		}
	}

	r.reconcile(ctx, d, breaching)
	metrics.DetectorTicksTotal.WithLabelValues(d.Name(), "ok").Inc()
}

// reconcile clears open events the detector no longer reports. Only the
// detector's own alert type is touched; operator-emitted types stay put.
func (r *DetectorRunner) reconcile(ctx context.Context, d Detector, breaching map[models.DedupKey]bool) {
	unresolved := false
	open, err := r.alerts.ListAlerts(ctx, models.AlertQuery{Type: d.AlertType(), Resolved: &unresolved})
	if err != nil {
		r.logger.Error("Open-event listing failed", "detector", d.Name(), "error", err)
		return
	}
	for _, event := range open {
		key := event.DedupKey()
		if breaching[key] {
			continue
		}
		if _, err := r.ingest.Clear(ctx, key); err != nil {
			r.logger.Error("Event clear failed",
				"detector", d.Name(), "scope", key.Scope, "error", err)
		}
	}
}
