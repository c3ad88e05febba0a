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

// Scheduler drives escalation forward. It owns no timers per instance:
// every poll re-derives due steps from StartedAt plus the per-step delay and
// from the history already recorded, so a restart loses nothing and a step
// is never dispatched twice.
type Scheduler struct {
	store      storage.Store
	dispatcher *Dispatcher
	lifecycle  *EscalationService
	logger     logging.Logger

	pollInterval time.Duration
	kick         chan struct{}
	now          func() time.Time
}

func NewScheduler(store storage.Store, dispatcher *Dispatcher, lifecycle *EscalationService, pollInterval time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		store:        store,
		dispatcher:   dispatcher,
		lifecycle:    lifecycle,
		logger:       log,
		pollInterval: pollInterval,
		kick:         make(chan struct{}, 1),
		now:          time.Now,
	}
}

// Kick wakes the scheduler before its next poll tick. Non-blocking; a kick
// while one is pending is folded into it.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Escalation scheduler started", "pollInterval", s.pollInterval)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escalation scheduler stopped")
			return
		case <-ticker.C:
		case <-s.kick:
		}
		s.Tick(ctx)
	}
}

// Tick runs one full pass over the open instances. Instances advance in
// parallel with each other; inside one instance steps stay strictly
// sequential. Tick returns when the pass is complete.
func (s *Scheduler) Tick(ctx context.Context) {
	open, err := s.store.ListOpenInstances(ctx)
	if err != nil {
		s.logger.Error("Scheduler poll failed", "error", err)
		return
	}
	var wg sync.WaitGroup
	for _, inst := range open {
		wg.Add(1)
		go func(inst *models.EscalationInstance) {
			defer wg.Done()
			if err := s.advance(ctx, inst); err != nil {
				s.logger.Error("Instance advance failed", "instanceId", inst.ID, "error", err)
			}
		}(inst)
	}
	wg.Wait()
}

// advance drives one instance: cancel it when its alert has normalized,
// otherwise dispatch every step that is due and not yet recorded.
func (s *Scheduler) advance(ctx context.Context, inst *models.EscalationInstance) error {
	alert, err := s.store.GetAlert(ctx, inst.AlertID)
	if err != nil {
		return fmt.Errorf("load alert %s: %w", inst.AlertID, err)
	}
	if alert.Resolved {
		_, err := s.lifecycle.Cancel(ctx, inst.ID, "alert resolved")
		return err
	}

	rule, err := s.store.GetRule(ctx, inst.RuleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_, cerr := s.lifecycle.Cancel(ctx, inst.ID, "rule removed")
			return cerr
		}
		return fmt.Errorf("load rule %s: %w", inst.RuleID, err)
	}
	// A rule deactivated mid-flight keeps its running instances: the plan
	// was armed under the old definition and operators are already engaged.

	now := s.now().UTC()
	for _, step := range rule.Steps {
		if inst.LevelDispatched(step.Level) {
			continue
		}
		due := inst.DueAt(step)
		if now.Before(due) {
			// Delays are non-decreasing across levels; nothing later is
			// due either.
			break
		}

		// Status re-check right before dispatch. A transition landing
		// after this read is the documented race window: the step goes
		// out and the operator sees one more notification.
		fresh, err := s.store.GetInstance(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("reload instance: %w", err)
		}
		if fresh.IsTerminal() {
			metrics.StepsSkippedTotal.WithLabelValues(fmt.Sprintf("%d", step.Level), "terminal").Inc()
			return nil
		}
		if fresh.Status == models.InstanceAcknowledged && step.StopOnAcknowledge {
			// Skipped, not recorded: the step stays eligible on paper but
			// the acknowledgment gates it every pass. Later levels with
			// stop_on_acknowledge unset still fire below.
			metrics.StepsSkippedTotal.WithLabelValues(fmt.Sprintf("%d", step.Level), "acknowledged").Inc()
			continue
		}

		metrics.SchedulerLagSeconds.Observe(now.Sub(due).Seconds())
		s.logger.Info("Dispatching escalation step",
			"instanceId", inst.ID, "rule", rule.Name, "level", step.Level,
			"due", due.Format(time.RFC3339))
		s.dispatcher.DispatchStep(ctx, alert, rule, fresh, step)
		inst = fresh
		// Reload history so LevelDispatched sees the attempts just
		// recorded before the next level is considered.
		if inst, err = s.store.GetInstance(ctx, inst.ID); err != nil {
			return fmt.Errorf("reload instance: %w", err)
		}
	}
	return nil
}
