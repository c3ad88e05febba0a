package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/internal/tracing"
)

// Notification is the fully rendered payload handed to a channel adapter for
// one target.
type Notification struct {
	Event    *models.AlertEvent
	Rule     *models.EscalationRule
	Instance *models.EscalationInstance
	Step     models.EscalationStep
	Target   models.Target
	Subject  string
	Body     string
	Vars     map[string]string
}

// ChannelAdapter is one outbound transport. Adapters report outcomes as
// DeliveryResult values; they return no error because a failed send is a
// recorded outcome, not a dispatch fault.
type ChannelAdapter interface {
	Type() string
	Send(ctx context.Context, ch *models.NotificationChannel, n Notification) models.DeliveryResult
}

// DirectoryResolver expands an abstract recipient (role, group...) into
// concrete addressable targets.
type DirectoryResolver interface {
	Resolve(ctx context.Context, r models.Recipient) ([]models.Target, error)
}

// Dispatcher executes one escalation step: resolve recipients, fan out to
// every (target, channel) pair in parallel, and record exactly one history
// entry per attempt. Failures and rate refusals never block the sibling
// sends of the same step.
type Dispatcher struct {
	channels  storage.ChannelStore
	instances storage.InstanceStore
	resolver  DirectoryResolver
	limiter   *RateLimiter
	audit     *AuditService
	logger    logging.Logger

	sendTimeout time.Duration
	tracer      *tracing.DispatchTracer // nil when tracing is disabled

	mu       sync.RWMutex
	adapters map[string]ChannelAdapter // by channel type
}

func NewDispatcher(channels storage.ChannelStore, instances storage.InstanceStore, resolver DirectoryResolver, limiter *RateLimiter, audit *AuditService, sendTimeout time.Duration, log logging.Logger) *Dispatcher {
	return &Dispatcher{
		channels:    channels,
		instances:   instances,
		resolver:    resolver,
		limiter:     limiter,
		audit:       audit,
		logger:      log,
		sendTimeout: sendTimeout,
		adapters:    make(map[string]ChannelAdapter),
	}
}

// SetTracer enables dispatch spans.
func (d *Dispatcher) SetTracer(t *tracing.DispatchTracer) { d.tracer = t }

// RegisterAdapter wires one transport in. Last registration per type wins.
func (d *Dispatcher) RegisterAdapter(a ChannelAdapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters[a.Type()] = a
}

func (d *Dispatcher) adapter(channelType string) (ChannelAdapter, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.adapters[channelType]
	return a, ok
}

type attempt struct {
	target    models.Target
	channelID string
	recipient models.Recipient
}

// DispatchStep sends one step of one instance. It returns once every
// attempt of the step has been recorded; the step is then complete
// regardless of how many attempts succeeded.
func (d *Dispatcher) DispatchStep(ctx context.Context, event *models.AlertEvent, rule *models.EscalationRule, inst *models.EscalationInstance, step models.EscalationStep) {
	if d.tracer != nil {
		var span trace.Span
		ctx, span = d.tracer.StartStepSpan(ctx, inst.ID, rule.Name, step.Level)
		defer span.End()
	}

	vars := notificationVars(event, rule, inst, step)
	action := models.ActionNotify
	if len(step.Actions) > 0 && step.Actions[0] != "" {
		action = step.Actions[0]
	}

	var attempts []attempt
	for _, rec := range step.Recipients {
		targets, err := d.resolver.Resolve(ctx, rec)
		if err != nil {
			d.record(ctx, inst, step, action, models.EscalationEvent{
				Recipient: rec.Identifier,
				Status:    models.DeliveryFailed,
				Error:     fmt.Sprintf("directory lookup: %v", err),
			})
			continue
		}
		for _, tgt := range targets {
			for _, chID := range rec.Channels {
				attempts = append(attempts, attempt{target: tgt, channelID: chID, recipient: rec})
			}
		}
	}

	if len(attempts) == 0 {
		// Record something so the level counts as dispatched and the
		// scheduler does not retry it forever.
		d.record(ctx, inst, step, action, models.EscalationEvent{
			Status: models.DeliveryFailed,
			Error:  "no addressable targets for step",
		})
		return
	}

	var wg sync.WaitGroup
	for _, at := range attempts {
		wg.Add(1)
		go func(at attempt) {
			defer wg.Done()
			d.deliver(ctx, event, rule, inst, step, action, at, vars)
		}(at)
	}
	wg.Wait()
	metrics.StepsDispatchedTotal.WithLabelValues(fmt.Sprintf("%d", step.Level)).Inc()
}

// deliver runs one attempt end to end and records its outcome. Quota is
// reserved before the transport call so the parallel attempts of one step
// cannot all slip past the same window; a rate refusal costs nothing.
func (d *Dispatcher) deliver(ctx context.Context, event *models.AlertEvent, rule *models.EscalationRule, inst *models.EscalationInstance, step models.EscalationStep, action string, at attempt, vars map[string]string) {
	ev := models.EscalationEvent{
		Recipient: at.target.ID,
		Channel:   at.channelID,
	}

	ch, err := d.channels.GetChannel(ctx, at.channelID)
	if err != nil {
		ev.Status = models.DeliveryFailed
		ev.Error = fmt.Sprintf("channel %s: %v", at.channelID, err)
		d.record(ctx, inst, step, action, ev)
		return
	}
	if !ch.Active {
		ev.Status = models.DeliveryFailed
		ev.Error = fmt.Sprintf("channel %s is inactive", at.channelID)
		d.record(ctx, inst, step, action, ev)
		return
	}
	adapter, ok := d.adapter(ch.Type)
	if !ok {
		ev.Status = models.DeliveryFailed
		ev.Error = fmt.Sprintf("no adapter for channel type %s", ch.Type)
		d.record(ctx, inst, step, action, ev)
		return
	}

	if allowed, window := d.limiter.Reserve(ctx, ch); !allowed {
		ev.Status = models.DeliveryRateLimited
		ev.Error = fmt.Sprintf("rate limit exceeded (%s window)", window)
		d.record(ctx, inst, step, action, ev)
		return
	}

	n := Notification{
		Event:    event,
		Rule:     rule,
		Instance: inst,
		Step:     step,
		Target:   at.target,
		Subject:  fmt.Sprintf("[%s] %s", event.Severity, event.Type),
		Body:     RenderTemplate(event.Message, vars),
		Vars:     vars,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	var span trace.Span
	if d.tracer != nil {
		sendCtx, span = d.tracer.StartSendSpan(sendCtx, ch.ID, ch.Type, at.target.ID)
	}
	start := time.Now()
	res := adapter.Send(sendCtx, ch, n)
	cancel()
	if span != nil {
		tracing.RecordSendResult(span, res.Status, res.Error)
		span.End()
	}
	metrics.NotificationDuration.WithLabelValues(ch.Type).Observe(time.Since(start).Seconds())

	ev.Status = res.Status
	ev.Error = res.Error
	d.record(ctx, inst, step, action, ev)
}

// record appends one attempt to the instance history with its audit row.
func (d *Dispatcher) record(ctx context.Context, inst *models.EscalationInstance, step models.EscalationStep, action string, ev models.EscalationEvent) {
	ev.Level = step.Level
	ev.Timestamp = time.Now().UTC()
	ev.Action = action
	ev.Success = ev.Status == models.DeliverySent

	if err := d.instances.AppendHistory(ctx, inst.ID, ev); err != nil {
		d.logger.Error("History append failed",
			"instanceId", inst.ID, "level", step.Level, "error", err)
	}
	if ev.Channel != "" {
		metrics.NotificationsTotal.WithLabelValues(ev.Channel, ev.Status).Inc()
	}
	d.audit.Record(ctx, models.AuditEntry{
		Category:   models.AuditNotification,
		Action:     action,
		AlertID:    inst.AlertID,
		InstanceID: inst.ID,
		RuleID:     inst.RuleID,
		Level:      step.Level,
		Recipient:  ev.Recipient,
		Channel:    ev.Channel,
		Status:     ev.Status,
		Detail:     ev.Error,
	})
	if ev.Status != models.DeliverySent {
		d.logger.Warn("Notification attempt did not send",
			"instanceId", inst.ID, "level", step.Level,
			"channel", ev.Channel, "status", ev.Status, "error", ev.Error)
	}
}
