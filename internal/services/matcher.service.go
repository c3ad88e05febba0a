package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// Kicker wakes the scheduler out of its poll interval so level-0 steps with
// zero delay go out promptly.
type Kicker interface {
	Kick()
}

// RuleMatcher evaluates active rules against alert events and opens
// escalation instances for the ones that match. Matching is idempotent: a
// pair that already has a non-terminal instance is left alone.
type RuleMatcher struct {
	rules     storage.RuleStore
	instances storage.InstanceStore
	audit     *AuditService
	kicker    Kicker
	logger    logging.Logger
}

func NewRuleMatcher(rules storage.RuleStore, instances storage.InstanceStore, audit *AuditService, kicker Kicker, log logging.Logger) *RuleMatcher {
	return &RuleMatcher{rules: rules, instances: instances, audit: audit, kicker: kicker, logger: log}
}

// Match runs every active rule against the event and returns the instances
// it opened. Called on DedupCreated and on DedupUpdated, so an event whose
// severity climbs into a rule's range gets escalated late.
func (m *RuleMatcher) Match(ctx context.Context, event *models.AlertEvent) ([]*models.EscalationInstance, error) {
	rules, err := m.rules.ListRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	var opened []*models.EscalationInstance
	for _, rule := range rules {
		if !m.Matches(rule, event) {
			continue
		}
		metrics.RulesMatchedTotal.WithLabelValues(rule.Name).Inc()

		inst := &models.EscalationInstance{
			AlertID:   event.ID,
			RuleID:    rule.ID,
			Status:    models.InstanceActive,
			StartedAt: time.Now().UTC(),
		}
		if err := m.instances.CreateInstance(ctx, inst); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				// Already escalating this pair.
				continue
			}
			return opened, fmt.Errorf("create instance for rule %s: %w", rule.ID, err)
		}
		metrics.InstancesCreatedTotal.WithLabelValues(rule.Name).Inc()
		m.audit.Record(ctx, models.AuditEntry{
			Category:   models.AuditInstance,
			Action:     "created",
			AlertID:    event.ID,
			InstanceID: inst.ID,
			RuleID:     rule.ID,
		})
		m.logger.Info("Escalation instance opened",
			"instanceId", inst.ID, "alertId", event.ID, "rule", rule.Name)
		opened = append(opened, inst)
	}

	if len(opened) > 0 && m.kicker != nil {
		m.kicker.Kick()
	}
	return opened, nil
}

// Matches reports whether one rule selects the event: alert-type selector,
// optional severity equality, then the condition list.
func (m *RuleMatcher) Matches(rule *models.EscalationRule, event *models.AlertEvent) bool {
	if !rule.AppliesTo(event.Type) {
		return false
	}
	if rule.Severity != "" && rule.Severity != event.Severity {
		return false
	}
	return EvaluateConditions(rule.Conditions, event)
}

// EvaluateConditions folds the condition list left to right. Each
// condition's logical_operator joins its result with the NEXT condition's;
// empty means AND. An empty list matches everything.
func EvaluateConditions(conds []models.Condition, event *models.AlertEvent) bool {
	if len(conds) == 0 {
		return true
	}
	root := event.EventValue()
	result := evalCondition(conds[0], root)
	for i := 1; i < len(conds); i++ {
		next := evalCondition(conds[i], root)
		if conds[i-1].LogicalOperator == models.JoinOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// evalCondition applies one predicate. A field path that does not resolve
// makes the condition false, never an error; alert metadata is free-form and
// absent fields are an expected shape, not a fault.
func evalCondition(c models.Condition, root models.Value) bool {
	res := models.ResolvePath(root, c.FieldPath)
	if !res.Found {
		return false
	}
	switch c.Operator {
	case models.OpEquals:
		return res.Value.Equals(c.Value)
	case models.OpGreaterThan:
		l, lok := res.Value.AsNumber()
		r, rok := c.Value.AsNumber()
		return lok && rok && l > r
	case models.OpLessThan:
		l, lok := res.Value.AsNumber()
		r, rok := c.Value.AsNumber()
		return lok && rok && l < r
	case models.OpContains:
		return res.Value.Contains(c.Value)
	default:
		// Unknown operators are rejected at rule validation; a rule that
		// slipped past simply never matches.
		return false
	}
}
