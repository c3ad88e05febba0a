package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
)

// Alert types emitted by the built-in detection adapters.
const (
	AlertTypeSLABreach     = "SLA_BREACH"
	AlertTypeWorkloadRatio = "WORKLOAD_RATIO"
	AlertTypeBatchAge      = "BATCH_AGE"
)

// OpenClaim is the read-model row the SLA and batch-age adapters scan.
type OpenClaim struct {
	ID         string
	Team       string
	OpenedAt   time.Time
	Assigned   bool
	VIP        bool
	ProductTag string
}

// TeamLoad is one team's staffing snapshot for the workload adapter.
type TeamLoad struct {
	Team       string
	OpenClaims int
	Adjusters  int
}

// DomainReader is the engine's read-only view of the claims back office.
// The operational database stays on the other side of this interface.
type DomainReader interface {
	OpenClaims(ctx context.Context) ([]OpenClaim, error)
	TeamLoads(ctx context.Context) ([]TeamLoad, error)
}

// RiskScorer grades a claim's escalation risk from 0 to 1. Optional; a nil
// scorer leaves the adapters on their static severity ladder.
type RiskScorer interface {
	Score(ctx context.Context, claimID string, features map[string]float64) (float64, error)
}

func severityForRisk(score float64, fallback string) string {
	switch {
	case score >= 0.85:
		return models.SeverityCritical
	case score >= 0.6:
		return models.SeverityHigh
	case score >= 0.3:
		return models.SeverityMedium
	case score > 0:
		return models.SeverityLow
	default:
		return fallback
	}
}

// SLADetector flags claims that stayed open past the handling SLA. One
// event per claim; severity climbs with the overrun and, when the risk
// engine is wired, with its score.
type SLADetector struct {
	reader DomainReader
	scorer RiskScorer
	cfg    config.SLADetectorConfig
	logger logging.Logger
	now    func() time.Time
}

func NewSLADetector(reader DomainReader, scorer RiskScorer, cfg config.SLADetectorConfig, log logging.Logger) *SLADetector {
	return &SLADetector{reader: reader, scorer: scorer, cfg: cfg, logger: log, now: time.Now}
}

func (d *SLADetector) Name() string            { return "sla" }
func (d *SLADetector) AlertType() string       { return AlertTypeSLABreach }
func (d *SLADetector) Interval() time.Duration { return time.Duration(d.cfg.IntervalSeconds) * time.Second }

func (d *SLADetector) Evaluate(ctx context.Context) ([]models.AlertCandidate, error) {
	claims, err := d.reader.OpenClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("sla scan: %w", err)
	}

	limit := float64(d.cfg.MaxDelayHours)
	now := d.now().UTC()
	var out []models.AlertCandidate
	for _, c := range claims {
		age := now.Sub(c.OpenedAt).Hours()
		if age <= limit {
			continue
		}

		severity := models.SeverityHigh
		if age > 2*limit {
			severity = models.SeverityCritical
		}
		if d.scorer != nil {
			features := map[string]float64{"delay_hours": age}
			if c.VIP {
				features["vip"] = 1
			}
			if score, err := d.scorer.Score(ctx, c.ID, features); err == nil {
				severity = severityForRisk(score, severity)
			} else {
				d.logger.Warn("Risk scoring unavailable, keeping static severity",
					"claimId", c.ID, "error", err)
			}
		}

		out = append(out, models.AlertCandidate{
			Type:     AlertTypeSLABreach,
			Scope:    c.ID,
			Severity: severity,
			Message:  fmt.Sprintf("claim %s open for %.0fh, SLA is %dh", c.ID, age, d.cfg.MaxDelayHours),
			Metadata: models.Metadata{
				"delayHours": models.Number(age),
				"team":       models.String(c.Team),
				"vip":        models.Bool(c.VIP),
				"product":    models.String(c.ProductTag),
			},
		})
	}
	return out, nil
}

// WorkloadDetector compares each team's open claims per adjuster against
// the configured ceiling. Scope is the team, so every overloaded team
// carries exactly one open event.
type WorkloadDetector struct {
	reader DomainReader
	cfg    config.WorkloadDetectorConfig
}

func NewWorkloadDetector(reader DomainReader, cfg config.WorkloadDetectorConfig) *WorkloadDetector {
	return &WorkloadDetector{reader: reader, cfg: cfg}
}

func (d *WorkloadDetector) Name() string            { return "workload" }
func (d *WorkloadDetector) AlertType() string       { return AlertTypeWorkloadRatio }
func (d *WorkloadDetector) Interval() time.Duration { return time.Duration(d.cfg.IntervalSeconds) * time.Second }

func (d *WorkloadDetector) Evaluate(ctx context.Context) ([]models.AlertCandidate, error) {
	loads, err := d.reader.TeamLoads(ctx)
	if err != nil {
		return nil, fmt.Errorf("workload scan: %w", err)
	}

	var out []models.AlertCandidate
	for _, l := range loads {
		if l.Adjusters == 0 {
			// A staffed-down team with open claims is its own breach.
			if l.OpenClaims == 0 {
				continue
			}
			out = append(out, models.AlertCandidate{
				Type:     AlertTypeWorkloadRatio,
				Scope:    l.Team,
				Severity: models.SeverityCritical,
				Message:  fmt.Sprintf("team %s has %d open claims and no adjusters", l.Team, l.OpenClaims),
				Metadata: models.Metadata{
					"openClaims": models.Number(float64(l.OpenClaims)),
					"adjusters":  models.Number(0),
				},
			})
			continue
		}

		ratio := float64(l.OpenClaims) / float64(l.Adjusters)
		if ratio <= d.cfg.MaxRatio {
			continue
		}
		severity := models.SeverityMedium
		if ratio > 2*d.cfg.MaxRatio {
			severity = models.SeverityHigh
		}
		out = append(out, models.AlertCandidate{
			Type:     AlertTypeWorkloadRatio,
			Scope:    l.Team,
			Severity: severity,
			Message:  fmt.Sprintf("team %s carries %.1f open claims per adjuster, limit is %.1f", l.Team, ratio, d.cfg.MaxRatio),
			Metadata: models.Metadata{
				"ratio":      models.Number(ratio),
				"openClaims": models.Number(float64(l.OpenClaims)),
				"adjusters":  models.Number(float64(l.Adjusters)),
			},
		})
	}
	return out, nil
}

// BatchAgeDetector watches the unassigned backlog as a whole: it emits one
// global event (empty scope) when the oldest unassigned claim exceeds the
// age ceiling.
type BatchAgeDetector struct {
	reader DomainReader
	cfg    config.BatchAgeDetectorConfig
	now    func() time.Time
}

func NewBatchAgeDetector(reader DomainReader, cfg config.BatchAgeDetectorConfig) *BatchAgeDetector {
	return &BatchAgeDetector{reader: reader, cfg: cfg, now: time.Now}
}

func (d *BatchAgeDetector) Name() string            { return "batch_age" }
func (d *BatchAgeDetector) AlertType() string       { return AlertTypeBatchAge }
func (d *BatchAgeDetector) Interval() time.Duration { return time.Duration(d.cfg.IntervalSeconds) * time.Second }

func (d *BatchAgeDetector) Evaluate(ctx context.Context) ([]models.AlertCandidate, error) {
	claims, err := d.reader.OpenClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("batch-age scan: %w", err)
	}

	now := d.now().UTC()
	oldest := 0.0
	oldestID := ""
	backlog := 0
	for _, c := range claims {
		if c.Assigned {
			continue
		}
		backlog++
		if age := now.Sub(c.OpenedAt).Hours(); age > oldest {
			oldest = age
			oldestID = c.ID
		}
	}
	if oldest <= float64(d.cfg.MaxAgeHours) {
		return nil, nil
	}

	severity := models.SeverityMedium
	if oldest > 2*float64(d.cfg.MaxAgeHours) {
		severity = models.SeverityHigh
	}
	return []models.AlertCandidate{{
		Type:     AlertTypeBatchAge,
		Scope:    "",
		Severity: severity,
		Message:  fmt.Sprintf("oldest unassigned claim %s is %.0fh old, ceiling is %dh", oldestID, oldest, d.cfg.MaxAgeHours),
		Metadata: models.Metadata{
			"oldestClaim": models.String(oldestID),
			"ageHours":    models.Number(oldest),
			"backlog":     models.Number(float64(backlog)),
		},
	}}, nil
}
