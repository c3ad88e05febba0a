package services

import (
	"context"
	"fmt"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
)

// Ingestor is the single entry point for alert candidates. Detection
// adapters and the emit API both go through it: deduplicate, then run rule
// matching when the event is new or its content changed.
type Ingestor struct {
	dedup   *Deduplicator
	matcher *RuleMatcher
	kicker  Kicker
	logger  logging.Logger
}

func NewIngestor(dedup *Deduplicator, matcher *RuleMatcher, kicker Kicker, log logging.Logger) *Ingestor {
	return &Ingestor{dedup: dedup, matcher: matcher, kicker: kicker, logger: log}
}

// Ingest pushes one candidate through the pipeline and returns the resulting
// event with the dedup outcome.
func (i *Ingestor) Ingest(ctx context.Context, cand *models.AlertCandidate) (*models.AlertEvent, string, error) {
	if err := models.ValidateCandidate(cand); err != nil {
		return nil, "", err
	}

	outcome, event, err := i.dedup.Process(ctx, cand)
	if err != nil {
		return nil, "", fmt.Errorf("ingest %s/%s: %w", cand.Type, cand.Scope, err)
	}
	if outcome == DedupUnchanged {
		return event, outcome, nil
	}

	// DedupUpdated re-matches too: an event whose severity climbed may now
	// satisfy rules it missed at creation.
	if _, err := i.matcher.Match(ctx, event); err != nil {
		i.logger.Error("Rule matching failed",
			"alertId", event.ID, "type", event.Type, "error", err)
	}
	return event, outcome, nil
}

// Clear resolves the open event for a key, if any. The scheduler cancels the
// instances still escalating it; the kick makes that prompt instead of
// waiting out the poll interval.
func (i *Ingestor) Clear(ctx context.Context, key models.DedupKey) (bool, error) {
	_, resolved, err := i.dedup.ResolveScope(ctx, key)
	if err != nil {
		return false, err
	}
	if resolved && i.kicker != nil {
		i.kicker.Kick()
	}
	return resolved, nil
}
