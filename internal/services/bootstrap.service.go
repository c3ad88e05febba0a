package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// RulesBootstrap applies the rules file to the running engine: channels,
// escalation rules and the recipient directory. A malformed rule is
// deactivated and logged, never fatal; the engine keeps going with the rest
// of the file.
type RulesBootstrap struct {
	path      string
	store     storage.Store
	directory *StaticDirectory
	logger    logging.Logger
}

func NewRulesBootstrap(cfg config.RulesConfig, store storage.Store, directory *StaticDirectory, log logging.Logger) *RulesBootstrap {
	return &RulesBootstrap{path: cfg.Path, store: store, directory: directory, logger: log}
}

// Load reads and applies the configured file.
func (b *RulesBootstrap) Load(ctx context.Context) error {
	f, err := config.LoadRulesFile(b.path)
	if err != nil {
		return err
	}
	return b.Apply(ctx, f)
}

// Apply installs one parsed rules file. Channels and directory are swapped
// wholesale; rules are upserted by id so instances keep their rule snapshot
// path intact.
func (b *RulesBootstrap) Apply(ctx context.Context, f *config.RulesFile) error {
	for _, spec := range f.Channels {
		ch := spec.ToModel()
		if err := models.ValidateChannel(ch); err != nil {
			b.logger.Error("Channel definition rejected", "channelId", spec.ID, "error", err)
			continue
		}
		if err := b.store.UpsertChannel(ctx, ch); err != nil {
			return fmt.Errorf("apply channel %s: %w", ch.ID, err)
		}
	}

	applied, deactivated := 0, 0
	for _, spec := range f.Rules {
		rule := spec.ToModel()
		if err := models.ValidateRule(rule); err != nil {
			// Deactivate instead of dropping so the rule is visible (and
			// fixable) through the API.
			rule.Active = false
			deactivated++
			metrics.RulesDeactivatedTotal.WithLabelValues("config").Inc()
			b.logger.Error("Escalation rule deactivated at load", "ruleId", rule.ID, "error", err)
		}
		if err := b.upsertRule(ctx, rule); err != nil {
			return fmt.Errorf("apply rule %s: %w", rule.ID, err)
		}
		applied++
	}

	if b.directory != nil {
		entries := make(map[string]map[string][]models.Target)
		for _, d := range f.Directory {
			if entries[d.Kind] == nil {
				entries[d.Kind] = make(map[string][]models.Target)
			}
			entries[d.Kind][d.Identifier] = d.TargetModels()
		}
		b.directory.Replace(entries)
	}

	b.logger.Info("Rules file applied",
		"path", b.path, "rules", applied, "deactivated", deactivated,
		"channels", len(f.Channels), "directoryEntries", len(f.Directory))
	return nil
}

func (b *RulesBootstrap) upsertRule(ctx context.Context, rule *models.EscalationRule) error {
	existing, err := b.store.GetRule(ctx, rule.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			now := time.Now().UTC()
			rule.CreatedAt = now
			rule.UpdatedAt = now
			return b.store.CreateRule(ctx, rule)
		}
		return err
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	return b.store.UpdateRule(ctx, rule)
}
