package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

func bootstrapFile() *config.RulesFile {
	f := &config.RulesFile{}
	ch := config.ChannelSpec{ID: "ops-email", Type: models.ChannelEmail}
	ch.RateLimits.MaxPerMinute = 10
	f.Channels = append(f.Channels, ch)
	f.Rules = append(f.Rules, config.RuleSpec{
		ID:        "rule-sla",
		Name:      "SLA breach escalation",
		AlertType: "SLA_BREACH",
		Steps: []config.StepSpec{{
			Level:             0,
			DelayMinutes:      0,
			StopOnAcknowledge: true,
			Actions:           []string{models.ActionNotify},
			Recipients: []config.RecipientSpec{{
				Kind: "role", Identifier: "supervisor", Channels: []string{"ops-email"},
			}},
		}},
	})
	f.Directory = append(f.Directory, config.DirectoryEntrySpec{
		Kind:       "role",
		Identifier: "supervisor",
		Targets:    []config.TargetSpec{{Kind: "user", ID: "anna", Address: "anna@example.com"}},
	})
	return f
}

func TestBootstrapAppliesChannelsRulesAndDirectory(t *testing.T) {
	store := storage.NewMemoryStore()
	dir := NewStaticDirectory()
	b := NewRulesBootstrap(config.RulesConfig{Path: "rules.yaml"}, store, dir, logging.NewNop())
	ctx := context.Background()

	require.NoError(t, b.Apply(ctx, bootstrapFile()))

	ch, err := store.GetChannel(ctx, "ops-email")
	require.NoError(t, err)
	assert.True(t, ch.Active)

	rule, err := store.GetRule(ctx, "rule-sla")
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.False(t, rule.CreatedAt.IsZero())

	targets, err := dir.Resolve(ctx, models.Recipient{Kind: "role", Identifier: "supervisor"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "anna@example.com", targets[0].Address)
}

func TestBootstrapReapplyPreservesCreatedAt(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewRulesBootstrap(config.RulesConfig{}, store, NewStaticDirectory(), logging.NewNop())
	ctx := context.Background()

	f := bootstrapFile()
	require.NoError(t, b.Apply(ctx, f))
	first, err := store.GetRule(ctx, "rule-sla")
	require.NoError(t, err)

	f.Rules[0].Name = "SLA breach escalation v2"
	require.NoError(t, b.Apply(ctx, f))

	second, err := store.GetRule(ctx, "rule-sla")
	require.NoError(t, err)
	assert.Equal(t, "SLA breach escalation v2", second.Name)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestBootstrapDeactivatesMalformedRule(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewRulesBootstrap(config.RulesConfig{}, store, NewStaticDirectory(), logging.NewNop())
	ctx := context.Background()

	f := bootstrapFile()
	f.Rules = append(f.Rules, config.RuleSpec{
		ID:        "rule-broken",
		Name:      "no steps at all",
		AlertType: "SLA_BREACH",
	})
	require.NoError(t, b.Apply(ctx, f))

	broken, err := store.GetRule(ctx, "rule-broken")
	require.NoError(t, err)
	assert.False(t, broken.Active, "malformed rule should be stored deactivated")

	healthy, err := store.GetRule(ctx, "rule-sla")
	require.NoError(t, err)
	assert.True(t, healthy.Active, "one bad rule must not take down the rest of the file")
}

func TestBootstrapSkipsInvalidChannel(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewRulesBootstrap(config.RulesConfig{}, store, NewStaticDirectory(), logging.NewNop())
	ctx := context.Background()

	f := bootstrapFile()
	f.Channels = append(f.Channels, config.ChannelSpec{ID: "pigeons", Type: "carrier-pigeon"})
	require.NoError(t, b.Apply(ctx, f))

	_, err := store.GetChannel(ctx, "pigeons")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBootstrapDirectoryReplaceDropsStaleEntries(t *testing.T) {
	store := storage.NewMemoryStore()
	dir := NewStaticDirectory()
	dir.Set("role", "on-call", []models.Target{{Kind: "user", ID: "bob", Address: "+3312345678"}})
	b := NewRulesBootstrap(config.RulesConfig{}, store, dir, logging.NewNop())

	require.NoError(t, b.Apply(context.Background(), bootstrapFile()))

	_, err := dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "on-call"})
	assert.Error(t, err, "entries absent from the file are removed on reload")
}
