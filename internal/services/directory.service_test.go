package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilops/vigil-core/internal/models"
)

func TestStaticDirectoryResolve(t *testing.T) {
	dir := NewStaticDirectory()
	dir.Set("role", "supervisor", []models.Target{
		{Kind: "user", ID: "anna", Address: "anna@example.com"},
		{Kind: "user", ID: "marc", Address: "marc@example.com"},
	})

	targets, err := dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "supervisor"})
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	_, err = dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "cfo"})
	assert.ErrorContains(t, err, `no directory entry for role "cfo"`)

	// Same identifier under a different kind is a different entry.
	_, err = dir.Resolve(context.Background(), models.Recipient{Kind: "group", Identifier: "supervisor"})
	assert.Error(t, err)
}

func TestStaticDirectoryResolveReturnsCopy(t *testing.T) {
	dir := NewStaticDirectory()
	dir.Set("role", "on-call", []models.Target{{Kind: "user", ID: "bob", Address: "bob@example.com"}})

	targets, err := dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "on-call"})
	require.NoError(t, err)
	targets[0].Address = "mangled"

	again, err := dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "on-call"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", again[0].Address)
}

func TestStaticDirectoryReplace(t *testing.T) {
	dir := NewStaticDirectory()
	dir.Set("role", "supervisor", []models.Target{{Kind: "user", ID: "anna", Address: "anna@example.com"}})

	dir.Replace(map[string]map[string][]models.Target{
		"group": {"claims-ops": {{Kind: "webhook", ID: "ops-hook", Address: "https://ops.example.com/hook"}}},
	})

	_, err := dir.Resolve(context.Background(), models.Recipient{Kind: "role", Identifier: "supervisor"})
	assert.Error(t, err, "replace drops entries absent from the new set")

	targets, err := dir.Resolve(context.Background(), models.Recipient{Kind: "group", Identifier: "claims-ops"})
	require.NoError(t, err)
	assert.Equal(t, "ops-hook", targets[0].ID)
}
