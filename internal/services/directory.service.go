package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vigilops/vigil-core/internal/models"
)

type dirKey struct {
	kind       string
	identifier string
}

// StaticDirectory is the file-backed DirectoryResolver: recipient → targets
// mappings come from the rules bootstrap document and are swapped wholesale
// on hot reload. Deployments with an HR/on-call system put their own
// resolver here instead.
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[dirKey][]models.Target
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{entries: make(map[dirKey][]models.Target)}
}

// Replace swaps the whole mapping. Called at bootstrap and on every rules
// file reload.
func (d *StaticDirectory) Replace(entries map[string]map[string][]models.Target) {
	next := make(map[dirKey][]models.Target)
	for kind, byID := range entries {
		for id, targets := range byID {
			next[dirKey{kind: kind, identifier: id}] = targets
		}
	}
	d.mu.Lock()
	d.entries = next
	d.mu.Unlock()
}

// Set installs the targets for one recipient.
func (d *StaticDirectory) Set(kind, identifier string, targets []models.Target) {
	d.mu.Lock()
	d.entries[dirKey{kind: kind, identifier: identifier}] = targets
	d.mu.Unlock()
}

func (d *StaticDirectory) Resolve(_ context.Context, r models.Recipient) ([]models.Target, error) {
	d.mu.RLock()
	targets, ok := d.entries[dirKey{kind: r.Kind, identifier: r.Identifier}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no directory entry for %s %q", r.Kind, r.Identifier)
	}
	out := make([]models.Target, len(targets))
	copy(out, targets)
	return out, nil
}
