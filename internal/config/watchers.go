package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/vigilops/vigil-core/pkg/logger"
)

// RulesWatcher reloads the escalation-rules bootstrap file when it changes
// on disk and notifies registered callbacks with the parsed document.
type RulesWatcher struct {
	path     string
	logger   logger.Logger
	mu       sync.RWMutex
	watchers []func(*RulesFile)
	stopCh   chan struct{}
}

func NewRulesWatcher(path string, log logger.Logger) *RulesWatcher {
	return &RulesWatcher{
		path:     path,
		logger:   log,
		watchers: make([]func(*RulesFile), 0),
		stopCh:   make(chan struct{}),
	}
}

// RegisterWatcher adds a callback invoked after each successful reload.
func (w *RulesWatcher) RegisterWatcher(fn func(*RulesFile)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, fn)
}

// Start begins watching for rules file changes. Setup errors are returned
// synchronously; the watch loop itself runs in the background until ctx is
// done or Stop is called.
func (w *RulesWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch rules file: %w", err)
	}

	w.logger.Info("Rules watcher started", "path", w.path)
	go w.watchLoop(ctx, watcher)
	return nil
}

func (w *RulesWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("Rules file changed, reloading", "file", event.Name)

			f, err := LoadRulesFile(w.path)
			if err != nil {
				// A bad edit must not take down the running rule set.
				w.logger.Error("Failed to reload rules file", "error", err)
				continue
			}
			w.notifyWatchers(f)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Rules watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Info("Rules watcher stopping")
			return

		case <-w.stopCh:
			w.logger.Info("Rules watcher stopped")
			return
		}
	}
}

// Stop terminates the watch loop.
func (w *RulesWatcher) Stop() {
	close(w.stopCh)
}

func (w *RulesWatcher) notifyWatchers(f *RulesFile) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.watchers {
		fn(f)
	}
}
