package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vigilops/vigil-core/pkg/logger"
)

// noopValkeyCache is an in-memory, process-local fallback that satisfies
// Valkey when no external cache is configured. Best effort: data is not
// shared across replicas and is lost on restart, so rate-limit windows are
// per-process in this mode.
type noopValkeyCache struct {
	mu sync.Mutex
	m  map[string]noopEntry
}

type noopEntry struct {
	b       []byte
	n       int64
	expires time.Time
}

func NewNoopValkeyCache(log logger.Logger) Valkey {
	if log != nil {
		log.Warn("Valkey cache not configured; using in-memory fallback (noop)")
	}
	return &noopValkeyCache{m: make(map[string]noopEntry)}
}

func (n *noopValkeyCache) live(key string) (noopEntry, bool) {
	e, ok := n.m[key]
	if !ok {
		return noopEntry{}, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(n.m, key)
		return noopEntry{}, false
	}
	return e, true
}

func (n *noopValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.live(key)
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if e.b == nil {
		// Counter key: expose it the way Redis GET would.
		return []byte(strconv.FormatInt(e.n, 10)), nil
	}
	return e.b, nil
}

func (n *noopValkeyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = noopEntry{b: b, expires: expires}
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.live(key)
	if !ok {
		e = noopEntry{}
		if ttl > 0 {
			e.expires = time.Now().Add(ttl)
		}
	}
	e.n++
	n.m[key] = e
	return e.n, nil
}

func (n *noopValkeyCache) Decrement(ctx context.Context, key string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.live(key)
	if !ok {
		e = noopEntry{}
	}
	e.n--
	n.m[key] = e
	return e.n, nil
}
