package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/pkg/cache"
)

// RateLimiter enforces per-channel send quotas over minute, hour and day
// windows backed by cache counters, so every replica shares the same budget
// when a Valkey node is configured.
type RateLimiter struct {
	cache  cache.Valkey
	logger logging.Logger
	now    func() time.Time
}

func NewRateLimiter(c cache.Valkey, log logging.Logger) *RateLimiter {
	return &RateLimiter{cache: c, logger: log, now: time.Now}
}

type rlWindow struct {
	name   string
	length time.Duration
	limit  int
}

func (r *RateLimiter) windows(ch *models.NotificationChannel) []rlWindow {
	return []rlWindow{
		{name: "minute", length: time.Minute, limit: ch.RateLimits.MaxPerMinute},
		{name: "hour", length: time.Hour, limit: ch.RateLimits.MaxPerHour},
		{name: "day", length: 24 * time.Hour, limit: ch.RateLimits.MaxPerDay},
	}
}

func (r *RateLimiter) key(channelID string, w rlWindow) string {
	bucket := r.now().Unix() / int64(w.length/time.Second)
	return fmt.Sprintf("notif_rl:%s:%s:%d", channelID, w.name, bucket)
}

// Reserve claims one send against every window of the channel, atomically
// per counter: each window is incremented first, and when one comes back
// over its limit every increment made so far is refunded. Parallel callers
// therefore race to the counter, not past it, and a refused send leaves
// quota untouched. Refusals return allowed=false with the exhausted
// window's name; they are recorded as rate_limited and never retried.
func (r *RateLimiter) Reserve(ctx context.Context, ch *models.NotificationChannel) (bool, string) {
	var claimed []string
	for _, w := range r.windows(ch) {
		if w.limit <= 0 {
			continue // unlimited window
		}
		key := r.key(ch.ID, w)
		// Windows expire a little after their length so a late reader
		// still sees the closing bucket.
		count, err := r.cache.Increment(ctx, key, w.length+w.length/2)
		if err != nil {
			// Cache failure: fail open, no claim to refund for this window.
			r.logger.Warn("Rate-limit counter increment failed", "channel", ch.ID, "window", w.name, "error", err)
			continue
		}
		if count > int64(w.limit) {
			metrics.RateLimitHitsTotal.WithLabelValues(ch.ID, w.name).Inc()
			r.refund(ctx, ch, append(claimed, key))
			return false, w.name
		}
		claimed = append(claimed, key)
	}
	return true, ""
}

func (r *RateLimiter) refund(ctx context.Context, ch *models.NotificationChannel, keys []string) {
	for _, key := range keys {
		if _, err := r.cache.Decrement(ctx, key); err != nil {
			r.logger.Warn("Rate-limit counter refund failed", "channel", ch.ID, "key", key, "error", err)
		}
	}
}
