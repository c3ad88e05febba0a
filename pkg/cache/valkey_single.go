package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vigilops/vigil-core/internal/monitoring"
)

// valkeySingleImpl implements Valkey against a single-node Valkey/Redis
// instance.
type valkeySingleImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeySingle(addr string, db int, password string, defaultTTL time.Duration) (Valkey, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey single-node: %w", err)
	}

	return &valkeySingleImpl{
		client: client,
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeySingleImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		monitoring.RecordCacheOperation("get", "error")
		return nil, err
	}
	monitoring.RecordCacheOperation("get", "hit")
	return b, nil
}

func (v *valkeySingleImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var data []byte
	switch x := value.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		j, err := json.Marshal(x)
		if err != nil {
			monitoring.RecordCacheOperation("set", "error")
			return fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		data = j
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (v *valkeySingleImpl) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		monitoring.RecordCacheOperation("delete", "error")
		return err
	}
	monitoring.RecordCacheOperation("delete", "success")
	return nil
}

func (v *valkeySingleImpl) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	val, err := v.client.Incr(ctx, key).Result()
	if err != nil {
		monitoring.RecordCacheOperation("incr", "error")
		return 0, err
	}
	// First increment of a window sets its expiry; later increments keep it.
	if val == 1 {
		if err := v.client.Expire(ctx, key, ttl).Err(); err != nil {
			monitoring.RecordCacheOperation("incr", "error")
			return val, err
		}
	}
	monitoring.RecordCacheOperation("incr", "success")
	return val, nil
}

func (v *valkeySingleImpl) Decrement(ctx context.Context, key string) (int64, error) {
	val, err := v.client.Decr(ctx, key).Result()
	if err != nil {
		monitoring.RecordCacheOperation("decr", "error")
		return 0, err
	}
	monitoring.RecordCacheOperation("decr", "success")
	return val, nil
}
