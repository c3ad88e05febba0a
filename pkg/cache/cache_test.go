package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoopCache_SetGetDelete(t *testing.T) {
	c := NewNoopValkeyCache(nil)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(b) != "v" {
		t.Errorf("got %q, want v", b)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected miss after delete")
	}
}

func TestNoopCache_Expiry(t *testing.T) {
	c := NewNoopValkeyCache(nil)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected miss after expiry")
	}
}

func TestNoopCache_Increment(t *testing.T) {
	c := NewNoopValkeyCache(nil)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Increment(ctx, "counter", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Errorf("incr = %d, want %d", got, want)
		}
	}
}

func TestNoopCache_DecrementRefundsIncrement(t *testing.T) {
	c := NewNoopValkeyCache(nil)
	ctx := context.Background()

	if _, err := c.Increment(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if _, err := c.Increment(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	got, err := c.Decrement(ctx, "counter")
	if err != nil {
		t.Fatalf("decr: %v", err)
	}
	if got != 1 {
		t.Errorf("decr = %d, want 1", got)
	}
}

func TestNoopCache_IncrementWindowReset(t *testing.T) {
	c := NewNoopValkeyCache(nil)
	ctx := context.Background()

	if _, err := c.Increment(ctx, "w", 10*time.Millisecond); err != nil {
		t.Fatalf("incr: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	got, err := c.Increment(ctx, "w", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 1 {
		t.Errorf("counter must restart after window expiry, got %d", got)
	}
}
