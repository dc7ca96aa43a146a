package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ActivityWindow counts per-device notification deliveries over a fixed
// window. It only observes; deliveries are never refused.
type ActivityWindow struct {
	client    *redis.Client
	window    time.Duration
	keyPrefix string
}

// NewActivityWindow creates a new Redis-based delivery counter
func NewActivityWindow(client *redis.Client, window time.Duration) *ActivityWindow {
	return &ActivityWindow{
		client:    client,
		window:    window,
		keyPrefix: "delivery_activity:",
	}
}

func (a *ActivityWindow) key(deviceID string) string {
	return fmt.Sprintf("%s%s", a.keyPrefix, deviceID)
}

// Record notes one delivery and returns the count within the current window
func (a *ActivityWindow) Record(ctx context.Context, deviceID string) (int64, error) {
	key := a.key(deviceID)

	count, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr error: %w", err)
	}

	// The first delivery opens the window
	if count == 1 {
		if err := a.client.Expire(ctx, key, a.window).Err(); err != nil {
			return count, fmt.Errorf("redis expire error: %w", err)
		}
	}
	return count, nil
}

// Count returns the deliveries recorded for a device in the current window
func (a *ActivityWindow) Count(ctx context.Context, deviceID string) (int64, error) {
	count, err := a.client.Get(ctx, a.key(deviceID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get error: %w", err)
	}
	return count, nil
}

// TTL returns the time until the device's window resets
func (a *ActivityWindow) TTL(ctx context.Context, deviceID string) (time.Duration, error) {
	ttl, err := a.client.TTL(ctx, a.key(deviceID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl error: %w", err)
	}
	return ttl, nil
}

// Reset clears a device's window
func (a *ActivityWindow) Reset(ctx context.Context, deviceID string) error {
	if err := a.client.Del(ctx, a.key(deviceID)).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}
