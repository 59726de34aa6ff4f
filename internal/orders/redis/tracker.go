// Package redis provides a Redis-backed order status tracker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "order_status:"
	defaultTTL = 30 * 24 * time.Hour
)

// StatusTracker implements orders.StatusTracker using Redis.
type StatusTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusTracker creates a tracker whose entries expire after ttl.
func NewStatusTracker(client *redis.Client, ttl time.Duration) *StatusTracker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &StatusTracker{client: client, ttl: ttl}
}

func key(userID, orderID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, userID, orderID)
}

// Swap stores status and returns the previous one.
func (t *StatusTracker) Swap(ctx context.Context, userID, orderID, status string) (string, error) {
	k := key(userID, orderID)

	pipe := t.client.TxPipeline()
	prev := pipe.GetSet(ctx, k, status)
	pipe.Expire(ctx, k, t.ttl)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("swap order status: %w", err)
	}

	val, err := prev.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("swap order status: %w", err)
	}
	return val, nil
}

// Forget drops the stored status of an order.
func (t *StatusTracker) Forget(ctx context.Context, userID, orderID string) error {
	if err := t.client.Del(ctx, key(userID, orderID)).Err(); err != nil {
		return fmt.Errorf("forget order status: %w", err)
	}
	return nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
