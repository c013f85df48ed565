package vapi

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DuplicateGuard short-circuits redelivered reports before the database
// round-trips. It is strictly best-effort: callers must treat an error as
// "assume first delivery" and rely on the calls table unique index.
type DuplicateGuard interface {
	FirstDelivery(ctx context.Context, vapiCallID string) (bool, error)
}

// RedisGuard remembers seen call ids via SET NX with a TTL.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) (*RedisGuard, error) {
	if rdb == nil {
		return nil, fmt.Errorf("vapi: redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("vapi: dedup ttl must be > 0")
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}, nil
}

func (g *RedisGuard) FirstDelivery(ctx context.Context, vapiCallID string) (bool, error) {
	if vapiCallID == "" {
		return false, fmt.Errorf("vapi: call id is required")
	}
	return g.rdb.SetNX(ctx, dedupKey(vapiCallID), 1, g.ttl).Result()
}

func dedupKey(vapiCallID string) string {
	return "vapi:call:" + vapiCallID
}
