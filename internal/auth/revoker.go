package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers tokens that were logged out before they expired.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevoker keeps revoked token ids in Redis until the token would expire anyway.
type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

// NewRedisClient creates and pings a Redis client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}

var _ Revoker = (*RedisRevoker)(nil)
