package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations stores revoked token hashes as Redis keys whose TTL
// matches the remaining token lifetime, so revocation survives restarts and
// is shared by every instance pointing at the same Redis.
type RedisRevocations struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRevocations(rdb *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocations{rdb: rdb, prefix: prefix}
}

func (r *RedisRevocations) key(tokenHash string) string {
	return r.prefix + ":" + tokenHash
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.key(tokenHash), 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
