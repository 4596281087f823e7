package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vjranagit/pricefeed/pkg/types"
)

// RedisCache is a latest-record cache backed by Redis, for deployments
// where several readers share one cache. Failures degrade to cache misses;
// the store stays the source of truth.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects to Redis and pings it to make sure it is
// reachable.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func latestKey(pair string) string { return "latest:" + pair }

// Get implements LatestCache.Get.
func (r *RedisCache) Get(ctx context.Context, pair string) (*types.Record, bool) {
	raw, err := r.rdb.Get(ctx, latestKey(pair)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis get failed", zap.String("pair", pair), zap.Error(err))
		}
		return nil, false
	}

	var rec types.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.logger.Warn("redis cache entry corrupt", zap.String("pair", pair), zap.Error(err))
		return nil, false
	}
	return &rec, true
}

// Set implements LatestCache.Set.
func (r *RedisCache) Set(ctx context.Context, pair string, rec *types.Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, latestKey(pair), raw, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("pair", pair), zap.Error(err))
	}
}

// Close implements LatestCache.Close.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
