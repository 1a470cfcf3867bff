package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lovablehtml/prerender-engine/internal/logger"
)

// Redis implements sync.KVStore over a Redis instance, for local/dev
// deployments that don't have Cloudflare credentials configured.
type Redis struct {
	client *redis.Client
	log    *logger.Logger
}

// RedisOptions carries the connection details for a Redis-backed KVStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to addr and verifies reachability with a ping.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, log: logger.New("RedisKV")}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// Get reports found=false, err=nil when the key is absent (redis.Nil).
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value at key with a TTL in seconds.
func (r *Redis) Put(ctx context.Context, key, value string, ttlSeconds int) error {
	if err := r.client.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err(); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}
