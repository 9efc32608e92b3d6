package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	xlog "github.com/ftv2g/ftv2g/internal/log"
)

// Redis is a Cache backed by a Redis server, useful when several gateway
// instances sit behind one address. Errors degrade to cache misses.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, prefix: "ftv2g:"}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger := xlog.WithComponent("cache")
			logger.Debug().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		logger := xlog.WithComponent("cache")
		logger.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
