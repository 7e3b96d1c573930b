package authcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/servicebot/core/logger"
)

// Redis stores flags as "1"/"0" strings under prefix+userID.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects to rawURL. A value that is not a redis:// URL is used as
// a plain host:port address.
func NewRedis(ctx context.Context, rawURL, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		logger.Warn(ctx, component, "redis.parse_url",
			slog.String("err", err.Error()),
			slog.String("fallback", "addr"),
		)
		opt = &redis.Options{Addr: rawURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("authcache: redis ping: %w", err)
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, userID int64) (bool, error) {
	v, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authcache: redis get: %w", err)
	}
	return v == "1", nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, userID int64, authenticated bool) error {
	v := "0"
	if authenticated {
		v = "1"
	}
	if err := r.rdb.Set(ctx, r.key(userID), v, 0).Err(); err != nil {
		return fmt.Errorf("authcache: redis set: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("authcache: redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.rdb.Close() }
