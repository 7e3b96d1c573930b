// Package authcache keeps the per-user "is authenticated" flag shared by all
// handlers of a bot. Writes replace the whole value for a key, so callers
// never read-modify-write.
package authcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/servicebot/core/logger"
)

const component = "authcache"

// Namespaces separate the customer and staff flags.
const (
	NamespaceClient = "client"
	NamespaceStaff  = "staff"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Cache is the key-value contract used by the dialog flows.
type Cache interface {
	Get(ctx context.Context, userID int64) (bool, error)
	Set(ctx context.Context, userID int64, authenticated bool) error
	Delete(ctx context.Context, userID int64) error
}

// Config selects and tunes a backend.
type Config struct {
	Backend   string `yaml:"backend" envconfig:"AUTH_CACHE_BACKEND" validate:"omitempty,oneof=memory redis postgres"`
	RedisURL  string `yaml:"redis_url" envconfig:"AUTH_CACHE_REDIS_URL" validate:"required_if=Backend redis"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"AUTH_CACHE_KEY_PREFIX"`
}

// Open builds the configured backend for namespace. db is required only for
// the postgres backend. The returned closer releases backend resources.
func Open(ctx context.Context, cfg Config, namespace string, db *sqlx.DB) (Cache, io.Closer, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendMemory
	}

	var (
		cache  Cache
		closer io.Closer = nopCloser{}
	)
	switch backend {
	case BackendMemory:
		cache = NewMemory()
	case BackendRedis:
		r, err := NewRedis(ctx, cfg.RedisURL, prefix(cfg.KeyPrefix, namespace))
		if err != nil {
			return nil, nil, err
		}
		cache, closer = r, r
	case BackendPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("authcache: postgres backend needs a database")
		}
		cache = NewPostgres(db, namespace)
	default:
		return nil, nil, fmt.Errorf("authcache: unknown backend %q", cfg.Backend)
	}

	logger.Info(ctx, component, "open",
		slog.String("backend", backend),
		slog.String("namespace", namespace),
	)
	return cache, closer, nil
}

// IsAuthenticated reads the flag and treats backend errors as "not
// authenticated". The error is logged.
func IsAuthenticated(ctx context.Context, c Cache, userID int64) bool {
	if c == nil {
		return false
	}
	ok, err := c.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "get.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return ok
}

func prefix(base, namespace string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "servicebot:auth"
	}
	return strings.TrimSuffix(base, ":") + ":" + namespace + ":"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
