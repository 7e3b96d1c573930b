package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/servicebot/core/logger"
)

const (
	component    = "db"
	retryEvery   = 2 * time.Second
	readyTimeout = 30 * time.Second
)

// Connect opens a pooled postgres connection. A database that is still
// starting up is retried until it answers or the wait runs out.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	start := time.Now()
	attempts := 0
	for {
		attempts++
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err == nil {
			if cfg.MaxConnections > 0 {
				db.SetMaxOpenConns(cfg.MaxConnections)
				db.SetMaxIdleConns(cfg.MaxConnections)
			}
			logger.Info(ctx, component, "db.connect",
				slog.String("outcome", "ok"),
				slog.String("host", cfg.Host),
				slog.String("db", cfg.Name),
				slog.Int("attempts", attempts),
				slog.Int("pool_open", cfg.MaxConnections),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
			return db, nil
		}

		logger.Warn(ctx, component, "db.connect",
			slog.String("outcome", "fail"),
			slog.String("host", cfg.Host),
			slog.Int("attempts", attempts),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect %s/%s: %w", cfg.Host, cfg.Name, err)
		case <-time.After(retryEvery):
		}
	}
}
