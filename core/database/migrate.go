package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/servicebot/core/logger"
)

const migrateComponent = "db.migrate"

// Migrate applies every pending up migration found in src. A non-empty
// cfg.MigrationsDir replaces src with that directory on disk.
func Migrate(ctx context.Context, cfg Config, src fs.FS) error {
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		src = os.DirFS(dir)
	}
	if src == nil {
		return errors.New("migrate: no migration source")
	}
	files := upFiles(src)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("migrate: source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URL())
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, dirty, _ := m.Version()
	if dirty {
		return fmt.Errorf("migrate: schema version %d is dirty", from)
	}

	start := time.Now()
	err = m.Up()
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, migrateComponent, "migrate.up",
			slog.String("outcome", "fail"),
			slog.Uint64("from_ver", uint64(from)),
			slog.Duration("duration", took),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return fmt.Errorf("migrate: up: %w", err)
	}

	to, _, _ := m.Version()
	applied := between(files, uint64(from), uint64(to))
	attrs := []slog.Attr{
		slog.String("outcome", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	}
	if preview, _ := logger.SummarizeStrings(applied, 6); preview != "" {
		attrs = append(attrs, slog.String("applied", preview))
	}
	logger.Info(ctx, migrateComponent, "migrate.up", attrs...)
	return nil
}

// upFiles lists the up migrations of src in version order.
func upFiles(src fs.FS) []string {
	names, _ := fs.Glob(src, "*.up.sql")
	sort.Slice(names, func(i, j int) bool { return version(names[i]) < version(names[j]) })
	return names
}

// version reads the numeric prefix of a migration file name.
func version(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// between returns the files with from < version <= to.
func between(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := version(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
