// Package bootstrap brings up the infrastructure a bot needs before it
// starts serving: logging first, then the optional database.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/servicebot/core/config"
	coredatabase "github.com/m3rciful/servicebot/core/database"
	"github.com/m3rciful/servicebot/core/logger"
)

// Options describe one bootstrap. A nil Database skips connect and
// migrate. The function fields are seams for tests.
type Options struct {
	Config     *coreconfig.Config
	Database   *coredatabase.Config
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result is what Run opened.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when a database is configured, connects
// and migrates it. Migrations run before the pool is handed out.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.Init
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}
	if opts.Migrate == nil {
		opts.Migrate = coredatabase.Migrate
	}

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	if opts.Database == nil {
		return &Result{}, nil
	}

	db, err := opts.Connect(ctx, *opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := opts.Migrate(ctx, *opts.Database, opts.Migrations); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations: %w", err), db.Close())
	}
	return &Result{DB: db}, nil
}
