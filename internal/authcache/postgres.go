package authcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	selectFlag = `SELECT authenticated FROM bot_auth_cache WHERE namespace = $1 AND user_id = $2`
	upsertFlag = `INSERT INTO bot_auth_cache (namespace, user_id, authenticated, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, user_id)
DO UPDATE SET authenticated = EXCLUDED.authenticated, updated_at = EXCLUDED.updated_at`
	deleteFlag = `DELETE FROM bot_auth_cache WHERE namespace = $1 AND user_id = $2`
)

// Postgres keeps the flag in the bot_auth_cache table. Only the boolean is
// stored.
type Postgres struct {
	db        *sqlx.DB
	namespace string
}

// NewPostgres wraps db.
func NewPostgres(db *sqlx.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, userID int64) (bool, error) {
	var flag bool
	err := p.db.GetContext(ctx, &flag, selectFlag, p.namespace, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authcache: select: %w", err)
	}
	return flag, nil
}

// Set implements Cache.
func (p *Postgres) Set(ctx context.Context, userID int64, authenticated bool) error {
	if _, err := p.db.ExecContext(ctx, upsertFlag, p.namespace, userID, authenticated); err != nil {
		return fmt.Errorf("authcache: upsert: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (p *Postgres) Delete(ctx context.Context, userID int64) error {
	if _, err := p.db.ExecContext(ctx, deleteFlag, p.namespace, userID); err != nil {
		return fmt.Errorf("authcache: delete: %w", err)
	}
	return nil
}
