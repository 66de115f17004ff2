// Package store contains the Postgres implementation of the record-store
// boundaries declared in core. Only SQL and type mapping live here; the
// batching and replacement semantics are the core package's business.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// scanner is satisfied by both pgx.Row and pgx.Rows, so one scan helper
// serves QueryRow and Query calls alike.
type scanner interface {
	Scan(dest ...any) error
}

// withAdvisoryLock runs fn while holding a session-level Postgres advisory
// lock derived from key. The lock rides a dedicated pooled connection so
// it survives for exactly the duration of fn and is released on every
// exit path, including fn failure.
//
// This is the single-writer guard for collection replacement: two
// replacements for the same record type serialize on the same key.
func withAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, key string, fn func(ctx context.Context) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection for lock %q: %w", key, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("store: acquire advisory lock %q: %w", key, err)
	}
	defer func() {
		// Unlock on the same connection; if it fails the connection is
		// destroyed on release and the session lock dies with it.
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key)
	}()

	return fn(ctx)
}
