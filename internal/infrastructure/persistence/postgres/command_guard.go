package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/google/uuid"
)

// CommandGuard keeps in-flight command keys in the command_locks table, so
// every instance sharing the database sees them. An expired row is taken over
// by the next Acquire.
type CommandGuard struct {
	db     *DB
	logger *slog.Logger
}

var _ application.CommandGuard = (*CommandGuard)(nil)

func NewCommandGuard(db *DB, logger *slog.Logger) *CommandGuard {
	return &CommandGuard{db: db, logger: logger}
}

func (g *CommandGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	query := `
		INSERT INTO command_locks (key, token, locked_at, expires_at)
		VALUES ($1, $2, now(), now() + $3 * interval '1 millisecond')
		ON CONFLICT (key) DO UPDATE
		SET token = EXCLUDED.token, locked_at = EXCLUDED.locked_at, expires_at = EXCLUDED.expires_at
		WHERE command_locks.expires_at <= now()
	`

	token := uuid.NewString()
	tag, err := g.db.Pool.Exec(ctx, query, key, token, ttl.Milliseconds())
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("acquire command lock %s: %w", key, err))
	}
	if tag.RowsAffected() == 0 {
		return nil, application.NewCommandInFlightError(key)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_, err := g.db.Pool.Exec(ctx, `DELETE FROM command_locks WHERE key = $1 AND token = $2`, key, token)
		if err != nil {
			g.logger.Warn("failed to release command lock", "key", key, "error", err)
		}
	}
	return release, nil
}
