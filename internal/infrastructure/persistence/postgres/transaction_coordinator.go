package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionCoordinator runs a unit of work inside one transaction.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(db *DB) *TransactionCoordinator {
	return &TransactionCoordinator{
		pool: db.Pool,
	}
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
func (tc *TransactionCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context, q Executor) error) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
