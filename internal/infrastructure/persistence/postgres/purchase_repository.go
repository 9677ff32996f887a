package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/jackc/pgx/v5"
)

const purchaseColumns = `
	id, user_id, amount::text, currency,
	payment_type, payment_provider, external_transaction_id, payment_metadata,
	product_id, product_name,
	period_start, period_end, period_type, period_units,
	status, status_reason, status_at,
	refund_amount::text, refund_currency, refund_reason, external_refund_id, refunded_at,
	metadata, created_at, version`

type PurchaseRepository struct {
	db *DB
	tc *TransactionCoordinator
}

var _ application.PurchaseRepository = (*PurchaseRepository)(nil)

func NewPurchaseRepository(db *DB) *PurchaseRepository {
	return &PurchaseRepository{
		db: db,
		tc: NewTransactionCoordinator(db),
	}
}

func (r *PurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (
			id, user_id, amount, currency,
			payment_type, payment_provider, external_transaction_id, payment_metadata,
			product_id, product_name,
			period_start, period_end, period_type, period_units,
			status, status_reason, status_at,
			metadata, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	p := toDBModel(purchase)
	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.UserID, p.Amount, p.Currency,
		p.PaymentType, p.PaymentProvider, p.ExternalTransactionID, p.PaymentMetadata,
		p.ProductID, p.ProductName,
		p.PeriodStart, p.PeriodEnd, p.PeriodType, p.PeriodUnits,
		p.Status, p.StatusReason, p.StatusAt,
		p.Metadata, p.CreatedAt, p.Version,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("purchase %s already exists: %w", p.ID, err)
		}
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	return scanPurchase(r.db.Pool.QueryRow(ctx, query, id), id)
}

// FindByIDForUpdate locks the row until q's transaction ends.
func (r *PurchaseRepository) FindByIDForUpdate(ctx context.Context, q Executor, id string) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1 FOR UPDATE`

	return scanPurchase(q.QueryRow(ctx, query, id), id)
}

func (r *PurchaseRepository) FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query purchases by user_id: %w", err)
	}

	results, err := collectPurchases(rows)
	if err != nil {
		return nil, fmt.Errorf("scan purchases by user_id: %w", err)
	}
	return results, nil
}

// FindStuckProcessing returns PROCESSING purchases whose status is older than cutoff, oldest first.
func (r *PurchaseRepository) FindStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE status = 'PROCESSING'
		  AND status_at < $1
		ORDER BY status_at ASC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stuck purchases: %w", err)
	}

	results, err := collectPurchases(rows)
	if err != nil {
		return nil, fmt.Errorf("scan stuck purchases: %w", err)
	}
	return results, nil
}

// HasPurchasedProduct ignores failed and cancelled purchases.
func (r *PurchaseRepository) HasPurchasedProduct(ctx context.Context, userID int64, productID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE user_id = $1
			  AND lower(product_id) = lower($2)
			  AND status NOT IN ('FAILED', 'CANCELLED')
		)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("query purchase history: %w", err)
	}
	return exists, nil
}

func (r *PurchaseRepository) StatsByUser(ctx context.Context, userID int64) (*application.PurchaseStats, error) {
	query := `
		SELECT status, currency, COUNT(*), SUM(amount)::text
		FROM purchases
		WHERE user_id = $1
		GROUP BY status, currency`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query purchase stats: %w", err)
	}
	defer rows.Close()

	stats := &application.PurchaseStats{
		UserID:         userID,
		CountByStatus:  make(map[domain.Status]int),
		CompletedTotal: make(map[string]domain.Money),
	}
	for rows.Next() {
		var (
			status, currency, sum string
			count                 int
		)
		if err := rows.Scan(&status, &currency, &count, &sum); err != nil {
			return nil, fmt.Errorf("scan purchase stats: %w", err)
		}
		stats.CountByStatus[domain.Status(status)] += count
		if domain.Status(status) != domain.StatusCompleted {
			continue
		}
		total, err := domain.NewMoneyFromString(sum, currency)
		if err != nil {
			return nil, fmt.Errorf("purchase stats total: %w", err)
		}
		stats.CompletedTotal[total.Currency()] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase stats: %w", err)
	}
	return stats, nil
}

// UpdateWithLock serializes writers on the row lock and guards the write with
// the version read under that lock.
func (r *PurchaseRepository) UpdateWithLock(ctx context.Context, id string, fn func(p *domain.Purchase) error) (*domain.Purchase, error) {
	var updated *domain.Purchase

	err := r.tc.WithTransaction(ctx, func(ctx context.Context, q Executor) error {
		purchase, err := r.FindByIDForUpdate(ctx, q, id)
		if err != nil {
			return err
		}

		if err := fn(purchase); err != nil {
			return err
		}

		if err := r.update(ctx, q, purchase); err != nil {
			return err
		}

		purchase.BumpVersion()
		updated = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *PurchaseRepository) update(ctx context.Context, q Executor, purchase *domain.Purchase) error {
	query := `
		UPDATE purchases
		SET external_transaction_id = $1, payment_metadata = $2,
			status = $3, status_reason = $4, status_at = $5,
			refund_amount = $6, refund_currency = $7, refund_reason = $8,
			external_refund_id = $9, refunded_at = $10,
			metadata = $11,
			version = version + 1
		WHERE id = $12 AND version = $13
	`

	p := toDBModel(purchase)
	tag, err := q.Exec(ctx, query,
		p.ExternalTransactionID, p.PaymentMetadata,
		p.Status, p.StatusReason, p.StatusAt,
		p.RefundAmount, p.RefundCurrency, p.RefundReason,
		p.ExternalRefundID, p.RefundedAt,
		p.Metadata,
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return application.ErrConcurrentModification
	}

	return nil
}

func scanInto(row pgx.Row, m *PurchaseModel) error {
	return row.Scan(
		&m.ID, &m.UserID, &m.Amount, &m.Currency,
		&m.PaymentType, &m.PaymentProvider, &m.ExternalTransactionID, &m.PaymentMetadata,
		&m.ProductID, &m.ProductName,
		&m.PeriodStart, &m.PeriodEnd, &m.PeriodType, &m.PeriodUnits,
		&m.Status, &m.StatusReason, &m.StatusAt,
		&m.RefundAmount, &m.RefundCurrency, &m.RefundReason, &m.ExternalRefundID, &m.RefundedAt,
		&m.Metadata, &m.CreatedAt, &m.Version,
	)
}

// scanPurchase maps a missing row to a PurchaseNotFound service error.
func scanPurchase(row pgx.Row, id string) (*domain.Purchase, error) {
	var m PurchaseModel
	if err := scanInto(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.NewPurchaseNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan purchase: %w", err)
	}
	return toDomainModel(m)
}

func collectPurchases(rows pgx.Rows) ([]*domain.Purchase, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Purchase, error) {
		var m PurchaseModel
		if err := scanInto(row, &m); err != nil {
			return nil, err
		}
		return toDomainModel(m)
	})
}
