package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

// PurchaseRepository is the port for persistence.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *domain.Purchase) error
	FindByID(ctx context.Context, id string) (*domain.Purchase, error)
	FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Purchase, error)
	// FindStuckProcessing returns purchases that entered Processing before cutoff.
	FindStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Purchase, error)
	HasPurchasedProduct(ctx context.Context, userID int64, productID string) (bool, error)
	StatsByUser(ctx context.Context, userID int64) (*PurchaseStats, error)
	// UpdateWithLock loads the purchase under the per-purchase lock, applies fn
	// and saves the result atomically. Nothing is written when fn fails.
	UpdateWithLock(ctx context.Context, id string, fn func(p *domain.Purchase) error) (*domain.Purchase, error)
}

// PaymentProcessor is the port for the external payment gateway.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, purchase *domain.Purchase) (*PaymentResult, error)
	ProcessRefund(ctx context.Context, purchase *domain.Purchase, amount domain.Money, reason string) (*RefundResult, error)
	ValidatePaymentMethod(ctx context.Context, method domain.PaymentMethod) bool
}

type PaymentResult struct {
	Success               bool
	ExternalTransactionID string
	FailureReason         string
	Metadata              map[string]string
}

type RefundResult struct {
	Success          bool
	ExternalRefundID string
	FailureReason    string
}

// EventPublisher announces purchase lifecycle changes. Implementations must
// not block a command on delivery failures.
type EventPublisher interface {
	Publish(ctx context.Context, event PurchaseEvent) error
}

// CommandGuard rejects a second in-flight command for the same key.
type CommandGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// MetricsRecorder receives purchase and processor observations.
type MetricsRecorder interface {
	PurchaseTransitioned(status domain.Status)
	ProcessorCall(operation, outcome string, elapsed time.Duration)
}

type PurchaseStats struct {
	UserID         int64
	CountByStatus  map[domain.Status]int
	CompletedTotal map[string]domain.Money
}
