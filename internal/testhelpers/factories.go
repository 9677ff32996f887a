package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProcessor is a testify mock of application.PaymentProcessor.
type MockProcessor struct {
	mock.Mock
}

var _ application.PaymentProcessor = (*MockProcessor)(nil)

func (m *MockProcessor) ProcessPayment(ctx context.Context, purchase *domain.Purchase) (*application.PaymentResult, error) {
	args := m.Called(ctx, purchase)
	result, _ := args.Get(0).(*application.PaymentResult)
	return result, args.Error(1)
}

func (m *MockProcessor) ProcessRefund(ctx context.Context, purchase *domain.Purchase, amount domain.Money, reason string) (*application.RefundResult, error) {
	args := m.Called(ctx, purchase, amount, reason)
	result, _ := args.Get(0).(*application.RefundResult)
	return result, args.Error(1)
}

func (m *MockProcessor) ValidatePaymentMethod(ctx context.Context, method domain.PaymentMethod) bool {
	args := m.Called(ctx, method)
	return args.Bool(0)
}

// Money parses amount in currency or fails the test.
func Money(t *testing.T, amount, currency string) domain.Money {
	t.Helper()
	m, err := domain.NewMoneyFromString(amount, currency)
	require.NoError(t, err)
	return m
}

// NewPendingPurchase builds a Pending credit-card purchase.
func NewPendingPurchase(t *testing.T, userID int64, productID, amount string) *domain.Purchase {
	t.Helper()
	method, err := domain.NewPaymentMethod(domain.PaymentTypeCreditCard, "stripe", map[string]string{"last4": "4242"})
	require.NoError(t, err)

	p, err := domain.NewPurchase(uuid.New().String(), userID, Money(t, amount, "USD"), method, productID, productID, nil, nil)
	require.NoError(t, err)
	return p
}

// NewPurchaseInStatus reconstitutes a purchase that entered status at the given time.
func NewPurchaseInStatus(t *testing.T, status domain.Status, at time.Time) *domain.Purchase {
	t.Helper()
	p := NewPendingPurchase(t, 1, "premium", "9.99")
	return domain.Reconstitute(
		p.ID(), p.UserID(),
		p.Amount(), p.PaymentMethod(),
		p.ProductID(), p.ProductName(),
		nil,
		domain.ReconstituteStatus(status, "", at),
		nil, nil,
		p.CreatedAt(),
		0,
	)
}

// NewCompletedSubscription is a Completed monthly purchase whose period started at start.
func NewCompletedSubscription(t *testing.T, amount string, start time.Time) *domain.Purchase {
	t.Helper()
	period, err := domain.Daily(start, 30)
	require.NoError(t, err)
	p := NewPendingPurchase(t, 1, "premium", amount)
	return domain.Reconstitute(
		p.ID(), p.UserID(),
		p.Amount(), p.PaymentMethod().WithExternalTransactionID("txn_"+uuid.NewString()),
		p.ProductID(), p.ProductName(),
		&period,
		domain.ReconstituteStatus(domain.StatusCompleted, "", start),
		nil, nil,
		p.CreatedAt(),
		2,
	)
}
