package processor_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/processor"
	"github.com/DanielPopoola/ficmart-billing/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRetryProcessor(inner application.PaymentProcessor) *processor.RetryProcessor {
	return processor.NewRetryProcessor(inner, config.RetryConfig{
		BaseDelay:  1,
		MaxRetries: 3,
	}, slog.New(slog.DiscardHandler))
}

func TestRetryProcessor_ProcessPayment_Success(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	expected := &application.PaymentResult{Success: true, ExternalTransactionID: "txn_1"}
	inner.On("ProcessPayment", mock.Anything, purchase).Return(expected, nil).Once()

	result, err := newRetryProcessor(inner).ProcessPayment(context.Background(), purchase)

	require.NoError(t, err)
	assert.Equal(t, expected, result)
	inner.AssertExpectations(t)
}

func TestRetryProcessor_ProcessPayment_RetriesUnavailableGateway(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	expected := &application.PaymentResult{Success: true, ExternalTransactionID: "txn_2"}
	inner.On("ProcessPayment", mock.Anything, purchase).Return(nil, processor.ErrGatewayUnavailable).Twice()
	inner.On("ProcessPayment", mock.Anything, purchase).Return(expected, nil).Once()

	result, err := newRetryProcessor(inner).ProcessPayment(context.Background(), purchase)

	require.NoError(t, err)
	assert.Equal(t, "txn_2", result.ExternalTransactionID)
	inner.AssertNumberOfCalls(t, "ProcessPayment", 3)
}

func TestRetryProcessor_ProcessPayment_GivesUpAfterMaxRetries(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	inner.On("ProcessPayment", mock.Anything, purchase).Return(nil, processor.ErrGatewayUnavailable)

	_, err := newRetryProcessor(inner).ProcessPayment(context.Background(), purchase)

	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	inner.AssertNumberOfCalls(t, "ProcessPayment", 3)
}

func TestRetryProcessor_ProcessPayment_NoRetryOnPermanentError(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	inner.On("ProcessPayment", mock.Anything, purchase).Return(nil, processor.ErrInvalidRequest).Once()

	_, err := newRetryProcessor(inner).ProcessPayment(context.Background(), purchase)

	assert.ErrorIs(t, err, processor.ErrInvalidRequest)
	inner.AssertNumberOfCalls(t, "ProcessPayment", 1)
}

func TestRetryProcessor_ProcessRefund_NoRetryOnUnknownError(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	amount := testhelpers.Money(t, "9.99", "USD")
	boom := errors.New("connection reset")
	inner.On("ProcessRefund", mock.Anything, purchase, amount, "r").Return(nil, boom).Once()

	_, err := newRetryProcessor(inner).ProcessRefund(context.Background(), purchase, amount, "r")

	assert.ErrorIs(t, err, boom)
	inner.AssertNumberOfCalls(t, "ProcessRefund", 1)
}

func TestRetryProcessor_StopsWhenContextCancelled(t *testing.T) {
	inner := new(testhelpers.MockProcessor)
	purchase := testhelpers.NewPendingPurchase(t, 1, "premium", "9.99")
	ctx, cancel := context.WithCancel(context.Background())
	inner.On("ProcessPayment", mock.Anything, purchase).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, processor.ErrGatewayUnavailable).Once()

	_, err := newRetryProcessor(inner).ProcessPayment(ctx, purchase)

	assert.ErrorIs(t, err, context.Canceled)
	inner.AssertNumberOfCalls(t, "ProcessPayment", 1)
}
