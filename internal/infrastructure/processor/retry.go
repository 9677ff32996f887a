package processor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

// RetryProcessor retries gateway calls that failed with a retryable
// ProcessorError. Declines and other errors are returned on the first attempt.
type RetryProcessor struct {
	inner      application.PaymentProcessor
	baseDelay  time.Duration
	maxRetries int
	logger     *slog.Logger
}

var _ application.PaymentProcessor = (*RetryProcessor)(nil)

func NewRetryProcessor(inner application.PaymentProcessor, cfg config.RetryConfig, logger *slog.Logger) *RetryProcessor {
	return &RetryProcessor{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Millisecond,
		maxRetries: max(int(cfg.MaxRetries), 1),
		logger:     logger,
	}
}

func (r *RetryProcessor) ProcessPayment(ctx context.Context, purchase *domain.Purchase) (*application.PaymentResult, error) {
	return retry(ctx, r, "payment", func(ctx context.Context) (*application.PaymentResult, error) {
		return r.inner.ProcessPayment(ctx, purchase)
	})
}

func (r *RetryProcessor) ProcessRefund(ctx context.Context, purchase *domain.Purchase, amount domain.Money, reason string) (*application.RefundResult, error) {
	return retry(ctx, r, "refund", func(ctx context.Context) (*application.RefundResult, error) {
		return r.inner.ProcessRefund(ctx, purchase, amount, reason)
	})
}

func (r *RetryProcessor) ValidatePaymentMethod(ctx context.Context, method domain.PaymentMethod) bool {
	return r.inner.ValidatePaymentMethod(ctx, method)
}

func retry[T any](ctx context.Context, r *RetryProcessor, operation string, call func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := range r.maxRetries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			delay := r.backoff(attempt)
			r.logger.Warn("processor call failed, retrying",
				"operation", operation,
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	procErr, ok := IsProcessorError(err)
	return ok && procErr.Retryable
}

// backoff doubles the base delay per attempt and adds up to one base delay of jitter.
func (r *RetryProcessor) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return base
	}
	return base + rand.N(r.baseDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
