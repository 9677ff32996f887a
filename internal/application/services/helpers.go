package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

const (
	defaultProcessorTimeout = 30 * time.Second
	defaultPageSize         = 20
	maxPageSize             = 100

	finalizeAttempts = 3
	finalizeBackoff  = 50 * time.Millisecond
)

// Options holds the collaborators every command service shares. Nil fields
// get no-op defaults.
type Options struct {
	Publisher        application.EventPublisher
	Guard            application.CommandGuard
	Metrics          application.MetricsRecorder
	Clock            domain.Clock
	Logger           *slog.Logger
	ProcessorTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.Guard == nil {
		o.Guard = NewLocalGuard()
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Clock == nil {
		o.Clock = domain.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ProcessorTimeout <= 0 {
		o.ProcessorTimeout = defaultProcessorTimeout
	}
	return o
}

// guardTTL outlives a processor call so a crashed holder eventually frees the key.
func (o Options) guardTTL() time.Duration {
	return 2 * o.ProcessorTimeout
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, application.PurchaseEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) PurchaseTransitioned(domain.Status)          {}
func (nopMetrics) ProcessorCall(string, string, time.Duration) {}

// announce records and publishes the purchase's current status. Publish
// failures are logged only.
func (o Options) announce(ctx context.Context, p *domain.Purchase) {
	o.Metrics.PurchaseTransitioned(p.Status().Status())
	if err := o.Publisher.Publish(ctx, application.NewPurchaseEvent(p)); err != nil {
		o.Logger.Warn("failed to publish purchase event",
			"purchase_id", p.ID(),
			"status", p.Status().String(),
			"error", err,
		)
	}
}

// finalize records what the processor already did. The write is retried a
// few times because giving up leaves a charge or refund the purchase does not
// show. Errors retrying cannot fix, like an illegal transition, end it early.
func (o Options) finalize(ctx context.Context, repo application.PurchaseRepository, id string, fn func(p *domain.Purchase) error) (*domain.Purchase, error) {
	var err error
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		var p *domain.Purchase
		if p, err = repo.UpdateWithLock(ctx, id, fn); err == nil {
			return p, nil
		}
		if !application.IsRetryable(err) || attempt == finalizeAttempts {
			break
		}
		o.Logger.Warn("retrying purchase update",
			"purchase_id", id,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-time.After(time.Duration(attempt) * finalizeBackoff):
		case <-ctx.Done():
			return nil, err
		}
	}
	return nil, err
}

func outcome(err error, success bool) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case err != nil:
		return "error"
	case !success:
		return "declined"
	default:
		return "success"
	}
}
