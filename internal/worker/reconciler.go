package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

const stuckReason = "processing timed out"

var errNoLongerStuck = errors.New("purchase left processing")

// Reconciler fails purchases that have sat in Processing longer than
// stuckAfter, e.g. because the process died mid-payment.
type Reconciler struct {
	repo       application.PurchaseRepository
	publisher  application.EventPublisher
	metrics    application.MetricsRecorder
	clock      domain.Clock
	interval   time.Duration
	batchSize  int
	stuckAfter time.Duration
	logger     *slog.Logger
}

func NewReconciler(
	repo application.PurchaseRepository,
	publisher application.EventPublisher,
	metrics application.MetricsRecorder,
	clock domain.Clock,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Reconciler {
	if publisher == nil {
		publisher = discardPublisher{}
	}
	return &Reconciler{
		repo:       repo,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		stuckAfter: cfg.StuckAfter,
		logger:     logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting background reconciler",
		"interval", r.interval,
		"batch_size", r.batchSize,
		"stuck_after", r.stuckAfter,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping background reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle and reports how many
// purchases it moved to Failed.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.stuckAfter)

	stuck, err := r.repo.FindStuckProcessing(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stuck purchases", "error", err)
		return 0
	}
	if len(stuck) == 0 {
		return 0
	}

	r.logger.Info("reconciling stuck purchases", "count", len(stuck))

	failed := 0
	for _, p := range stuck {
		if r.failStuck(ctx, p.ID(), cutoff) {
			failed++
		}
	}
	return failed
}

func (r *Reconciler) failStuck(ctx context.Context, id string, cutoff time.Time) bool {
	updated, err := r.repo.UpdateWithLock(ctx, id, func(p *domain.Purchase) error {
		// Re-checked under the lock: the payment may have finished since the scan.
		status := p.Status()
		if status.Status() != domain.StatusProcessing || !status.Timestamp().Before(cutoff) {
			return errNoLongerStuck
		}
		return p.Fail(stuckReason)
	})
	switch {
	case errors.Is(err, errNoLongerStuck):
		return false
	case err != nil:
		r.logger.Error("failed to reconcile purchase", "purchase_id", id, "error", err)
		return false
	}

	r.logger.Warn("failed stuck purchase", "purchase_id", id, "reason", stuckReason)
	r.metrics.PurchaseTransitioned(updated.Status().Status())
	if err := r.publisher.Publish(ctx, application.NewPurchaseEvent(updated)); err != nil {
		r.logger.Warn("failed to publish purchase event", "purchase_id", id, "error", err)
	}
	return true
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, application.PurchaseEvent) error { return nil }
