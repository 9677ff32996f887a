package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

type ProcessPaymentService struct {
	purchaseRepo application.PurchaseRepository
	processor    application.PaymentProcessor
	opts         Options
}

func NewProcessPaymentService(
	purchaseRepo application.PurchaseRepository,
	processor application.PaymentProcessor,
	opts Options,
) *ProcessPaymentService {
	return &ProcessPaymentService{
		purchaseRepo: purchaseRepo,
		processor:    processor,
		opts:         opts.withDefaults(),
	}
}

// Process moves a Pending purchase through Processing to Completed or Failed.
// The Processing transition is committed before the processor is called, so a
// concurrent second call fails with ErrIllegalTransition. Once the processor
// call returns or times out the purchase is always finalized, even if ctx was
// cancelled meanwhile. A failed payment returns the Failed purchase together
// with ErrProcessingFailed. A successful payment that cannot be recorded
// returns an UnrecordedResultError carrying the external transaction id.
func (s *ProcessPaymentService) Process(ctx context.Context, cmd ProcessPaymentCommand) (*domain.Purchase, error) {
	release, err := s.opts.Guard.Acquire(ctx, "process:"+cmd.PurchaseID, s.opts.guardTTL())
	if err != nil {
		return nil, err
	}
	defer release()

	purchase, err := s.purchaseRepo.UpdateWithLock(ctx, cmd.PurchaseID, func(p *domain.Purchase) error {
		return p.StartProcessing()
	})
	if err != nil {
		return nil, err
	}
	s.opts.announce(ctx, purchase)

	finalCtx := context.WithoutCancel(ctx)

	if !s.processor.ValidatePaymentMethod(ctx, purchase.PaymentMethod()) {
		reason := fmt.Sprintf("payment method %s via %s was rejected", purchase.PaymentMethod().Type(), purchase.PaymentMethod().Provider())
		return s.fail(finalCtx, purchase, reason, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProcessorTimeout)
	started := time.Now()
	result, err := s.processor.ProcessPayment(callCtx, purchase)
	cancel()
	success := err == nil && result != nil && result.Success
	s.opts.Metrics.ProcessorCall("payment", outcome(err, success), time.Since(started))

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return s.fail(finalCtx, purchase, "payment processor timed out", application.NewTimeoutError(err))
	case errors.Is(err, context.Canceled):
		return s.fail(finalCtx, purchase, "payment cancelled by caller", err)
	case err != nil:
		return s.fail(finalCtx, purchase, err.Error(), err)
	case result == nil:
		return s.fail(finalCtx, purchase, "payment processor returned no result", nil)
	case !result.Success:
		reason := result.FailureReason
		if reason == "" {
			reason = "payment declined"
		}
		return s.fail(finalCtx, purchase, reason, nil)
	}

	completed, err := s.opts.finalize(finalCtx, s.purchaseRepo, purchase.ID(), func(p *domain.Purchase) error {
		if err := p.Complete(result.ExternalTransactionID); err != nil {
			return err
		}
		for k, v := range result.Metadata {
			if err := p.AddMetadata(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.opts.Logger.Error("payment succeeded but purchase could not be completed",
			"purchase_id", purchase.ID(),
			"external_transaction_id", result.ExternalTransactionID,
			"error", err,
		)
		return purchase, application.NewUnrecordedResultError(purchase.ID(), result.ExternalTransactionID, err)
	}

	s.opts.Logger.Info("payment completed",
		"purchase_id", completed.ID(),
		"external_transaction_id", result.ExternalTransactionID,
	)
	s.opts.announce(finalCtx, completed)
	return completed, nil
}

func (s *ProcessPaymentService) fail(ctx context.Context, purchase *domain.Purchase, reason string, cause error) (*domain.Purchase, error) {
	failed, err := s.opts.finalize(ctx, s.purchaseRepo, purchase.ID(), func(p *domain.Purchase) error {
		return p.Fail(reason)
	})
	if err != nil {
		s.opts.Logger.Error("failed to mark purchase as failed",
			"purchase_id", purchase.ID(),
			"reason", reason,
			"error", err,
		)
		return purchase, err
	}

	s.opts.Logger.Warn("payment failed",
		"purchase_id", failed.ID(),
		"reason", reason,
		"error_code", application.ToErrorCode(cause),
	)
	s.opts.announce(ctx, failed)
	return failed, application.NewProcessingFailedError(reason, cause)
}
