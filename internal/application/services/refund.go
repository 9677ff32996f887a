package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/pricing"
)

type RefundService struct {
	purchaseRepo application.PurchaseRepository
	processor    application.PaymentProcessor
	calculator   *pricing.Calculator
	opts         Options
}

func NewRefundService(
	purchaseRepo application.PurchaseRepository,
	processor application.PaymentProcessor,
	calculator *pricing.Calculator,
	opts Options,
) *RefundService {
	return &RefundService{
		purchaseRepo: purchaseRepo,
		processor:    processor,
		calculator:   calculator,
		opts:         opts.withDefaults(),
	}
}

// Refund validates the refund, asks the processor for it and only then moves
// the purchase to Refunded. A processor failure returns ErrProcessingFailed
// and leaves the purchase Completed so the refund can be retried.
func (s *RefundService) Refund(ctx context.Context, cmd RefundPurchaseCommand) (*domain.Purchase, error) {
	release, err := s.opts.Guard.Acquire(ctx, "refund:"+cmd.PurchaseID, s.opts.guardTTL())
	if err != nil {
		return nil, err
	}
	defer release()

	purchase, err := s.purchaseRepo.FindByID(ctx, cmd.PurchaseID)
	if err != nil {
		return nil, err
	}

	amount, err := s.refundAmount(purchase, cmd)
	if err != nil {
		return nil, err
	}
	if err := purchase.CheckRefund(amount); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProcessorTimeout)
	started := time.Now()
	result, err := s.processor.ProcessRefund(callCtx, purchase, amount, cmd.Reason)
	cancel()
	success := err == nil && result != nil && result.Success
	s.opts.Metrics.ProcessorCall("refund", outcome(err, success), time.Since(started))

	if !success {
		reason := "refund declined"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "refund processor timed out"
			err = application.NewTimeoutError(err)
		case err != nil:
			reason = err.Error()
		case result != nil && result.FailureReason != "":
			reason = result.FailureReason
		}
		s.opts.Logger.Warn("refund failed, purchase stays completed",
			"purchase_id", purchase.ID(),
			"amount", amount.String(),
			"reason", reason,
		)
		return purchase, application.NewProcessingFailedError(reason, err)
	}

	refunded, err := s.opts.finalize(context.WithoutCancel(ctx), s.purchaseRepo, purchase.ID(), func(p *domain.Purchase) error {
		return p.ProcessRefund(amount, cmd.Reason, result.ExternalRefundID)
	})
	if err != nil {
		s.opts.Logger.Error("processor refunded but purchase update failed",
			"purchase_id", purchase.ID(),
			"external_refund_id", result.ExternalRefundID,
			"error", err,
		)
		return purchase, application.NewUnrecordedResultError(purchase.ID(), result.ExternalRefundID, err)
	}

	s.opts.Logger.Info("purchase refunded",
		"purchase_id", refunded.ID(),
		"amount", amount.String(),
		"external_refund_id", result.ExternalRefundID,
	)
	s.opts.announce(context.WithoutCancel(ctx), refunded)
	return refunded, nil
}

func (s *RefundService) refundAmount(p *domain.Purchase, cmd RefundPurchaseCommand) (domain.Money, error) {
	if strings.TrimSpace(cmd.Amount) != "" {
		currency := cmd.Currency
		if currency == "" {
			currency = p.Amount().Currency()
		}
		m, err := domain.NewMoneyFromString(cmd.Amount, currency)
		if err != nil {
			return domain.Money{}, application.NewInvalidInputError(err)
		}
		return m, nil
	}
	if !cmd.Prorate {
		return p.Amount(), nil
	}
	period := p.SubscriptionPeriod()
	if period == nil {
		return domain.Money{}, application.NewInvalidInputError(domain.NewMissingRequiredFieldError("subscription period"))
	}

	// Proration is only meaningful inside the window: nothing of the period
	// has been used before it starts and nothing is left after it ends.
	now := s.opts.Clock.Now()
	switch {
	case period.IsUpcoming(now):
		return p.Amount(), nil
	case period.IsExpired(now):
		return domain.Money{}, nothingLeftToRefund(period.EndDate())
	}
	amount, err := s.calculator.CalculateProration(p.Amount(), *period, now)
	if err != nil {
		return domain.Money{}, err
	}
	if amount.IsZero() {
		return domain.Money{}, nothingLeftToRefund(period.EndDate())
	}
	return amount, nil
}

func nothingLeftToRefund(end time.Time) error {
	return application.NewInvalidInputError(
		fmt.Errorf("subscription period ended at %s, nothing left to refund: %w",
			end.Format(time.RFC3339), domain.NewInvalidAmountError("0.00")),
	)
}
