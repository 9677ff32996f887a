package services

import (
	"context"
	"maps"
	"strings"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePurchaseService struct {
	purchaseRepo application.PurchaseRepository
	calculator   *pricing.Calculator
	opts         Options
}

func NewCreatePurchaseService(
	purchaseRepo application.PurchaseRepository,
	calculator *pricing.Calculator,
	opts Options,
) *CreatePurchaseService {
	return &CreatePurchaseService{
		purchaseRepo: purchaseRepo,
		calculator:   calculator,
		opts:         opts.withDefaults(),
	}
}

// Create builds a Pending purchase. Without an explicit amount the period is
// quoted from the pricing table; a trial request gets a zero amount over the
// product's trial window.
func (s *CreatePurchaseService) Create(ctx context.Context, cmd CreatePurchaseCommand) (*domain.Purchase, error) {
	method, err := domain.NewPaymentMethod(cmd.PaymentType, cmd.Provider, cmd.PaymentMetadata)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	metadata := cmd.Metadata
	var (
		period *domain.SubscriptionPeriod
		amount domain.Money
	)

	switch {
	case cmd.Trial:
		eligible, err := s.calculator.IsEligibleForTrial(ctx, cmd.UserID, cmd.ProductID)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, application.NewNotEligibleForTrialError(cmd.UserID, cmd.ProductID)
		}
		trial, err := s.calculator.TrialPeriod(cmd.ProductID, s.opts.Clock.Now())
		if err != nil {
			return nil, err
		}
		period = &trial
		amount, err = domain.NewMoney(decimal.Zero, cmd.Currency)
		if err != nil {
			return nil, application.NewInvalidInputError(err)
		}
		metadata = withEntry(metadata, "trial", "true")

	default:
		if cmd.Period != nil {
			p, err := s.buildPeriod(*cmd.Period)
			if err != nil {
				return nil, application.NewInvalidInputError(err)
			}
			period = &p
		}
		amount, err = s.resolveAmount(cmd, period)
		if err != nil {
			return nil, err
		}
	}

	purchase, err := domain.NewPurchase(
		uuid.New().String(),
		cmd.UserID,
		amount,
		method,
		cmd.ProductID,
		cmd.ProductName,
		period,
		metadata,
	)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, application.NewInternalError(err)
	}

	s.opts.Logger.Info("purchase created",
		"purchase_id", purchase.ID(),
		"user_id", purchase.UserID(),
		"product_id", purchase.ProductID(),
		"amount", purchase.Amount().String(),
	)
	s.opts.announce(ctx, purchase)
	return purchase, nil
}

func (s *CreatePurchaseService) resolveAmount(cmd CreatePurchaseCommand, period *domain.SubscriptionPeriod) (domain.Money, error) {
	if strings.TrimSpace(cmd.Amount) != "" {
		m, err := domain.NewMoneyFromString(cmd.Amount, cmd.Currency)
		if err != nil {
			return domain.Money{}, application.NewInvalidInputError(err)
		}
		return m, nil
	}
	if period == nil {
		return domain.Money{}, application.NewInvalidInputError(domain.NewMissingRequiredFieldError("amount"))
	}
	quoted, err := s.calculator.CalculateSubscriptionPrice(cmd.ProductID, *period, cmd.Currency)
	if err != nil {
		return domain.Money{}, err
	}
	return quoted, nil
}

func (s *CreatePurchaseService) buildPeriod(spec PeriodSpec) (domain.SubscriptionPeriod, error) {
	start := spec.Start
	if start.IsZero() {
		start = s.opts.Clock.Now()
	}
	if spec.Type == domain.PeriodCustom && spec.End != nil {
		return domain.NewSubscriptionPeriodFromRange(start, *spec.End)
	}
	return domain.NewSubscriptionPeriod(start, spec.Type, spec.Units)
}

func withEntry(m map[string]string, key, value string) map[string]string {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[string]string, 1)
	}
	out[key] = value
	return out
}
