package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

type CancelPurchaseService struct {
	purchaseRepo application.PurchaseRepository
	opts         Options
}

func NewCancelPurchaseService(purchaseRepo application.PurchaseRepository, opts Options) *CancelPurchaseService {
	return &CancelPurchaseService{
		purchaseRepo: purchaseRepo,
		opts:         opts.withDefaults(),
	}
}

func (s *CancelPurchaseService) Cancel(ctx context.Context, cmd CancelPurchaseCommand) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.UpdateWithLock(ctx, cmd.PurchaseID, func(p *domain.Purchase) error {
		return p.Cancel(cmd.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("purchase cancelled",
		"purchase_id", purchase.ID(),
		"reason", cmd.Reason,
	)
	s.opts.announce(ctx, purchase)
	return purchase, nil
}
