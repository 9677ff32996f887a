package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

type QueryService struct {
	purchaseRepo application.PurchaseRepository
}

func NewQueryService(purchaseRepo application.PurchaseRepository) *QueryService {
	return &QueryService{
		purchaseRepo: purchaseRepo,
	}
}

func (s *QueryService) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	return s.purchaseRepo.FindByID(ctx, id)
}

// FindByUserID pages newest first. limit defaults to 20 and is capped at 100.
func (s *QueryService) FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Purchase, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.purchaseRepo.FindByUserID(ctx, userID, limit, offset)
}

func (s *QueryService) Stats(ctx context.Context, userID int64) (*application.PurchaseStats, error) {
	return s.purchaseRepo.StatsByUser(ctx, userID)
}
