package testhelpers

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

// MemoryPurchaseRepository is a mutex-guarded in-memory PurchaseRepository.
// It stores copies, so a rejected update leaves the stored purchase as it was.
// The Fn fields override individual methods.
type MemoryPurchaseRepository struct {
	mu        sync.RWMutex
	purchases map[string]*domain.Purchase

	CreateFn         func(ctx context.Context, purchase *domain.Purchase) error
	FindByIDFn       func(ctx context.Context, id string) (*domain.Purchase, error)
	UpdateWithLockFn func(ctx context.Context, id string, fn func(p *domain.Purchase) error) (*domain.Purchase, error)
}

var _ application.PurchaseRepository = (*MemoryPurchaseRepository)(nil)

func NewMemoryPurchaseRepository() *MemoryPurchaseRepository {
	return &MemoryPurchaseRepository{
		purchases: make(map[string]*domain.Purchase),
	}
}

func (m *MemoryPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, purchase)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[purchase.ID()] = Clone(purchase)
	return nil
}

// Put stores a purchase as-is, bypassing the create path.
func (m *MemoryPurchaseRepository) Put(purchase *domain.Purchase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[purchase.ID()] = Clone(purchase)
}

func (m *MemoryPurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, application.NewPurchaseNotFoundError(id)
	}
	return Clone(p), nil
}

func (m *MemoryPurchaseRepository) FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Purchase, error) {
	all := m.filter(func(p *domain.Purchase) bool { return p.UserID() == userID })
	slices.SortFunc(all, func(a, b *domain.Purchase) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
	if offset >= len(all) {
		return []*domain.Purchase{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *MemoryPurchaseRepository) FindStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Purchase, error) {
	stuck := m.filter(func(p *domain.Purchase) bool {
		return p.Status().Status() == domain.StatusProcessing && p.Status().Timestamp().Before(cutoff)
	})
	slices.SortFunc(stuck, func(a, b *domain.Purchase) int {
		return a.Status().Timestamp().Compare(b.Status().Timestamp())
	})
	return stuck[:min(limit, len(stuck))], nil
}

func (m *MemoryPurchaseRepository) HasPurchasedProduct(ctx context.Context, userID int64, productID string) (bool, error) {
	found := m.filter(func(p *domain.Purchase) bool {
		if p.UserID() != userID || !strings.EqualFold(p.ProductID(), productID) {
			return false
		}
		s := p.Status().Status()
		return s != domain.StatusFailed && s != domain.StatusCancelled
	})
	return len(found) > 0, nil
}

func (m *MemoryPurchaseRepository) StatsByUser(ctx context.Context, userID int64) (*application.PurchaseStats, error) {
	stats := &application.PurchaseStats{
		UserID:         userID,
		CountByStatus:  make(map[domain.Status]int),
		CompletedTotal: make(map[string]domain.Money),
	}
	for _, p := range m.filter(func(p *domain.Purchase) bool { return p.UserID() == userID }) {
		stats.CountByStatus[p.Status().Status()]++
		if p.Status().Status() != domain.StatusCompleted {
			continue
		}
		currency := p.Amount().Currency()
		total, ok := stats.CompletedTotal[currency]
		if !ok {
			total = domain.ZeroMoney(currency)
		}
		sum, err := total.Add(p.Amount())
		if err != nil {
			return nil, err
		}
		stats.CompletedTotal[currency] = sum
	}
	return stats, nil
}

func (m *MemoryPurchaseRepository) UpdateWithLock(ctx context.Context, id string, fn func(p *domain.Purchase) error) (*domain.Purchase, error) {
	if m.UpdateWithLockFn != nil {
		return m.UpdateWithLockFn(ctx, id, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.purchases[id]
	if !ok {
		return nil, application.NewPurchaseNotFoundError(id)
	}
	working := Clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.BumpVersion()
	m.purchases[id] = Clone(working)
	return working, nil
}

func (m *MemoryPurchaseRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.purchases)
}

func (m *MemoryPurchaseRepository) filter(keep func(p *domain.Purchase) bool) []*domain.Purchase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Purchase
	for _, p := range m.purchases {
		if keep(p) {
			out = append(out, Clone(p))
		}
	}
	return out
}

// Clone deep-copies a purchase through its reconstitution path.
func Clone(p *domain.Purchase) *domain.Purchase {
	return domain.Reconstitute(
		p.ID(), p.UserID(),
		p.Amount(), p.PaymentMethod(),
		p.ProductID(), p.ProductName(),
		p.SubscriptionPeriod(),
		p.Status(),
		p.Refund(),
		p.Metadata(),
		p.CreatedAt(),
		p.Version(),
	)
}
