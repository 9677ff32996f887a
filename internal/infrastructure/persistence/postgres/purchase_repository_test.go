package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-billing/internal/testhelpers"
	"github.com/stretchr/testify/suite"
)

type PurchaseRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDatabase
	repo   *postgres.PurchaseRepository
	ctx    context.Context
}

func TestPurchaseRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PurchaseRepositoryTestSuite))
}

func (s *PurchaseRepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	s.repo = postgres.NewPurchaseRepository(s.testDB.DB)
}

func (s *PurchaseRepositoryTestSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
}

func (s *PurchaseRepositoryTestSuite) TestCreateAndFind_RoundTrip() {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	period, err := domain.Monthly(start, 1)
	s.Require().NoError(err)
	method, err := domain.NewPaymentMethod(domain.PaymentTypeDigitalWallet, "paypal", map[string]string{"email": "a@b.c"})
	s.Require().NoError(err)
	p, err := domain.NewPurchase("0b8f5f3e-5c4e-4d59-9d1e-0d6f9d3c2a11", 7,
		testhelpers.Money(s.T(), "9.99", "usd"), method, "premium", "Premium", &period,
		map[string]string{"source": "web"})
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Create(s.ctx, p))

	found, err := s.repo.FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(int64(7), found.UserID())
	s.True(found.Amount().Equal(p.Amount()))
	s.Equal("USD", found.Amount().Currency())
	s.True(found.PaymentMethod().Equal(method))
	s.Equal(domain.StatusPending, found.Status().Status())
	s.Equal("web", found.Metadata()["source"])
	s.Require().NotNil(found.SubscriptionPeriod())
	s.True(found.SubscriptionPeriod().Equal(period))
	s.Nil(found.Refund())
	s.WithinDuration(p.CreatedAt(), found.CreatedAt(), time.Millisecond)
}

func (s *PurchaseRepositoryTestSuite) TestFindByID_NotFound() {
	_, err := s.repo.FindByID(s.ctx, "5a4c3b2a-1111-4222-8333-944445555666")

	s.ErrorIs(err, application.ErrPurchaseNotFound)
}

func (s *PurchaseRepositoryTestSuite) TestUpdateWithLock_PersistsLifecycle() {
	p := testhelpers.NewPendingPurchase(s.T(), 1, "pro", "19.99")
	s.Require().NoError(s.repo.Create(s.ctx, p))

	_, err := s.repo.UpdateWithLock(s.ctx, p.ID(), func(p *domain.Purchase) error { return p.StartProcessing() })
	s.Require().NoError(err)
	_, err = s.repo.UpdateWithLock(s.ctx, p.ID(), func(p *domain.Purchase) error { return p.Complete("txn_123") })
	s.Require().NoError(err)

	refund := testhelpers.Money(s.T(), "5.00", "USD")
	updated, err := s.repo.UpdateWithLock(s.ctx, p.ID(), func(p *domain.Purchase) error {
		return p.ProcessRefund(refund, "partial", "rf_1")
	})
	s.Require().NoError(err)
	s.Equal(3, updated.Version())

	found, err := s.repo.FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRefunded, found.Status().Status())
	s.Equal("txn_123", found.PaymentMethod().ExternalTransactionID())
	s.Equal(3, found.Version())
	s.Require().NotNil(found.Refund())
	s.True(found.Refund().Amount.Equal(refund))
	s.Equal("rf_1", found.Refund().ExternalRefundID)
}

func (s *PurchaseRepositoryTestSuite) TestUpdateWithLock_RejectedCommandWritesNothing() {
	p := testhelpers.NewPendingPurchase(s.T(), 1, "pro", "19.99")
	s.Require().NoError(s.repo.Create(s.ctx, p))

	_, err := s.repo.UpdateWithLock(s.ctx, p.ID(), func(p *domain.Purchase) error { return p.Complete("txn") })

	s.ErrorIs(err, domain.ErrIllegalTransition)
	found, err := s.repo.FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, found.Status().Status())
	s.Equal(0, found.Version())
}

func (s *PurchaseRepositoryTestSuite) TestUpdateWithLock_SerializesConcurrentWriters() {
	p := testhelpers.NewPendingPurchase(s.T(), 1, "basic", "4.99")
	s.Require().NoError(s.repo.Create(s.ctx, p))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 8 {
		wg.Go(func() {
			_, err := s.repo.UpdateWithLock(s.ctx, p.ID(), func(p *domain.Purchase) error { return p.StartProcessing() })
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	s.Equal(1, successes)
}

func (s *PurchaseRepositoryTestSuite) TestQueries() {
	old := time.Now().UTC().Add(-time.Hour)
	stuck := testhelpers.NewPurchaseInStatus(s.T(), domain.StatusProcessing, old)
	fresh := testhelpers.NewPurchaseInStatus(s.T(), domain.StatusProcessing, time.Now().UTC())
	failed := testhelpers.NewPurchaseInStatus(s.T(), domain.StatusFailed, old)
	completed := testhelpers.NewPurchaseInStatus(s.T(), domain.StatusCompleted, old)
	for _, p := range []*domain.Purchase{stuck, fresh, failed, completed} {
		s.Require().NoError(s.repo.Create(s.ctx, p))
	}

	found, err := s.repo.FindStuckProcessing(s.ctx, time.Now().UTC().Add(-10*time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(stuck.ID(), found[0].ID())

	page, err := s.repo.FindByUserID(s.ctx, 1, 2, 0)
	s.Require().NoError(err)
	s.Len(page, 2)
	rest, err := s.repo.FindByUserID(s.ctx, 1, 10, 2)
	s.Require().NoError(err)
	s.Len(rest, 2)

	has, err := s.repo.HasPurchasedProduct(s.ctx, 1, "PREMIUM")
	s.Require().NoError(err)
	s.True(has)
	has, err = s.repo.HasPurchasedProduct(s.ctx, 2, "premium")
	s.Require().NoError(err)
	s.False(has)

	stats, err := s.repo.StatsByUser(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(2, stats.CountByStatus[domain.StatusProcessing])
	s.Equal(1, stats.CountByStatus[domain.StatusFailed])
	s.Equal(1, stats.CountByStatus[domain.StatusCompleted])
	s.Equal("9.99 USD", stats.CompletedTotal["USD"].String())
}
