package postgres_test

import (
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/persistence/postgres"
)

func (s *PurchaseRepositoryTestSuite) TestCommandGuard_RejectsSecondHolder() {
	guard := postgres.NewCommandGuard(s.testDB.DB, slog.New(slog.DiscardHandler))
	other := postgres.NewCommandGuard(s.testDB.DB, slog.New(slog.DiscardHandler))

	release, err := guard.Acquire(s.ctx, "refund:p-1", time.Minute)
	s.Require().NoError(err)

	_, err = other.Acquire(s.ctx, "refund:p-1", time.Minute)
	s.ErrorIs(err, application.ErrCommandInFlight)

	otherKey, err := other.Acquire(s.ctx, "refund:p-2", time.Minute)
	s.Require().NoError(err)
	otherKey()

	release()
	again, err := other.Acquire(s.ctx, "refund:p-1", time.Minute)
	s.Require().NoError(err)
	again()
}

func (s *PurchaseRepositoryTestSuite) TestCommandGuard_ExpiredLockIsTakenOver() {
	guard := postgres.NewCommandGuard(s.testDB.DB, slog.New(slog.DiscardHandler))

	stale, err := guard.Acquire(s.ctx, "process:p-1", 10*time.Millisecond)
	s.Require().NoError(err)
	time.Sleep(50 * time.Millisecond)

	current, err := guard.Acquire(s.ctx, "process:p-1", time.Minute)
	s.Require().NoError(err)
	defer current()

	// The stale holder must not free the new holder's lock.
	stale()
	_, err = guard.Acquire(s.ctx, "process:p-1", time.Minute)
	s.ErrorIs(err, application.ErrCommandInFlight)
}
