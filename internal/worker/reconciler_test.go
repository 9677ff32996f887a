package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/testhelpers"
	"github.com/DanielPopoola/ficmart-billing/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []application.PurchaseEvent
}

func (c *capturePublisher) Publish(_ context.Context, e application.PurchaseEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

type countingMetrics struct {
	transitions map[domain.Status]int
}

func (m *countingMetrics) PurchaseTransitioned(s domain.Status)        { m.transitions[s]++ }
func (m *countingMetrics) ProcessorCall(string, string, time.Duration) {}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newReconciler(repo application.PurchaseRepository, pub *capturePublisher, m *countingMetrics) *worker.Reconciler {
	return worker.NewReconciler(repo, pub, m, domain.FixedClock{At: now}, config.WorkerConfig{
		Interval:   time.Minute,
		BatchSize:  10,
		StuckAfter: 10 * time.Minute,
	}, slog.New(slog.DiscardHandler))
}

func TestReconciler_FailsOnlyStuckPurchases(t *testing.T) {
	repo := testhelpers.NewMemoryPurchaseRepository()
	stuck := testhelpers.NewPurchaseInStatus(t, domain.StatusProcessing, now.Add(-30*time.Minute))
	recent := testhelpers.NewPurchaseInStatus(t, domain.StatusProcessing, now.Add(-time.Minute))
	pending := testhelpers.NewPurchaseInStatus(t, domain.StatusPending, now.Add(-time.Hour))
	for _, p := range []*domain.Purchase{stuck, recent, pending} {
		repo.Put(p)
	}
	pub := &capturePublisher{}
	m := &countingMetrics{transitions: map[domain.Status]int{}}

	failed := newReconciler(repo, pub, m).RunOnce(context.Background())

	assert.Equal(t, 1, failed)

	got, err := repo.FindByID(context.Background(), stuck.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status().Status())
	assert.Equal(t, "processing timed out", got.Status().Reason())

	got, err = repo.FindByID(context.Background(), recent.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status().Status())

	require.Len(t, pub.events, 1)
	assert.Equal(t, application.EventPurchaseFailed, pub.events[0].Type)
	assert.Equal(t, 1, m.transitions[domain.StatusFailed])
}

func TestReconciler_SkipsPurchaseFinishedAfterScan(t *testing.T) {
	repo := testhelpers.NewMemoryPurchaseRepository()
	stuck := testhelpers.NewPurchaseInStatus(t, domain.StatusProcessing, now.Add(-30*time.Minute))
	repo.Put(stuck)
	completedMeanwhile := testhelpers.NewPurchaseInStatus(t, domain.StatusCompleted, now)
	repo.UpdateWithLockFn = func(_ context.Context, _ string, fn func(p *domain.Purchase) error) (*domain.Purchase, error) {
		working := testhelpers.Clone(completedMeanwhile)
		if err := fn(working); err != nil {
			return nil, err
		}
		return working, nil
	}
	pub := &capturePublisher{}

	failed := newReconciler(repo, pub, &countingMetrics{transitions: map[domain.Status]int{}}).RunOnce(context.Background())

	assert.Zero(t, failed)
	assert.Empty(t, pub.events)
}

func TestReconciler_RepositoryErrorIsLogged(t *testing.T) {
	repo := testhelpers.NewMemoryPurchaseRepository()
	repo.Put(testhelpers.NewPurchaseInStatus(t, domain.StatusProcessing, now.Add(-time.Hour)))
	repo.UpdateWithLockFn = func(context.Context, string, func(p *domain.Purchase) error) (*domain.Purchase, error) {
		return nil, errors.New("connection refused")
	}
	pub := &capturePublisher{}

	failed := newReconciler(repo, pub, &countingMetrics{transitions: map[domain.Status]int{}}).RunOnce(context.Background())

	assert.Zero(t, failed)
	assert.Empty(t, pub.events)
}

func TestReconciler_StartStopsWithContext(t *testing.T) {
	repo := testhelpers.NewMemoryPurchaseRepository()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		newReconciler(repo, &capturePublisher{}, &countingMetrics{transitions: map[domain.Status]int{}}).Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
