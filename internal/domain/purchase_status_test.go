package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseStatus_TransitionTable(t *testing.T) {
	legal := map[domain.Status][]domain.Status{
		domain.StatusPending:    {domain.StatusProcessing, domain.StatusCancelled, domain.StatusFailed},
		domain.StatusProcessing: {domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled},
		domain.StatusCompleted:  {domain.StatusRefunded},
	}

	for _, from := range domain.AllStatuses {
		for _, to := range domain.AllStatuses {
			allowed := false
			for _, s := range legal[from] {
				if s == to {
					allowed = true
				}
			}

			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				current := domain.ReconstituteStatus(from, "", time.Now())

				next, err := current.MoveTo(to, "reason")

				if allowed {
					require.NoError(t, err)
					assert.Equal(t, to, next.Status())
					assert.Equal(t, "reason", next.Reason())
				} else {
					assert.ErrorIs(t, err, domain.ErrIllegalTransition)
				}
				assert.Equal(t, from, current.Status(), "original value must not change")
			})
		}
	}
}

func TestPurchaseStatus_Predicates(t *testing.T) {
	tests := []struct {
		status     domain.Status
		terminal   bool
		refundable bool
		cancelable bool
	}{
		{domain.StatusPending, false, false, true},
		{domain.StatusProcessing, false, false, true},
		{domain.StatusCompleted, true, true, false},
		{domain.StatusFailed, true, false, false},
		{domain.StatusCancelled, true, false, false},
		{domain.StatusRefunded, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s := domain.ReconstituteStatus(tt.status, "", time.Now())

			assert.Equal(t, tt.terminal, s.IsTerminal())
			assert.Equal(t, tt.refundable, s.CanBeRefunded())
			assert.Equal(t, tt.cancelable, s.CanBeCancelled())
			assert.Equal(t, tt.status == domain.StatusCompleted, s.IsSuccessful())
		})
	}
}

func TestPurchaseStatus_MoveToStampsTime(t *testing.T) {
	old := domain.NewPendingStatus(time.Now().Add(-time.Hour))

	next, err := old.MoveTo(domain.StatusProcessing, "")

	require.NoError(t, err)
	assert.True(t, next.Timestamp().After(old.Timestamp()))
}
