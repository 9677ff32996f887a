package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/stretchr/testify/assert"
)

type gatewayErr struct{ temporary bool }

func (e gatewayErr) Error() string   { return "gateway" }
func (e gatewayErr) Temporary() bool { return e.temporary }

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want application.ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), application.CategoryTransient},
		{"illegal transition", domain.NewIllegalTransitionError(domain.StatusCompleted, domain.StatusCancelled), application.CategoryBusinessRule},
		{"invalid amount", domain.ErrInvalidAmount, application.CategoryClientError},
		{"not found", application.NewPurchaseNotFoundError("p-1"), application.CategoryClientError},
		{"invalid input", application.NewInvalidInputError(errors.New("bad json")), application.CategoryClientError},
		{"in flight", application.NewCommandInFlightError("p-1"), application.CategoryTransient},
		{"declined", application.NewProcessingFailedError("card declined", nil), application.CategoryPermanent},
		{"gateway outage", application.NewProcessingFailedError("unavailable", gatewayErr{temporary: true}), application.CategoryTransient},
		{"bare permanent gateway error", gatewayErr{}, application.CategoryPermanent},
		{"internal", application.NewInternalError(errors.New("boom")), application.CategoryInfrastructure},
		{"unrecorded result", application.NewUnrecordedResultError("p-1", "txn_1", context.DeadlineExceeded), application.CategoryPermanent},
		{"unknown", errors.New("???"), application.CategoryTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.CategorizeError(tt.err))
		})
	}
}

func TestServiceErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("refund: %w", application.NewProcessingFailedError("insufficient funds", nil))

	assert.ErrorIs(t, err, application.ErrProcessingFailed)
	assert.NotErrorIs(t, err, application.ErrPurchaseNotFound)
	assert.False(t, application.IsRetryable(err))
}

func TestToErrorCode(t *testing.T) {
	assert.Equal(t, "PURCHASE_NOT_FOUND", application.ToErrorCode(application.ErrPurchaseNotFound))
	assert.Equal(t, "REFUND_EXCEEDS_AMOUNT", application.ToErrorCode(domain.ErrRefundExceedsAmount))
	assert.Equal(t, "INVALID_INPUT", application.ToErrorCode(application.NewInvalidInputError(domain.ErrInvalidAmount)))
	assert.Equal(t, "INTERNAL_ERROR", application.ToErrorCode(errors.New("x")))
}
