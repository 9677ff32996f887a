package application

import (
	"context"
	"errors"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// temporary is implemented by gateway errors that know whether a retry can help.
type temporary interface {
	Temporary() bool
}

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	// Money already moved; whatever broke the write, retrying the command would move it again.
	if errors.Is(err, ErrUnrecordedResult) {
		return CategoryPermanent
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeCommandInFlight, ErrCodeConcurrentModification, ErrCodeTimeout:
			return CategoryTransient
		case ErrCodeNotEligibleForTrial:
			return CategoryBusinessRule
		case ErrCodePurchaseNotFound, ErrCodeInvalidInput:
			return CategoryClientError
		case ErrCodeProcessingFailed:
			// A declined payment is final; a gateway outage is not.
			var t temporary
			if errors.As(svcErr.Err, &t) && t.Temporary() {
				return CategoryTransient
			}
			return CategoryPermanent
		case ErrCodeInternal:
			return CategoryInfrastructure
		}
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeIllegalTransition,
			domain.ErrCodeRefundExceedsAmount,
			domain.ErrCodeNoTrialAvailable:
			return CategoryBusinessRule
		default:
			return CategoryClientError
		}
	}

	var t temporary
	if errors.As(err, &t) {
		if t.Temporary() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToErrorCode gives a stable code for logs and events.
func ToErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}
