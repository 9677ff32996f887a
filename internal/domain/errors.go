package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so detailed
// errors still match their sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency      = "INVALID_CURRENCY"
	ErrCodeCurrencyMismatch     = "CURRENCY_MISMATCH"
	ErrCodeInvalidProvider      = "INVALID_PROVIDER"
	ErrCodeInvalidPaymentType   = "INVALID_PAYMENT_TYPE"
	ErrCodeInvalidRange         = "INVALID_RANGE"
	ErrCodeIllegalTransition    = "ILLEGAL_TRANSITION"
	ErrCodeUnknownProduct       = "UNKNOWN_PRODUCT"
	ErrCodeNoTrialAvailable     = "NO_TRIAL_AVAILABLE"
	ErrCodeRefundExceedsAmount  = "REFUND_EXCEEDS_AMOUNT"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidPeriodType    = "INVALID_PERIOD_TYPE"
)

var (
	ErrInvalidAmount        = &DomainError{Code: ErrCodeInvalidAmount, Message: "invalid amount"}
	ErrInvalidCurrency      = &DomainError{Code: ErrCodeInvalidCurrency, Message: "invalid currency"}
	ErrCurrencyMismatch     = &DomainError{Code: ErrCodeCurrencyMismatch, Message: "currency mismatch"}
	ErrInvalidProvider      = &DomainError{Code: ErrCodeInvalidProvider, Message: "payment provider is required"}
	ErrInvalidPaymentType   = &DomainError{Code: ErrCodeInvalidPaymentType, Message: "invalid payment method type"}
	ErrInvalidRange         = &DomainError{Code: ErrCodeInvalidRange, Message: "invalid subscription period"}
	ErrIllegalTransition    = &DomainError{Code: ErrCodeIllegalTransition, Message: "illegal status transition"}
	ErrUnknownProduct       = &DomainError{Code: ErrCodeUnknownProduct, Message: "unknown product"}
	ErrNoTrialAvailable     = &DomainError{Code: ErrCodeNoTrialAvailable, Message: "no trial available"}
	ErrRefundExceedsAmount  = &DomainError{Code: ErrCodeRefundExceedsAmount, Message: "refund exceeds purchase amount"}
	ErrMissingRequiredField = &DomainError{Code: ErrCodeMissingRequiredField, Message: "missing required field"}
	ErrInvalidPeriodType    = &DomainError{Code: ErrCodeInvalidPeriodType, Message: "invalid subscription period type"}
)

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

func NewInvalidCurrencyError(currency string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCurrency,
		Message: fmt.Sprintf("invalid currency code %q", currency),
	}
}

func NewCurrencyMismatchError(left, right string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCurrencyMismatch,
		Message: fmt.Sprintf("cannot combine %s with %s", left, right),
	}
}

func NewIllegalTransitionError(from, to Status) *DomainError {
	return &DomainError{
		Code:    ErrCodeIllegalTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewInvalidRangeError(msg string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidRange,
		Message: msg,
	}
}

func NewUnknownProductError(productID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownProduct,
		Message: fmt.Sprintf("product %q has no pricing", productID),
	}
}

func NewNoTrialAvailableError(productID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoTrialAvailable,
		Message: fmt.Sprintf("product %q has no trial period", productID),
	}
}

func NewRefundExceedsAmountError(refund, paid Money) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundExceedsAmount,
		Message: fmt.Sprintf("refund %s exceeds purchase amount %s", refund, paid),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
