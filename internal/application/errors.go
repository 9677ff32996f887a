package application

import (
	"errors"
	"fmt"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError with the same code.
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodePurchaseNotFound       = "PURCHASE_NOT_FOUND"
	ErrCodeProcessingFailed       = "PROCESSING_FAILED"
	ErrCodeCommandInFlight        = "COMMAND_IN_FLIGHT"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeNotEligibleForTrial    = "NOT_ELIGIBLE_FOR_TRIAL"
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeTimeout                = "TIMEOUT"
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeUnrecordedResult       = "UNRECORDED_PROCESSOR_RESULT"
)

var (
	ErrPurchaseNotFound       = &ServiceError{Code: ErrCodePurchaseNotFound, Message: "purchase not found"}
	ErrProcessingFailed       = &ServiceError{Code: ErrCodeProcessingFailed, Message: "payment processing failed"}
	ErrCommandInFlight        = &ServiceError{Code: ErrCodeCommandInFlight, Message: "another command is in progress for this purchase"}
	ErrConcurrentModification = &ServiceError{Code: ErrCodeConcurrentModification, Message: "purchase was modified concurrently"}
	ErrNotEligibleForTrial    = &ServiceError{Code: ErrCodeNotEligibleForTrial, Message: "user is not eligible for a trial"}
	ErrInvalidInput           = &ServiceError{Code: ErrCodeInvalidInput, Message: "invalid input"}
	ErrUnrecordedResult       = &ServiceError{Code: ErrCodeUnrecordedResult, Message: "processor result could not be recorded"}
)

func NewPurchaseNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodePurchaseNotFound,
		Message: fmt.Sprintf("purchase %s not found", id),
	}
}

// NewProcessingFailedError carries the processor's reason as the message.
func NewProcessingFailedError(reason string, err error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeProcessingFailed,
		Message: reason,
		Err:     err,
	}
}

func NewCommandInFlightError(key string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeCommandInFlight,
		Message: fmt.Sprintf("command already in progress for %s", key),
	}
}

func NewNotEligibleForTrialError(userID int64, productID string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeNotEligibleForTrial,
		Message: fmt.Sprintf("user %d already used the %s trial", userID, productID),
	}
}

// UnrecordedResultError means the processor moved money (ExternalID) but the
// purchase could not be updated to say so. It needs reconciliation by hand,
// never a retry of the command.
type UnrecordedResultError struct {
	*ServiceError
	PurchaseID string
	ExternalID string
}

func NewUnrecordedResultError(purchaseID, externalID string, err error) *UnrecordedResultError {
	return &UnrecordedResultError{
		ServiceError: &ServiceError{
			Code:    ErrCodeUnrecordedResult,
			Message: fmt.Sprintf("processor succeeded with %s but purchase %s was not updated", externalID, purchaseID),
			Err:     err,
		},
		PurchaseID: purchaseID,
		ExternalID: externalID,
	}
}

func (e *UnrecordedResultError) Unwrap() error {
	return e.ServiceError
}

func NewTimeoutError(err error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeTimeout,
		Message: "processor call timed out",
		Err:     err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInternal,
		Message: "an internal error occurred",
		Err:     err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInvalidInput,
		Message: "invalid input",
		Err:     err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
