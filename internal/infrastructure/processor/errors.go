package processor

import (
	"errors"
	"fmt"
)

// ProcessorError is returned when the gateway could not give an answer.
// A decline is not an error; it comes back as an unsuccessful result.
type ProcessorError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error [%s]: %s", e.Code, e.Message)
}

// Temporary lets the application error categorizer treat the failure as transient.
func (e *ProcessorError) Temporary() bool {
	return e.Retryable
}

var (
	ErrGatewayUnavailable = &ProcessorError{Code: "gateway_unavailable", Message: "payment gateway unavailable", Retryable: true}
	ErrInvalidRequest     = &ProcessorError{Code: "invalid_request", Message: "payment gateway rejected the request"}
)

func IsProcessorError(err error) (*ProcessorError, bool) {
	var procErr *ProcessorError
	ok := errors.As(err, &procErr)
	return procErr, ok
}
