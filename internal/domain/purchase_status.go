package domain

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a purchase.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded,
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
	StatusFailed:     {},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	return slices.Contains(transitions[s], target)
}

// PurchaseStatus is an immutable status value. MoveTo returns a new value and
// leaves the receiver untouched.
type PurchaseStatus struct {
	status    Status
	reason    string
	timestamp time.Time
}

// NewPendingStatus is the initial status of every purchase.
func NewPendingStatus(at time.Time) PurchaseStatus {
	return PurchaseStatus{status: StatusPending, timestamp: at}
}

// ReconstituteStatus rebuilds a stored status without checking transitions.
func ReconstituteStatus(status Status, reason string, at time.Time) PurchaseStatus {
	return PurchaseStatus{status: status, reason: reason, timestamp: at}
}

// MoveTo fails with ErrIllegalTransition for any pair not in the transition table.
func (s PurchaseStatus) MoveTo(target Status, reason string) (PurchaseStatus, error) {
	if !s.status.CanTransitionTo(target) {
		return s, NewIllegalTransitionError(s.status, target)
	}
	return PurchaseStatus{
		status:    target,
		reason:    reason,
		timestamp: time.Now().UTC(),
	}, nil
}

func (s PurchaseStatus) Status() Status       { return s.status }
func (s PurchaseStatus) Reason() string       { return s.reason }
func (s PurchaseStatus) Timestamp() time.Time { return s.timestamp }

func (s PurchaseStatus) IsTerminal() bool {
	switch s.status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s PurchaseStatus) IsSuccessful() bool {
	return s.status == StatusCompleted
}

func (s PurchaseStatus) CanBeRefunded() bool {
	return s.status == StatusCompleted
}

func (s PurchaseStatus) CanBeCancelled() bool {
	return s.status == StatusPending || s.status == StatusProcessing
}

func (s PurchaseStatus) String() string {
	return string(s.status)
}
