package application

import (
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/google/uuid"
)

type EventType string

const (
	EventPurchaseCreated    EventType = "purchase.created"
	EventPurchaseProcessing EventType = "purchase.processing"
	EventPurchaseCompleted  EventType = "purchase.completed"
	EventPurchaseFailed     EventType = "purchase.failed"
	EventPurchaseCancelled  EventType = "purchase.cancelled"
	EventPurchaseRefunded   EventType = "purchase.refunded"
)

var eventByStatus = map[domain.Status]EventType{
	domain.StatusPending:    EventPurchaseCreated,
	domain.StatusProcessing: EventPurchaseProcessing,
	domain.StatusCompleted:  EventPurchaseCompleted,
	domain.StatusFailed:     EventPurchaseFailed,
	domain.StatusCancelled:  EventPurchaseCancelled,
	domain.StatusRefunded:   EventPurchaseRefunded,
}

type PurchaseEvent struct {
	ID           string        `json:"id"`
	Type         EventType     `json:"type"`
	PurchaseID   string        `json:"purchase_id"`
	UserID       int64         `json:"user_id"`
	ProductID    string        `json:"product_id"`
	Status       domain.Status `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Amount       domain.Money  `json:"amount"`
	RefundAmount *domain.Money `json:"refund_amount,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// NewPurchaseEvent describes the purchase's current status.
func NewPurchaseEvent(p *domain.Purchase) PurchaseEvent {
	status := p.Status()
	ev := PurchaseEvent{
		ID:         uuid.NewString(),
		Type:       eventByStatus[status.Status()],
		PurchaseID: p.ID(),
		UserID:     p.UserID(),
		ProductID:  p.ProductID(),
		Status:     status.Status(),
		Reason:     status.Reason(),
		Amount:     p.Amount(),
		OccurredAt: status.Timestamp(),
	}
	if r := p.Refund(); r != nil {
		amount := r.Amount
		ev.RefundAmount = &amount
	}
	return ev
}

// RoutingKey is the topic the event is published under.
func (e PurchaseEvent) RoutingKey() string {
	return string(e.Type)
}
