package services

import (
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

type CreatePurchaseCommand struct {
	UserID          int64              `json:"user_id" validate:"required,gt=0"`
	Amount          string             `json:"amount,omitempty"`
	Currency        string             `json:"currency" validate:"required,min=3"`
	PaymentType     domain.PaymentType `json:"payment_type" validate:"required"`
	Provider        string             `json:"provider" validate:"required"`
	PaymentMetadata map[string]string  `json:"payment_metadata,omitempty"`
	ProductID       string             `json:"product_id" validate:"required"`
	ProductName     string             `json:"product_name,omitempty"`
	Period          *PeriodSpec        `json:"period,omitempty"`
	// Trial replaces amount and period with the product's free trial.
	Trial    bool              `json:"trial,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PeriodSpec is either a cadence (Type + Units) or, for CUSTOM, an explicit End.
type PeriodSpec struct {
	Type  domain.PeriodType `json:"type" validate:"required"`
	Units int               `json:"units,omitempty"`
	Start time.Time         `json:"start,omitempty"`
	End   *time.Time        `json:"end,omitempty"`
}

type ProcessPaymentCommand struct {
	PurchaseID string `json:"purchase_id" validate:"required"`
}

type CancelPurchaseCommand struct {
	PurchaseID string `json:"purchase_id" validate:"required"`
	Reason     string `json:"reason,omitempty"`
}

// RefundPurchaseCommand refunds Amount when set, otherwise the prorated
// remainder when Prorate is set, otherwise the full purchase amount.
type RefundPurchaseCommand struct {
	PurchaseID string `json:"purchase_id" validate:"required"`
	Amount     string `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Prorate    bool   `json:"prorate,omitempty"`
}
