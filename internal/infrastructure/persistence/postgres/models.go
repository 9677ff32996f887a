package postgres

import (
	"time"
)

// PurchaseModel mirrors one row of the purchases table. Money columns travel
// as text so no precision is lost between NUMERIC and decimal.
type PurchaseModel struct {
	ID                    string
	UserID                int64
	Amount                string
	Currency              string
	PaymentType           string
	PaymentProvider       string
	ExternalTransactionID *string
	PaymentMetadata       map[string]string
	ProductID             string
	ProductName           string
	PeriodStart           *time.Time
	PeriodEnd             *time.Time
	PeriodType            *string
	PeriodUnits           *int32
	Status                string
	StatusReason          string
	StatusAt              time.Time
	RefundAmount          *string
	RefundCurrency        *string
	RefundReason          *string
	ExternalRefundID      *string
	RefundedAt            *time.Time
	Metadata              map[string]string
	CreatedAt             time.Time
	Version               int32
}
