// Package domain holds the purchase aggregate and the money-safe value
// objects it owns.
package domain

import (
	"maps"
	"strings"
	"time"
)

// RefundRecord is attached to a purchase only after a successful refund.
type RefundRecord struct {
	Amount           Money
	Reason           string
	ExternalRefundID string
	Timestamp        time.Time
}

// Purchase is the aggregate root. All state changes go through its methods;
// the status is replaced, never edited in place.
type Purchase struct {
	id            string
	userID        int64
	amount        Money
	paymentMethod PaymentMethod
	productID     string
	productName   string
	period        *SubscriptionPeriod
	status        PurchaseStatus
	refund        *RefundRecord
	metadata      map[string]string
	createdAt     time.Time
	version       int
}

// NewPurchase creates a purchase in Pending.
func NewPurchase(
	id string,
	userID int64,
	amount Money,
	paymentMethod PaymentMethod,
	productID string,
	productName string,
	period *SubscriptionPeriod,
	metadata map[string]string,
) (*Purchase, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("purchase ID")
	}
	if userID <= 0 {
		return nil, NewMissingRequiredFieldError("user ID")
	}
	if amount.Currency() == "" {
		return nil, NewInvalidCurrencyError("")
	}
	if paymentMethod.Provider() == "" {
		return nil, ErrInvalidProvider
	}
	if strings.TrimSpace(productID) == "" {
		return nil, NewMissingRequiredFieldError("product ID")
	}
	if period != nil && !period.EndDate().After(period.StartDate()) {
		return nil, NewInvalidRangeError("end date must be after start date")
	}

	now := time.Now().UTC()
	md := maps.Clone(metadata)
	if md == nil {
		md = make(map[string]string)
	}
	return &Purchase{
		id:            id,
		userID:        userID,
		amount:        amount,
		paymentMethod: paymentMethod,
		productID:     strings.TrimSpace(productID),
		productName:   productName,
		period:        clonePeriod(period),
		status:        NewPendingStatus(now),
		metadata:      md,
		createdAt:     now,
	}, nil
}

// StartProcessing moves Pending to Processing. A second call fails, which is
// what rejects double processing.
func (p *Purchase) StartProcessing() error {
	return p.moveTo(StatusProcessing, "")
}

// Complete records the processor's transaction id, if any, and clears any
// earlier reason.
func (p *Purchase) Complete(externalTransactionID string) error {
	if err := p.moveTo(StatusCompleted, ""); err != nil {
		return err
	}
	if externalTransactionID != "" {
		p.paymentMethod = p.paymentMethod.WithExternalTransactionID(externalTransactionID)
	}
	return nil
}

func (p *Purchase) Fail(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewMissingRequiredFieldError("failure reason")
	}
	return p.moveTo(StatusFailed, reason)
}

func (p *Purchase) Cancel(reason string) error {
	if !p.status.CanBeCancelled() {
		return NewIllegalTransitionError(p.status.Status(), StatusCancelled)
	}
	return p.moveTo(StatusCancelled, reason)
}

// CheckRefund validates a refund without changing the purchase.
func (p *Purchase) CheckRefund(refundAmount Money) error {
	if !p.status.CanBeRefunded() {
		return NewIllegalTransitionError(p.status.Status(), StatusRefunded)
	}
	if refundAmount.IsZero() {
		return NewInvalidAmountError(refundAmount.Amount().String())
	}
	exceeds, err := refundAmount.IsGreaterThan(p.amount)
	if err != nil {
		return err
	}
	if exceeds {
		return NewRefundExceedsAmountError(refundAmount, p.amount)
	}
	return nil
}

// ProcessRefund attaches the refund record and moves Completed to Refunded.
func (p *Purchase) ProcessRefund(refundAmount Money, reason, externalRefundID string) error {
	if err := p.CheckRefund(refundAmount); err != nil {
		return err
	}
	if err := p.moveTo(StatusRefunded, reason); err != nil {
		return err
	}
	p.refund = &RefundRecord{
		Amount:           refundAmount,
		Reason:           reason,
		ExternalRefundID: externalRefundID,
		Timestamp:        p.status.Timestamp(),
	}
	return nil
}

// AddMetadata upserts a key.
func (p *Purchase) AddMetadata(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return NewMissingRequiredFieldError("metadata key")
	}
	p.metadata[key] = value
	return nil
}

func (p *Purchase) moveTo(target Status, reason string) error {
	next, err := p.status.MoveTo(target, reason)
	if err != nil {
		return err
	}
	p.status = next
	return nil
}

func (p *Purchase) ID() string                   { return p.id }
func (p *Purchase) UserID() int64                { return p.userID }
func (p *Purchase) Amount() Money                { return p.amount }
func (p *Purchase) PaymentMethod() PaymentMethod { return p.paymentMethod }
func (p *Purchase) ProductID() string            { return p.productID }
func (p *Purchase) ProductName() string          { return p.productName }
func (p *Purchase) Status() PurchaseStatus       { return p.status }
func (p *Purchase) CreatedAt() time.Time         { return p.createdAt }
func (p *Purchase) Version() int                 { return p.version }
func (p *Purchase) IsSuccessful() bool           { return p.status.IsSuccessful() }

func (p *Purchase) SubscriptionPeriod() *SubscriptionPeriod {
	return clonePeriod(p.period)
}

func (p *Purchase) Refund() *RefundRecord {
	if p.refund == nil {
		return nil
	}
	r := *p.refund
	return &r
}

func (p *Purchase) Metadata() map[string]string {
	return maps.Clone(p.metadata)
}

// BumpVersion is called by the repository after a successful write.
func (p *Purchase) BumpVersion() {
	p.version++
}

func clonePeriod(period *SubscriptionPeriod) *SubscriptionPeriod {
	if period == nil {
		return nil
	}
	c := *period
	return &c
}

// Reconstitute - Special constructor for loading from DB
func Reconstitute(
	id string, userID int64,
	amount Money, paymentMethod PaymentMethod,
	productID, productName string,
	period *SubscriptionPeriod,
	status PurchaseStatus,
	refund *RefundRecord,
	metadata map[string]string,
	createdAt time.Time,
	version int,
) *Purchase {
	md := maps.Clone(metadata)
	if md == nil {
		md = make(map[string]string)
	}
	return &Purchase{
		id:            id,
		userID:        userID,
		amount:        amount,
		paymentMethod: paymentMethod,
		productID:     productID,
		productName:   productName,
		period:        clonePeriod(period),
		status:        status,
		refund:        refund,
		metadata:      md,
		createdAt:     createdAt,
		version:       version,
	}
}
