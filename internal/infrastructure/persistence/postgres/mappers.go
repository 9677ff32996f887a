package postgres

import (
	"fmt"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
)

// toDomainModel maps a row to the aggregate.
func toDomainModel(m PurchaseModel) (*domain.Purchase, error) {
	amount, err := domain.NewMoneyFromString(m.Amount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("purchase %s amount: %w", m.ID, err)
	}

	method := domain.ReconstitutePaymentMethod(
		domain.PaymentType(m.PaymentType),
		m.PaymentProvider,
		deref(m.ExternalTransactionID),
		m.PaymentMetadata,
	)

	var period *domain.SubscriptionPeriod
	if m.PeriodStart != nil && m.PeriodEnd != nil {
		p := domain.ReconstitutePeriod(
			m.PeriodStart.UTC(),
			m.PeriodEnd.UTC(),
			domain.PeriodType(deref(m.PeriodType)),
			int(derefInt(m.PeriodUnits)),
		)
		period = &p
	}

	var refund *domain.RefundRecord
	if m.RefundAmount != nil {
		refundAmount, err := domain.NewMoneyFromString(*m.RefundAmount, deref(m.RefundCurrency))
		if err != nil {
			return nil, fmt.Errorf("purchase %s refund amount: %w", m.ID, err)
		}
		refund = &domain.RefundRecord{
			Amount:           refundAmount,
			Reason:           deref(m.RefundReason),
			ExternalRefundID: deref(m.ExternalRefundID),
		}
		if m.RefundedAt != nil {
			refund.Timestamp = m.RefundedAt.UTC()
		}
	}

	return domain.Reconstitute(
		m.ID,
		m.UserID,
		amount,
		method,
		m.ProductID,
		m.ProductName,
		period,
		domain.ReconstituteStatus(domain.Status(m.Status), m.StatusReason, m.StatusAt.UTC()),
		refund,
		m.Metadata,
		m.CreatedAt.UTC(),
		int(m.Version),
	), nil
}

// toDBModel maps the aggregate to a row.
func toDBModel(p *domain.Purchase) *PurchaseModel {
	method := p.PaymentMethod()
	m := &PurchaseModel{
		ID:                    p.ID(),
		UserID:                p.UserID(),
		Amount:                p.Amount().Amount().String(),
		Currency:              p.Amount().Currency(),
		PaymentType:           string(method.Type()),
		PaymentProvider:       method.Provider(),
		ExternalTransactionID: nullable(method.ExternalTransactionID()),
		PaymentMetadata:       method.Metadata(),
		ProductID:             p.ProductID(),
		ProductName:           p.ProductName(),
		Status:                string(p.Status().Status()),
		StatusReason:          p.Status().Reason(),
		StatusAt:              p.Status().Timestamp(),
		Metadata:              p.Metadata(),
		CreatedAt:             p.CreatedAt(),
		Version:               int32(p.Version()),
	}

	if period := p.SubscriptionPeriod(); period != nil {
		start, end := period.StartDate(), period.EndDate()
		periodType := string(period.Type())
		units := int32(period.DurationUnits())
		m.PeriodStart, m.PeriodEnd = &start, &end
		m.PeriodType, m.PeriodUnits = &periodType, &units
	}

	if refund := p.Refund(); refund != nil {
		amount := refund.Amount.Amount().String()
		currency := refund.Amount.Currency()
		at := refund.Timestamp
		m.RefundAmount = &amount
		m.RefundCurrency = &currency
		m.RefundReason = &refund.Reason
		m.ExternalRefundID = nullable(refund.ExternalRefundID)
		m.RefundedAt = &at
	}

	return m
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}
