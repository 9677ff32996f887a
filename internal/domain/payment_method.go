package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
)

type PaymentType string

const (
	PaymentTypeCreditCard     PaymentType = "CREDIT_CARD"
	PaymentTypeMobileMoney    PaymentType = "MOBILE_MONEY"
	PaymentTypeBankTransfer   PaymentType = "BANK_TRANSFER"
	PaymentTypeDigitalWallet  PaymentType = "DIGITAL_WALLET"
	PaymentTypeCryptocurrency PaymentType = "CRYPTOCURRENCY"
)

func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeCreditCard, PaymentTypeMobileMoney, PaymentTypeBankTransfer,
		PaymentTypeDigitalWallet, PaymentTypeCryptocurrency:
		return true
	}
	return false
}

// PaymentMethod describes the instrument a purchase is paid with. It is never
// mutated; the With* methods return copies.
type PaymentMethod struct {
	paymentType           PaymentType
	provider              string
	externalTransactionID string
	metadata              map[string]string
}

func NewPaymentMethod(paymentType PaymentType, provider string, metadata map[string]string) (PaymentMethod, error) {
	if !paymentType.IsValid() {
		return PaymentMethod{}, &DomainError{
			Code:    ErrCodeInvalidPaymentType,
			Message: "invalid payment method type " + string(paymentType),
		}
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return PaymentMethod{}, ErrInvalidProvider
	}
	return PaymentMethod{
		paymentType: paymentType,
		provider:    provider,
		metadata:    maps.Clone(metadata),
	}, nil
}

// ReconstitutePaymentMethod rebuilds a stored payment method without validation.
func ReconstitutePaymentMethod(paymentType PaymentType, provider, externalTransactionID string, metadata map[string]string) PaymentMethod {
	return PaymentMethod{
		paymentType:           paymentType,
		provider:              provider,
		externalTransactionID: externalTransactionID,
		metadata:              maps.Clone(metadata),
	}
}

func (pm PaymentMethod) Type() PaymentType              { return pm.paymentType }
func (pm PaymentMethod) Provider() string               { return pm.provider }
func (pm PaymentMethod) ExternalTransactionID() string  { return pm.externalTransactionID }
func (pm PaymentMethod) HasExternalTransactionID() bool { return pm.externalTransactionID != "" }

// Metadata returns a copy.
func (pm PaymentMethod) Metadata() map[string]string {
	if pm.metadata == nil {
		return map[string]string{}
	}
	return maps.Clone(pm.metadata)
}

func (pm PaymentMethod) WithMetadata(key, value string) PaymentMethod {
	next := pm
	next.metadata = maps.Clone(pm.metadata)
	if next.metadata == nil {
		next.metadata = make(map[string]string, 1)
	}
	next.metadata[key] = value
	return next
}

func (pm PaymentMethod) WithExternalTransactionID(id string) PaymentMethod {
	next := pm
	next.metadata = maps.Clone(pm.metadata)
	next.externalTransactionID = id
	return next
}

// Equal compares type, provider, external id and metadata contents.
func (pm PaymentMethod) Equal(other PaymentMethod) bool {
	return pm.canonical() == other.canonical()
}

// Hash is a stable digest over the canonical form; metadata order does not
// affect it.
func (pm PaymentMethod) Hash() string {
	sum := sha256.Sum256([]byte(pm.canonical()))
	return hex.EncodeToString(sum[:])
}

func (pm PaymentMethod) canonical() string {
	var b strings.Builder
	b.WriteString(string(pm.paymentType))
	b.WriteByte(0)
	b.WriteString(pm.provider)
	b.WriteByte(0)
	b.WriteString(pm.externalTransactionID)
	for _, k := range slices.Sorted(maps.Keys(pm.metadata)) {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pm.metadata[k])
	}
	return b.String()
}
