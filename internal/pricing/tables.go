package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductPrice is the list price of one product.
type ProductPrice struct {
	Monthly decimal.Decimal
	Yearly  decimal.Decimal
}

// PricingTable maps a product id to its prices. Lookups are case-insensitive.
type PricingTable map[string]ProductPrice

// TrialTable maps a product id to its trial length in days.
type TrialTable map[string]int

func (t PricingTable) Lookup(productID string) (ProductPrice, bool) {
	p, ok := t[normalizeProductID(productID)]
	return p, ok
}

func (t TrialTable) Lookup(productID string) (int, bool) {
	d, ok := t[normalizeProductID(productID)]
	return d, ok && d > 0
}

// Normalize returns a copy with lower-cased keys.
func (t PricingTable) Normalize() PricingTable {
	out := make(PricingTable, len(t))
	for k, v := range t {
		out[normalizeProductID(k)] = v
	}
	return out
}

func (t TrialTable) Normalize() TrialTable {
	out := make(TrialTable, len(t))
	for k, v := range t {
		out[normalizeProductID(k)] = v
	}
	return out
}

func DefaultPricingTable() PricingTable {
	return PricingTable{
		"basic":   {Monthly: decimal.RequireFromString("4.99"), Yearly: decimal.RequireFromString("49.99")},
		"premium": {Monthly: decimal.RequireFromString("9.99"), Yearly: decimal.RequireFromString("99.99")},
		"pro":     {Monthly: decimal.RequireFromString("19.99"), Yearly: decimal.RequireFromString("199.99")},
	}
}

func DefaultTrialTable() TrialTable {
	return TrialTable{
		"premium": 7,
		"pro":     14,
	}
}

func normalizeProductID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
