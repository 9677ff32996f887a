package config

import (
	"fmt"

	"github.com/DanielPopoola/ficmart-billing/internal/pricing"
	"github.com/shopspring/decimal"
)

// PricingTable converts the configured products. With none configured the
// built-in table is used.
func (c PricingConfig) PricingTable() (pricing.PricingTable, error) {
	if len(c.Products) == 0 {
		return pricing.DefaultPricingTable(), nil
	}
	table := make(pricing.PricingTable, len(c.Products))
	for id, p := range c.Products {
		monthly, err := decimal.NewFromString(p.Monthly)
		if err != nil {
			return nil, fmt.Errorf("pricing.products.%s.monthly: %w", id, err)
		}
		yearly, err := decimal.NewFromString(p.Yearly)
		if err != nil {
			return nil, fmt.Errorf("pricing.products.%s.yearly: %w", id, err)
		}
		if monthly.IsNegative() || yearly.IsNegative() {
			return nil, fmt.Errorf("pricing.products.%s: prices must not be negative", id)
		}
		table[id] = pricing.ProductPrice{Monthly: monthly, Yearly: yearly}
	}
	return table, nil
}

// TrialTable returns the configured trial lengths, or the built-in ones.
func (c *Config) TrialTable() pricing.TrialTable {
	if len(c.Trials) == 0 {
		return pricing.DefaultTrialTable()
	}
	return pricing.TrialTable(c.Trials)
}
