// Package pricing quotes subscription prices and computes proration, upgrade
// deltas, recurring periods and trial eligibility. The calculator holds no
// mutable state and is safe for concurrent use.
package pricing

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/shopspring/decimal"
)

// TrialHistory answers whether a user has ever bought a product.
type TrialHistory interface {
	HasPurchasedProduct(ctx context.Context, userID int64, productID string) (bool, error)
}

type Calculator struct {
	prices  PricingTable
	trials  TrialTable
	history TrialHistory
}

// NewCalculator copies both tables. A nil history makes every user eligible
// for products that have a trial.
func NewCalculator(prices PricingTable, trials TrialTable, history TrialHistory) *Calculator {
	return &Calculator{
		prices:  prices.Normalize(),
		trials:  trials.Normalize(),
		history: history,
	}
}

var (
	seven       = decimal.NewFromInt(7)
	twentyEight = decimal.NewFromInt(28)
	thirty      = decimal.NewFromInt(30)
	thirtyOne   = decimal.NewFromInt(31)
	four        = decimal.NewFromInt(4)
	daysPerYear = decimal.NewFromInt(365)
)

// CalculateSubscriptionPrice quotes a period by its length in days:
//
//	<= 7       monthly / 30 * days
//	<= 28      monthly / 4 * weeks
//	<= 31      monthly
//	== 365     yearly
//	<= 365     monthly * days / 30
//	>  365     yearly * days / 365
//
// The 29-31 day band is flat on purpose and 365 days is the only length
// billed at the plain yearly price.
func (c *Calculator) CalculateSubscriptionPrice(productID string, period domain.SubscriptionPeriod, currency string) (domain.Money, error) {
	price, ok := c.prices.Lookup(productID)
	if !ok {
		return domain.Money{}, domain.NewUnknownProductError(productID)
	}

	days := periodDays(period)
	var amount decimal.Decimal
	switch {
	case days.LessThanOrEqual(seven):
		amount = price.Monthly.Div(thirty).Mul(days)
	case days.LessThanOrEqual(twentyEight):
		amount = price.Monthly.Div(four).Mul(days.Div(seven))
	case days.LessThanOrEqual(thirtyOne):
		amount = price.Monthly
	case days.Equal(daysPerYear):
		amount = price.Yearly
	case days.LessThan(daysPerYear):
		amount = price.Monthly.Mul(days.Div(thirty))
	default:
		amount = price.Yearly.Mul(days.Div(daysPerYear))
	}

	m, err := domain.NewMoney(amount, currency)
	if err != nil {
		return domain.Money{}, err
	}
	return m.Round(2), nil
}

// CalculateProration charges the share of fullAmount that is left in the
// period from startDate on. Outside the period the full amount is due.
func (c *Calculator) CalculateProration(fullAmount domain.Money, fullPeriod domain.SubscriptionPeriod, startDate time.Time) (domain.Money, error) {
	if startDate.Before(fullPeriod.StartDate()) || startDate.After(fullPeriod.EndDate()) {
		return fullAmount, nil
	}
	remaining := fullPeriod.EndDate().Sub(startDate)
	if remaining <= 0 {
		return domain.ZeroMoney(fullAmount.Currency()), nil
	}
	prorated, err := fullAmount.Multiply(fraction(remaining, fullPeriod.TotalDuration()))
	if err != nil {
		return domain.Money{}, err
	}
	return prorated.Round(2), nil
}

// CalculateUpgradeAmount is what a customer owes to switch to newAmount at
// upgradeDate, crediting the unused part of currentAmount. Never negative.
func (c *Calculator) CalculateUpgradeAmount(currentAmount, newAmount domain.Money, currentPeriod domain.SubscriptionPeriod, upgradeDate time.Time) (domain.Money, error) {
	if !upgradeDate.After(currentPeriod.StartDate()) || !upgradeDate.Before(currentPeriod.EndDate()) {
		return newAmount, nil
	}
	if currentAmount.Currency() != newAmount.Currency() {
		return domain.Money{}, domain.NewCurrencyMismatchError(currentAmount.Currency(), newAmount.Currency())
	}

	f := fraction(currentPeriod.EndDate().Sub(upgradeDate), currentPeriod.TotalDuration())
	unused := currentAmount.Amount().Mul(f)
	newPortion := newAmount.Amount().Mul(f)

	delta := newPortion.Sub(unused).RoundBank(2)
	if delta.IsNegative() {
		delta = decimal.Zero
	}
	return domain.NewMoney(delta, newAmount.Currency())
}

// IsEligibleForTrial fails with ErrNoTrialAvailable for products without a
// trial. Otherwise a user is eligible until they have bought the product once.
func (c *Calculator) IsEligibleForTrial(ctx context.Context, userID int64, productID string) (bool, error) {
	if _, ok := c.trials.Lookup(productID); !ok {
		return false, domain.NewNoTrialAvailableError(productID)
	}
	if c.history == nil {
		return true, nil
	}
	purchased, err := c.history.HasPurchasedProduct(ctx, userID, normalizeProductID(productID))
	if err != nil {
		return false, fmt.Errorf("failed to check purchase history: %w", err)
	}
	return !purchased, nil
}

// TrialPeriod builds the Custom period a trial of productID covers.
func (c *Calculator) TrialPeriod(productID string, start time.Time) (domain.SubscriptionPeriod, error) {
	days, ok := c.trials.Lookup(productID)
	if !ok {
		return domain.SubscriptionPeriod{}, domain.NewNoTrialAvailableError(productID)
	}
	return domain.NewSubscriptionPeriodFromRange(start, start.AddDate(0, 0, days))
}

// RecurringPeriods lazily yields count adjacent periods of the given cadence,
// each starting where the previous one ended.
func (c *Calculator) RecurringPeriods(start time.Time, periodType domain.PeriodType, units, count int) iter.Seq2[domain.SubscriptionPeriod, error] {
	return func(yield func(domain.SubscriptionPeriod, error) bool) {
		next := start
		for range count {
			p, err := domain.NewSubscriptionPeriod(next, periodType, units)
			if !yield(p, err) || err != nil {
				return
			}
			next = p.EndDate()
		}
	}
}

// GenerateRecurringPeriods collects RecurringPeriods. A negative count is an error.
func (c *Calculator) GenerateRecurringPeriods(start time.Time, periodType domain.PeriodType, units, count int) ([]domain.SubscriptionPeriod, error) {
	if count < 0 {
		return nil, domain.NewInvalidRangeError("period count must not be negative")
	}
	periods := make([]domain.SubscriptionPeriod, 0, count)
	for p, err := range c.RecurringPeriods(start, periodType, units, count) {
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// GetRemainingDuration is the time left from max(now, start) to the end of
// the period, or zero once it has ended.
func (c *Calculator) GetRemainingDuration(period domain.SubscriptionPeriod, now time.Time) time.Duration {
	from := now
	if from.Before(period.StartDate()) {
		from = period.StartDate()
	}
	remaining := period.EndDate().Sub(from)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Calculator) ExtendSubscription(period domain.SubscriptionPeriod, additionalUnits int) (domain.SubscriptionPeriod, error) {
	return period.Extend(additionalUnits)
}

// periodDays counts calendar days in the start's zone, a started day counting
// as a whole one. A week is 7 days even when a DST switch makes it 167h or 169h.
func periodDays(p domain.SubscriptionPeriod) decimal.Decimal {
	start := p.StartDate()
	end := p.EndDate().In(start.Location())

	days := civilDate(end).Sub(civilDate(start)) / (24 * time.Hour)
	if clockOf(end) > clockOf(start) {
		days++
	}
	return decimal.NewFromInt(int64(days))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func fraction(part, whole time.Duration) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole)))
}
