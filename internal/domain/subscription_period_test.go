package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan1 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestNewSubscriptionPeriod(t *testing.T) {
	tests := []struct {
		name  string
		build func() (domain.SubscriptionPeriod, error)
		end   time.Time
	}{
		{"daily", func() (domain.SubscriptionPeriod, error) { return domain.Daily(jan1, 10) }, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)},
		{"weekly", func() (domain.SubscriptionPeriod, error) { return domain.Weekly(jan1, 2) }, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"monthly", func() (domain.SubscriptionPeriod, error) { return domain.Monthly(jan1, 1) }, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"yearly", func() (domain.SubscriptionPeriod, error) { return domain.Yearly(jan1, 1) }, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()

			require.NoError(t, err)
			assert.Equal(t, jan1, p.StartDate())
			assert.Equal(t, tt.end, p.EndDate())
		})
	}
}

func TestNewSubscriptionPeriod_MonthEndClamps(t *testing.T) {
	p, err := domain.Monthly(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), 1)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), p.EndDate())
}

func TestNewSubscriptionPeriod_Invalid(t *testing.T) {
	_, err := domain.Monthly(jan1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = domain.NewSubscriptionPeriod(jan1, "HOURLY", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriodType)

	_, err = domain.NewSubscriptionPeriodFromRange(jan1, jan1)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestNewSubscriptionPeriodFromRange(t *testing.T) {
	p, err := domain.NewSubscriptionPeriodFromRange(jan1, jan1.Add(36*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, domain.PeriodCustom, p.Type())
	assert.Equal(t, 2, p.DurationUnits())
	assert.InDelta(t, 1.5, p.TotalDays(), 1e-9)
}

func TestSubscriptionPeriod_ActiveWindow(t *testing.T) {
	p, err := domain.Daily(jan1, 10)
	require.NoError(t, err)

	assert.True(t, p.IsUpcoming(jan1.Add(-time.Second)))
	assert.True(t, p.IsActive(jan1))
	assert.True(t, p.IsActive(p.EndDate()))
	assert.False(t, p.IsExpired(p.EndDate()))
	assert.True(t, p.IsExpired(p.EndDate().Add(time.Second)))

	assert.Equal(t, 5*24*time.Hour, p.RemainingTime(jan1.AddDate(0, 0, 5)))
	assert.Zero(t, p.RemainingTime(p.EndDate().Add(time.Hour)))
	assert.Zero(t, p.RemainingTime(jan1.Add(-time.Hour)))
}

func TestSubscriptionPeriod_Extend(t *testing.T) {
	p, err := domain.Monthly(jan1, 1)
	require.NoError(t, err)

	extended, err := p.Extend(2)

	require.NoError(t, err)
	assert.Equal(t, 3, extended.DurationUnits())
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), extended.EndDate())
	assert.Equal(t, 1, p.DurationUnits())

	_, err = p.Extend(0)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
