package domain

import (
	"math"
	"time"
)

// PeriodType is the renewal cadence of a subscription.
type PeriodType string

const (
	PeriodDaily   PeriodType = "DAILY"
	PeriodWeekly  PeriodType = "WEEKLY"
	PeriodMonthly PeriodType = "MONTHLY"
	PeriodYearly  PeriodType = "YEARLY"
	PeriodCustom  PeriodType = "CUSTOM"
)

func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// SubscriptionPeriod is an immutable time window. EndDate is always strictly
// after StartDate.
type SubscriptionPeriod struct {
	startDate     time.Time
	endDate       time.Time
	periodType    PeriodType
	durationUnits int
}

// NewSubscriptionPeriod derives the end date from the cadence. Custom
// periods count their units as days.
func NewSubscriptionPeriod(start time.Time, periodType PeriodType, units int) (SubscriptionPeriod, error) {
	if !periodType.IsValid() {
		return SubscriptionPeriod{}, ErrInvalidPeriodType
	}
	if units <= 0 {
		return SubscriptionPeriod{}, NewInvalidRangeError("duration units must be positive")
	}
	return SubscriptionPeriod{
		startDate:     start,
		endDate:       advance(start, periodType, units),
		periodType:    periodType,
		durationUnits: units,
	}, nil
}

func Daily(start time.Time, days int) (SubscriptionPeriod, error) {
	return NewSubscriptionPeriod(start, PeriodDaily, days)
}

func Weekly(start time.Time, weeks int) (SubscriptionPeriod, error) {
	return NewSubscriptionPeriod(start, PeriodWeekly, weeks)
}

func Monthly(start time.Time, months int) (SubscriptionPeriod, error) {
	return NewSubscriptionPeriod(start, PeriodMonthly, months)
}

func Yearly(start time.Time, years int) (SubscriptionPeriod, error) {
	return NewSubscriptionPeriod(start, PeriodYearly, years)
}

// NewSubscriptionPeriodFromRange builds a Custom period from explicit dates.
// A partial trailing day counts as a whole day.
func NewSubscriptionPeriodFromRange(start, end time.Time) (SubscriptionPeriod, error) {
	if !end.After(start) {
		return SubscriptionPeriod{}, NewInvalidRangeError("end date must be after start date")
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	return SubscriptionPeriod{
		startDate:     start,
		endDate:       end,
		periodType:    PeriodCustom,
		durationUnits: days,
	}, nil
}

// ReconstitutePeriod rebuilds a stored period without recomputing the end date.
func ReconstitutePeriod(start, end time.Time, periodType PeriodType, units int) SubscriptionPeriod {
	return SubscriptionPeriod{startDate: start, endDate: end, periodType: periodType, durationUnits: units}
}

func (p SubscriptionPeriod) StartDate() time.Time { return p.startDate }
func (p SubscriptionPeriod) EndDate() time.Time   { return p.endDate }
func (p SubscriptionPeriod) Type() PeriodType     { return p.periodType }
func (p SubscriptionPeriod) DurationUnits() int   { return p.durationUnits }

func (p SubscriptionPeriod) TotalDuration() time.Duration {
	return p.endDate.Sub(p.startDate)
}

// TotalDays is the length of the period in (possibly fractional) days.
func (p SubscriptionPeriod) TotalDays() float64 {
	return p.TotalDuration().Hours() / 24
}

func (p SubscriptionPeriod) IsActive(now time.Time) bool {
	return !now.Before(p.startDate) && !now.After(p.endDate)
}

func (p SubscriptionPeriod) IsExpired(now time.Time) bool {
	return now.After(p.endDate)
}

func (p SubscriptionPeriod) IsUpcoming(now time.Time) bool {
	return now.Before(p.startDate)
}

// RemainingTime is zero unless the period is active.
func (p SubscriptionPeriod) RemainingTime(now time.Time) time.Duration {
	if !p.IsActive(now) {
		return 0
	}
	return p.endDate.Sub(now)
}

// Extend returns a period with the same start and cadence and a longer duration.
func (p SubscriptionPeriod) Extend(additionalUnits int) (SubscriptionPeriod, error) {
	if additionalUnits <= 0 {
		return SubscriptionPeriod{}, NewInvalidRangeError("additional units must be positive")
	}
	return NewSubscriptionPeriod(p.startDate, p.periodType, p.durationUnits+additionalUnits)
}

func (p SubscriptionPeriod) Equal(other SubscriptionPeriod) bool {
	return p.startDate.Equal(other.startDate) &&
		p.endDate.Equal(other.endDate) &&
		p.periodType == other.periodType &&
		p.durationUnits == other.durationUnits
}

func advance(start time.Time, periodType PeriodType, units int) time.Time {
	switch periodType {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7*units)
	case PeriodMonthly:
		return addMonths(start, units)
	case PeriodYearly:
		return addMonths(start, 12*units)
	default:
		return start.AddDate(0, 0, units)
	}
}

// addMonths clamps to the last day of the target month instead of letting
// time.AddDate overflow into the next one (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
