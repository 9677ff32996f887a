package domain

import "time"

// Clock is injected wherever "now" affects a result (prorated refunds,
// trial windows, the stuck-processing sweep).
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always reports the same instant. Used in tests.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time {
	return f.At
}
