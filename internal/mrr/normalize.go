// Package mrr normalizes billed subscription amounts into monthly-equivalent
// revenue figures. All amounts are integer minor currency units (cents).
package mrr

// Interval is a subscription billing interval.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Valid reports whether the interval is one the normalizer supports.
func (i Interval) Valid() bool {
	return i == IntervalMonth || i == IntervalYear
}

// Normalize converts a billed amount plus interval into a monthly-equivalent
// amount, rounding half up on the final division. Unsupported intervals and
// non-positive interval counts resolve to 0 so corrupt rows degrade metrics
// instead of failing aggregate reads; callers validate inputs before writes.
func Normalize(amount int64, interval Interval, intervalCount int) int64 {
	if amount <= 0 || intervalCount <= 0 {
		return 0
	}

	var divisor int64
	switch interval {
	case IntervalMonth:
		divisor = int64(intervalCount)
	case IntervalYear:
		divisor = int64(intervalCount) * 12
	default:
		return 0
	}

	return roundHalfUp(amount, divisor)
}

func roundHalfUp(amount, divisor int64) int64 {
	return (amount*2 + divisor) / (divisor * 2)
}
