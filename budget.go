package asupersync

import "math"

// Time is a signed 64-bit nanosecond offset from a clock's origin. It is
// monotonic non-decreasing per source (clock.Clock); it is not wall-clock
// time unless the source is a clock.WallClock.
type Time int64

// Add returns t shifted by d nanoseconds.
func (t Time) Add(d int64) Time { return t + Time(d) }

// infiniteQuota marks a Budget field as INFINITE: absorbing under
// ConsumePoll/ConsumeCost, never decremented, never reported exhausted.
const infiniteQuota = math.MaxInt64

// Budget is a task's remaining poll and cost quotas. Arithmetic saturates
// at zero (never negative) and at math.MaxInt64 (never overflows past
// INFINITE). INFINITE is absorbing: combining it with any other budget via
// Tighten keeps whichever operand is NOT infinite, and Consume against an
// infinite quota is a no-op.
type Budget struct {
	PollQuota int64
	CostQuota int64
}

// Infinite returns a Budget with unlimited poll and cost quotas.
func Infinite() Budget {
	return Budget{PollQuota: infiniteQuota, CostQuota: infiniteQuota}
}

// IsInfinite reports whether b has no effective limit.
func (b Budget) IsInfinite() bool {
	return b.PollQuota >= infiniteQuota && b.CostQuota >= infiniteQuota
}

// Exhausted reports whether either quota has reached zero (and the budget
// is not infinite).
func (b Budget) Exhausted() bool {
	if b.IsInfinite() {
		return false
	}
	return b.PollQuota <= 0 || b.CostQuota <= 0
}

// ConsumePoll decrements the poll quota by one, saturating at zero. It is a
// no-op on an infinite budget.
func (b Budget) ConsumePoll() Budget {
	if b.PollQuota >= infiniteQuota {
		return b
	}
	if b.PollQuota > 0 {
		b.PollQuota--
	}
	return b
}

// ConsumeCost decrements the cost quota by n, saturating at zero. It is a
// no-op on an infinite budget. Negative n is ignored (cost is never
// refunded through ConsumeCost; budgets only ever shrink or are replaced).
func (b Budget) ConsumeCost(n int64) Budget {
	if b.CostQuota >= infiniteQuota || n <= 0 {
		return b
	}
	if n >= b.CostQuota {
		b.CostQuota = 0
	} else {
		b.CostQuota -= n
	}
	return b
}

// Tighten returns the smaller of b and other, field by field. It implements
// invariant I5: budget never rises except when replaced wholesale by
// Infinite. Used when cancel strengthening also tightens the observable
// budget (spec.md §4.4, regression repro_cancel_strengthening).
func (b Budget) Tighten(other Budget) Budget {
	return Budget{
		PollQuota: minQuota(b.PollQuota, other.PollQuota),
		CostQuota: minQuota(b.CostQuota, other.CostQuota),
	}
}

func minQuota(a, c int64) int64 {
	if a < c {
		return a
	}
	return c
}
