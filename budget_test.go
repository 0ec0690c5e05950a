package asupersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetInfiniteNeverExhausts(t *testing.T) {
	b := Infinite()
	assert.True(t, b.IsInfinite())
	assert.False(t, b.Exhausted())

	for i := 0; i < 3; i++ {
		b = b.ConsumePoll()
		b = b.ConsumeCost(1000)
	}
	assert.True(t, b.IsInfinite())
	assert.False(t, b.Exhausted())
}

func TestBudgetConsumePollSaturatesAtZero(t *testing.T) {
	b := Budget{PollQuota: 1, CostQuota: 10}
	b = b.ConsumePoll()
	assert.Equal(t, int64(0), b.PollQuota)
	assert.True(t, b.Exhausted())

	b = b.ConsumePoll()
	assert.Equal(t, int64(0), b.PollQuota)
}

func TestBudgetConsumeCostSaturatesAtZero(t *testing.T) {
	b := Budget{PollQuota: 10, CostQuota: 5}
	b = b.ConsumeCost(100)
	assert.Equal(t, int64(0), b.CostQuota)
	assert.True(t, b.Exhausted())
}

func TestBudgetConsumeCostIgnoresNonPositive(t *testing.T) {
	b := Budget{PollQuota: 10, CostQuota: 5}
	b = b.ConsumeCost(0)
	assert.Equal(t, int64(5), b.CostQuota)
	b = b.ConsumeCost(-5)
	assert.Equal(t, int64(5), b.CostQuota)
}

func TestBudgetTightenNeverRises(t *testing.T) {
	wide := Budget{PollQuota: 100, CostQuota: 100}
	narrow := Budget{PollQuota: 10, CostQuota: 50}

	got := wide.Tighten(narrow)
	assert.Equal(t, narrow, got)

	// Tightening again with something wider must not widen it back out.
	got = got.Tighten(wide)
	assert.Equal(t, narrow, got)
}

func TestBudgetTightenAgainstInfiniteKeepsFiniteOperand(t *testing.T) {
	finite := Budget{PollQuota: 10, CostQuota: 10}
	got := finite.Tighten(Infinite())
	assert.Equal(t, finite, got)
}
