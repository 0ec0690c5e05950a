package asupersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelKindSeverityOrdering(t *testing.T) {
	assert.Less(t, CancelRaceLost, CancelUser)
	assert.Less(t, CancelUser, CancelTimeout)
	assert.Less(t, CancelTimeout, CancelShutdown)
}

func TestCancelReasonStrengthenKeepsStronger(t *testing.T) {
	weak := NewCancelReason(CancelRaceLost, "lost a race")
	strong := NewCancelReason(CancelShutdown, "shutting down")

	assert.Equal(t, strong, weak.Strengthen(strong))
	assert.Equal(t, strong, strong.Strengthen(weak))
}

func TestCancelReasonStrengthenIsIdempotentAtEqualSeverity(t *testing.T) {
	first := NewCancelReason(CancelUser, "first")
	second := NewCancelReason(CancelUser, "second")

	assert.Equal(t, first, first.Strengthen(second))
}

// TestCancelStrengtheningTightensBudget is the table-style regression test
// named by SPEC_FULL.md §5 (repro_cancel_strengthening): a later, stronger
// cancel reason must also tighten a task's observable budget, never widen
// it back out, no matter the order cancellations arrive in.
func TestCancelStrengtheningTightensBudget(t *testing.T) {
	rec := newTaskRecord(TaskID{}, RegionID{}, TaskID{}, Budget{PollQuota: 100, CostQuota: 100})

	rec.requestCancelTighten(NewCancelReason(CancelTimeout, "deadline"), Budget{PollQuota: 10, CostQuota: 10})

	rec.requestCancelTighten(NewCancelReason(CancelRaceLost, "lost a race"), Budget{PollQuota: 1000, CostQuota: 1000})

	assert.Equal(t, CancelTimeout, rec.reason.Kind)
	assert.Equal(t, Budget{PollQuota: 10, CostQuota: 10}, rec.budget)
}
