package asupersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCxCancelRequestedReflectsTask(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	assert.False(t, cx.CancelRequested())

	cx.task.requestCancel(NewCancelReason(CancelUser, "stop"))
	assert.True(t, cx.CancelRequested())
}

func TestCxMaskedSuppressesCancelRequested(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	cx.task.requestCancel(NewCancelReason(CancelUser, "stop"))
	require.True(t, cx.CancelRequested())

	cx.Masked(func() {
		assert.False(t, cx.CancelRequested())
	})
	assert.True(t, cx.CancelRequested())
}

// TestMaskRestoresDepthAfterPanic is the table-style regression test named
// by SPEC_FULL.md §5 (repro_cx_panic): a panic inside a Masked section must
// not leave the task permanently masked (if the guard's depth decrement
// never ran) or unmasked one level early (if it ran twice).
func TestMaskRestoresDepthAfterPanic(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	cx.task.requestCancel(NewCancelReason(CancelUser, "stop"))

	func() {
		defer func() { recover() }()
		cx.Masked(func() {
			panic("boom")
		})
	}()

	assert.Equal(t, 0, cx.task.maskDepth)
	assert.True(t, cx.CancelRequested())
}

func TestCxNestedMaskedRestoresOuterDepth(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	cx.task.requestCancel(NewCancelReason(CancelUser, "stop"))

	cx.Masked(func() {
		cx.Masked(func() {
			assert.False(t, cx.CancelRequested())
		})
		assert.False(t, cx.CancelRequested())
	})
	assert.True(t, cx.CancelRequested())
	assert.Equal(t, 0, cx.task.maskDepth)
}

func TestCxBudgetVisibleWhileMasked(t *testing.T) {
	cx := ForTesting(Budget{PollQuota: 3, CostQuota: 3}, nil)
	cx.Masked(func() {
		assert.Equal(t, Budget{PollQuota: 3, CostQuota: 3}, cx.Budget())
	})
}

func TestCxCheckpointMatchesCancelRequested(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	assert.False(t, cx.Checkpoint())
	cx.task.requestCancel(NewCancelReason(CancelUser, "stop"))
	assert.True(t, cx.Checkpoint())
}

func TestCxCheckpointConsumesPollQuotaAndReportsExhaustion(t *testing.T) {
	cx := ForTesting(Budget{PollQuota: 2, CostQuota: 10}, nil)
	assert.False(t, cx.Checkpoint())
	assert.Equal(t, int64(1), cx.Budget().PollQuota)
	assert.True(t, cx.Checkpoint())
	assert.Equal(t, int64(0), cx.Budget().PollQuota)

	assert.True(t, cx.Checkpoint())
	assert.Equal(t, CancelBudgetExhausted, cx.Reason().Kind)
}

func TestCxConsumeCostExhaustsCostQuota(t *testing.T) {
	cx := ForTesting(Budget{PollQuota: 100, CostQuota: 5}, nil)
	assert.True(t, cx.ConsumeCost(5))
	assert.True(t, cx.ConsumeCost(1))
	assert.Equal(t, CancelBudgetExhausted, cx.Reason().Kind)
}

func TestCxCheckpointExhaustionDoesNotOverrideStrongerReason(t *testing.T) {
	cx := ForTesting(Budget{PollQuota: 1, CostQuota: 1}, nil)
	cx.task.requestCancel(NewCancelReason(CancelShutdown, "stop"))
	cx.Checkpoint()
	assert.Equal(t, CancelShutdown, cx.Reason().Kind)
}

func TestCxCheckpointBudgetExhaustionHiddenWhileMasked(t *testing.T) {
	cx := ForTesting(Budget{PollQuota: 1, CostQuota: 1}, nil)
	cx.Checkpoint()
	cx.Masked(func() {
		assert.False(t, cx.Checkpoint())
	})
	assert.True(t, cx.Checkpoint())
}

func TestCxTraceForwardsToSink(t *testing.T) {
	var got []string
	sink := traceSinkFunc(func(taskID TaskID, name string, fields map[string]any) {
		got = append(got, name)
	})
	cx := ForTesting(Infinite(), sink)
	cx.Trace("spawned", map[string]any{"n": 1})
	require.Len(t, got, 1)
	assert.Equal(t, "spawned", got[0])
}

func TestCxReserveCommitRoundTrip(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	id, err := cx.Reserve("file handle")
	require.NoError(t, err)
	require.NoError(t, cx.Commit(id))
	assert.Error(t, cx.Commit(id), "double commit must be rejected")
}

func TestCxAbortReleasesObligation(t *testing.T) {
	cx := ForTesting(Infinite(), nil)
	id, err := cx.Reserve("socket")
	require.NoError(t, err)
	require.NoError(t, cx.Abort(id))
}

// traceSinkFunc adapts a plain function to TraceSink for test assertions.
type traceSinkFunc func(taskID TaskID, name string, fields map[string]any)

func (f traceSinkFunc) TraceEvent(taskID TaskID, name string, fields map[string]any) {
	f(taskID, name, fields)
}
