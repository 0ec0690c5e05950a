package asupersync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGauges() regionGauges { return newRegionGauges(nil) }

func TestRegionAdmitTaskRespectsBounds(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{MaxTasks: 1}, testGauges())

	require.NoError(t, rec.admitTask(TaskID{s: slot{index: 1, gen: 1}}))
	err := rec.admitTask(TaskID{s: slot{index: 2, gen: 1}})
	require.ErrorIs(t, err, ErrAdmissionRejected)
	assert.Equal(t, int64(1), rec.counters.rejectedTasks)
}

func TestRegionAdmitTaskRejectsWhenNotOpen(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	rec.advance(RegionClosing)

	err := rec.admitTask(TaskID{s: slot{index: 1, gen: 1}})
	require.ErrorIs(t, err, ErrRegionClosed)
}

func TestRegionObligationAdmissionRoundTrip(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{MaxObligations: 1}, testGauges())

	require.NoError(t, rec.admitObligation())
	require.ErrorIs(t, rec.admitObligation(), ErrAdmissionRejected)

	rec.releaseObligation()
	require.NoError(t, rec.admitObligation())
}

func TestRegionAdmitHeapRespectsBound(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{MaxHeapBytes: 100}, testGauges())

	require.NoError(t, rec.admitHeap(60))
	err := rec.admitHeap(60)
	require.ErrorIs(t, err, ErrAdmissionRejected)
}

func TestRegionQuiescentOnlyWhenEmpty(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	assert.True(t, rec.quiescent())

	taskID := TaskID{s: slot{index: 1, gen: 1}}
	require.NoError(t, rec.admitTask(taskID))
	assert.False(t, rec.quiescent())

	rec.removeTask(taskID)
	assert.True(t, rec.quiescent())
}

func TestRegionRequestCancelStrengthensReason(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())

	changed := rec.requestCancel(NewCancelReason(CancelTimeout, "deadline"))
	assert.True(t, changed)

	changed = rec.requestCancel(NewCancelReason(CancelRaceLost, "lost a race"))
	assert.False(t, changed)
	assert.Equal(t, CancelTimeout, rec.cancelReason.Kind)
}

func TestRegionFinalizerRunsOnceAndFoldsIntoAggregatedOutcome(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	rec.noteChildOutcome(OutcomeOk, nil)

	runs := 0
	rec.setFinalizer(func() error {
		runs++
		return errors.New("finalizer failed")
	})

	rec.runFinalizer()
	rec.runFinalizer() // a second call (shouldn't happen in practice) must not re-run the slot

	out := rec.aggregatedOutcome()
	assert.Equal(t, 1, runs)
	assert.Equal(t, OutcomeErr, out.Kind)
	require.Error(t, out.Err)
}

func TestRegionFinalizerPanicIsCapturedAsOutcome(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	rec.noteChildOutcome(OutcomeOk, nil)
	rec.setFinalizer(func() error { panic("boom") })

	rec.runFinalizer()

	out := rec.aggregatedOutcome()
	assert.Equal(t, OutcomePanicked, out.Kind)
	require.Error(t, out.Err)
}

func TestRegionAggregatedOutcomeTakesWorstChildSeverity(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	rec.noteChildOutcome(OutcomeOk, nil)
	rec.noteChildOutcome(OutcomeCancelled, nil)
	rec.noteChildOutcome(OutcomeErr, errors.New("child failed"))

	out := rec.aggregatedOutcome()
	assert.Equal(t, OutcomeErr, out.Kind)
	require.Error(t, out.Err)
}

func TestRegionChildAdmissionAndRemoval(t *testing.T) {
	rec := newRegionRecord(RegionID{}, RegionID{}, AdmissionBounds{}, testGauges())
	childID := RegionID{s: slot{index: 1, gen: 1}}

	require.NoError(t, rec.admitChild(childID))
	assert.False(t, rec.quiescent())

	rec.removeChild(childID)
	assert.True(t, rec.quiescent())
}
