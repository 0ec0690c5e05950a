package asupersync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCancelStrengthensSingleTask(t *testing.T) {
	d := newTestRuntime(t)
	root := d.CreateRootRegion(AdmissionBounds{})

	started := make(chan struct{})
	release := make(chan struct{})
	taskID, results, err := Spawn(d, root, Infinite(), func(cx *Cx) Outcome[int] {
		close(started)
		<-release
		if cx.CancelRequested() {
			return Cancelled[int](cx.Reason())
		}
		return Ok(1)
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, RequestCancel(d, taskID, NewCancelReason(CancelUser, "targeted")))
	close(release)

	o := <-results
	assert.Equal(t, OutcomeCancelled, o.Kind())
	assert.Equal(t, CancelUser, o.CancelReason().Kind)
}

func TestRequestCancelOnUnknownTaskFails(t *testing.T) {
	d := newTestRuntime(t)
	err := RequestCancel(d, TaskID{s: slot{index: 7, gen: 1}}, NewCancelReason(CancelUser, "x"))
	require.ErrorIs(t, err, ErrGenerationMismatch)
}

func TestAcknowledgeCancelTransitionsCancelling(t *testing.T) {
	d := newTestRuntime(t)
	root := d.CreateRootRegion(AdmissionBounds{})

	started := make(chan struct{})
	release := make(chan struct{})
	taskID, results, err := Spawn(d, root, Infinite(), func(cx *Cx) Outcome[int] {
		close(started)
		<-release
		return Ok(1)
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, RequestCancel(d, taskID, NewCancelReason(CancelUser, "x")))
	AcknowledgeCancel(d, taskID)

	d.mu.Lock()
	rec, ok := d.tasks.get(taskID.s)
	d.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, TaskCancelling, rec.state)

	close(release)
	<-results
}

func TestCascadeReachesTasksInNestedChildRegions(t *testing.T) {
	d := newTestRuntime(t)
	root := d.CreateRootRegion(AdmissionBounds{})
	child, err := CreateChild(d, root, AdmissionBounds{})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	_, results, err := Spawn(d, child, Infinite(), func(cx *Cx) Outcome[int] {
		close(started)
		<-release
		if cx.CancelRequested() {
			return Cancelled[int](cx.Reason())
		}
		return Ok(1)
	})
	require.NoError(t, err)
	<-started

	done := make(chan error, 1)
	go func() { done <- Complete(d, root, NewCancelReason(CancelTimeout, "deadline")) }()

	time.Sleep(50 * time.Millisecond)
	close(release)

	o := <-results
	assert.Equal(t, OutcomeCancelled, o.Kind())
	assert.Equal(t, CancelTimeout, o.CancelReason().Kind)
	require.NoError(t, <-done)
}
