package asupersync

import (
	"fmt"
	"sync/atomic"
)

// TaskState is a task's position in its lifecycle state machine. Transitions
// only ever move forward through this list except for the Running <->
// Suspended oscillation that happens every time a task yields at a
// checkpoint and is later redispatched.
type TaskState uint8

const (
	// TaskReady means the task is admitted and queued for its first poll.
	TaskReady TaskState = iota
	// TaskRunning means a worker is currently executing the task's body.
	TaskRunning
	// TaskSuspended means the task yielded at a checkpoint and is waiting to
	// be redispatched (e.g. blocked on a channel, timer, or reactor event).
	TaskSuspended
	// TaskCancelRequested means a cancel reason has been recorded but the
	// task has not yet observed it at a checkpoint.
	TaskCancelRequested
	// TaskCancelling means the task observed the cancellation and is
	// unwinding its own body cooperatively.
	TaskCancelling
	// TaskFinalizing means the task's body has settled and it is being
	// removed from its region; a task that settled Cancelled has its open
	// obligations aborted at this point.
	TaskFinalizing
	// TaskDone is terminal: the task has an Outcome and has left its
	// region's live-task count.
	TaskDone
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskCancelRequested:
		return "cancel_requested"
	case TaskCancelling:
		return "cancelling"
	case TaskFinalizing:
		return "finalizing"
	case TaskDone:
		return "done"
	default:
		return fmt.Sprintf("task_state(%d)", uint8(s))
	}
}

// taskRecord is the runtime driver's internal representation of a spawned
// task. It is owned exclusively by the arena it lives in; all mutation goes
// through the runtime driver's single-writer methods, matching the
// teacher's convention (workers.go) of one struct owning all mutable state
// for a unit of work, accessed only through its own methods.
type taskRecord struct {
	id       TaskID
	region   RegionID
	parent   TaskID // zero value if this task is a region's root task
	state    TaskState
	budget   Budget
	cancelled  atomic.Bool
	reason   CancelReason
	// maskDepth counts active masked() guards; while > 0 the task's cx
	// reports cancel_requested() as false even if reason.Kind is set,
	// matching spec.md's masking semantics (BudgetExhausted is suppressed
	// too, per SPEC_FULL.md §6 Open Question 1).
	maskDepth int
	obligations map[ObligationID]struct{}
	// epoch names a scheduler epoch for this task. Nothing assigns or reads
	// it: the scheduler does not check epochs on dispatch.
	epoch EpochID
}

func newTaskRecord(id TaskID, region RegionID, parent TaskID, budget Budget) *taskRecord {
	return &taskRecord{
		id:          id,
		region:      region,
		parent:      parent,
		state:       TaskReady,
		budget:      budget,
		obligations: make(map[ObligationID]struct{}),
	}
}

// requestCancel records reason on the task, strengthening any existing
// reason rather than overwriting it, and advances the state machine to
// TaskCancelRequested if the task hasn't already settled. It returns true if
// this call changed the recorded reason's severity.
func (t *taskRecord) requestCancel(reason CancelReason) bool {
	before := t.reason
	t.reason = t.reason.Strengthen(reason)
	changed := t.reason.Kind != before.Kind
	t.cancelled.Store(true)
	if t.state == TaskReady || t.state == TaskRunning || t.state == TaskSuspended {
		t.state = TaskCancelRequested
	}
	return changed
}

// requestCancelTighten strengthens reason the same way requestCancel does,
// and — only when that strengthening actually changed the recorded
// severity — also tightens the task's budget to the smaller of its current
// budget and budget (spec.md §4.4: "the Cx's budget view is *also*
// tightened to the smaller of the two budgets", regression
// repro_cancel_strengthening). A reason that loses the strengthen leaves
// the budget untouched, so a later, weaker cancellation can never loosen an
// already-tightened budget back out.
func (t *taskRecord) requestCancelTighten(reason CancelReason, budget Budget) bool {
	changed := t.requestCancel(reason)
	if changed {
		t.budget = t.budget.Tighten(budget)
	}
	return changed
}

// cancelRequestedVisible reports whether the task should observe cancellation at
// its next checkpoint: a reason has been recorded, and the task is not
// currently inside a masked() guard.
func (t *taskRecord) cancelRequestedVisible() bool {
	return t.cancelled.Load() && t.maskDepth == 0
}

// addObligation registers id as owned by this task. This per-task set is
// bookkeeping only: drain-on-cancel and the leak check at region close work
// from the obligation ledger and the driver's per-region set instead.
func (t *taskRecord) addObligation(id ObligationID) {
	t.obligations[id] = struct{}{}
}

// removeObligation deregisters id, called once it has been Committed or
// Aborted.
func (t *taskRecord) removeObligation(id ObligationID) {
	delete(t.obligations, id)
}

// openObligations returns the obligation ids still owned by this task, in
// no particular order.
func (t *taskRecord) openObligations() []ObligationID {
	ids := make([]ObligationID, 0, len(t.obligations))
	for id := range t.obligations {
		ids = append(ids, id)
	}
	return ids
}
