package asupersync

// TraceSink receives structured trace events emitted by Cx.Trace. The
// runtime driver implements this by forwarding to trace.Recorder; tests
// implement it directly to assert on emitted events without a full runtime.
type TraceSink interface {
	TraceEvent(taskID TaskID, name string, fields map[string]any)
}

// noopTraceSink discards every event; used as Cx's zero-value sink so a
// Cx built outside a runtime (e.g. ForTesting) never needs a nil check.
type noopTraceSink struct{}

func (noopTraceSink) TraceEvent(TaskID, string, map[string]any) {}

// Cx is the capability context passed into every task body: the only
// handle a task has onto cancellation, cooperative suspension, budget
// masking, and tracing. A task must never reach around its Cx into the
// runtime driver directly, the same way the teacher's worker bodies only
// ever observe their own Context, never the dispatcher.
type Cx struct {
	task        *taskRecord
	sink        TraceSink
	obligations obligationRegistrar
}

// newCx builds a Cx bound to task, forwarding trace events to sink and
// obligation operations to registrar. A nil sink is replaced with a no-op
// so callers never need to nil-check.
func newCx(task *taskRecord, sink TraceSink, registrar obligationRegistrar) *Cx {
	if sink == nil {
		sink = noopTraceSink{}
	}
	return &Cx{task: task, sink: sink, obligations: registrar}
}

// CancelRequested reports whether this task's body should begin cooperative
// unwinding. It is false while inside a Masked guard even if a reason has
// been recorded; once the mask lifts, a recorded reason makes it true again.
func (c *Cx) CancelRequested() bool {
	return c.task.cancelRequestedVisible()
}

// Reason returns the strongest cancel reason recorded so far, regardless of
// masking. Masking hides CancelRequested, not the underlying reason: a task
// inspecting Reason directly (for diagnostics) still sees the truth.
func (c *Cx) Reason() CancelReason {
	return c.task.reason
}

// Budget returns the task's current budget view. While masked, a task still
// observes its true budget — masking only suppresses the *requested*
// signal, not the resource accounting itself.
func (c *Cx) Budget() Budget {
	return c.task.budget
}

// Checkpoint is the cooperative suspension point: task bodies call it
// between units of work. It decrements the poll quota by one and, if that
// empties the budget, records a CancelBudgetExhausted reason (spec.md §4.1:
// "also decrements poll quota and returns BudgetExhausted when empty"). It
// reports whether the task should continue (false) or stop and return
// promptly because cancellation is visible (true) — which now covers both
// an externally requested cancel and a self-inflicted budget exhaustion.
// Checkpoint never unwinds the task itself — the body is responsible for
// returning an Outcome reflecting c.Reason() once Checkpoint reports true.
func (c *Cx) Checkpoint() bool {
	c.accountBudget(c.task.budget.ConsumePoll())
	return c.CancelRequested()
}

// ConsumeCost charges n cost units (e.g. crypto work) against the task's
// budget, recording CancelBudgetExhausted the same way Checkpoint does if
// that exhausts it. It returns whether cancellation is now visible, exactly
// like Checkpoint, so a task body can call it inline: `if cx.ConsumeCost(n)
// { return ... }`.
func (c *Cx) ConsumeCost(n int64) bool {
	c.accountBudget(c.task.budget.ConsumeCost(n))
	return c.CancelRequested()
}

// accountBudget replaces the task's budget with next and, if next is now
// exhausted and no cancellation has been recorded yet, requests one with
// CancelBudgetExhausted. A budget that was already exhausted (or a task
// already cancelled for some stronger reason) is left alone: strengthen
// takes care of never downgrading an existing reason.
func (c *Cx) accountBudget(next Budget) {
	c.task.budget = next
	if next.Exhausted() {
		c.task.requestCancel(NewCancelReason(CancelBudgetExhausted, "budget exhausted at checkpoint"))
	}
}

// Masked runs fn with cancellation visibility suppressed: CancelRequested
// reports false for the duration of fn, even if a cancel reason is recorded
// or BudgetExhausted would otherwise be visible (SPEC_FULL.md §6 Open
// Question 1). The mask depth is restored via defer, so a panic inside fn
// still leaves the task's mask depth correct — this is the one piece of Cx
// that exists specifically because getting it wrong (a bare increment/
// decrement instead of a deferred guard) is the repro_cx_panic regression:
// a panic during a masked section must not leave the task permanently
// masked or permanently unmasked one level early.
func (c *Cx) Masked(fn func()) {
	c.task.maskDepth++
	defer func() { c.task.maskDepth-- }()
	fn()
}

// Trace emits a named structured event for this task, carrying fields, to
// the bound TraceSink (ultimately trace.Recorder in a live runtime).
func (c *Cx) Trace(name string, fields map[string]any) {
	c.sink.TraceEvent(c.task.id, name, fields)
}

// Reserve opens a new obligation owned by this task, labeled for
// diagnostics (the label is kept in the ledger's leak report if the
// obligation is still open when the owning region closes). It fails with
// ErrAdmissionRejected if the owning
// region's MaxObligations bound would be exceeded.
func (c *Cx) Reserve(label string) (ObligationID, error) {
	return c.obligations.reserveObligation(c.task.id, label)
}

// Commit resolves id as successfully handed off.
func (c *Cx) Commit(id ObligationID) error {
	return c.obligations.commitObligation(id)
}

// Abort resolves id as released without handoff.
func (c *Cx) Abort(id ObligationID) error {
	return c.obligations.abortObligation(id)
}

// ForTesting builds a standalone Cx over a synthetic task with the given
// budget, bound to sink (nil for discard). Its Reserve/Commit/Abort are
// backed by a private in-memory ledger rather than a runtime driver's, so
// leaks made in a test body never escape into another test. It is the
// supported way to unit test task bodies without standing up a runtime,
// matching spec.md §6's testing-seam requirement.
func ForTesting(budget Budget, sink TraceSink) *Cx {
	t := newTaskRecord(TaskID{}, RegionID{}, TaskID{}, budget)
	return newCx(t, sink, newStandaloneObligations())
}
