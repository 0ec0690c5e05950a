package asupersync

import (
	"github.com/Dicklesworthstone/asupersync/sched"
	"github.com/Dicklesworthstone/asupersync/trace"
)

// CreateChild creates a new region as a child of parent, admitted against
// bounds. It fails with ErrRegionClosed if parent is not Open, or with
// ErrGenerationMismatch if parent no longer exists.
func CreateChild(d *Driver, parent RegionID, bounds AdmissionBounds) (RegionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parentRec, ok := d.regions.get(parent.s)
	if !ok {
		return RegionID{}, ErrGenerationMismatch
	}

	rec := newRegionRecord(RegionID{}, parent, bounds, d.gauges)
	s := d.regions.insert(rec)
	rec.id = RegionID{s: s}

	if err := parentRec.admitChild(rec.id); err != nil {
		d.regions.remove(s)
		return RegionID{}, err
	}
	d.done[rec.id] = make(chan struct{})
	d.regionObligations[rec.id] = make(map[ObligationID]struct{})
	d.recordEvent(TaskID{}, rec.id, trace.KindRegionOpen, map[string]any{"parent": parent.String()})
	return rec.id, nil
}

// SetFinalizer attaches fn as region's finalizer (spec.md §3's finalizer
// slot): it runs exactly once, after region has drained every live task and
// child region it has, and before region is reported Closed. Calling it
// more than once on the same region replaces the previous finalizer. It
// fails with ErrGenerationMismatch if region no longer exists.
func SetFinalizer(d *Driver, region RegionID, fn RegionFinalizer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.regions.get(region.s)
	if !ok {
		return ErrGenerationMismatch
	}
	rec.setFinalizer(fn)
	return nil
}

// RegionOutcomeFor returns the aggregated RegionOutcome recorded when region
// reached Closed, and true if region has ever closed under this driver.
// Regions are removed from the arena once Closed (so a stale RegionID still
// correctly fails generation checks elsewhere), but their outcome survives
// here for as long as the Driver lives.
func (d *Driver) RegionOutcomeFor(region RegionID) (RegionOutcome, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.regionOutcomes[region]
	return o, ok
}

// Scope is the structured-concurrency entry point spec.md §6 names as the
// only surface a task author should need: it creates a child region under
// parent, runs fn against that region (fn typically Spawns tasks and/or
// nests further Scope calls into it), closes the region, blocks until every
// descendant has settled, and returns the region's aggregated RegionOutcome
// — the severity-maximum across every child task, every child region, and
// any finalizer SetFinalizer attached before fn returns.
func Scope(d *Driver, parent RegionID, bounds AdmissionBounds, fn func(region RegionID)) (RegionOutcome, error) {
	region, err := CreateChild(d, parent, bounds)
	if err != nil {
		return RegionOutcome{}, err
	}
	fn(region)
	if err := Complete(d, region, NewCancelReason(CancelUser, "scope complete")); err != nil {
		return RegionOutcome{}, err
	}
	outcome, _ := d.RegionOutcomeFor(region)
	return outcome, nil
}

// Spawn admits a new task into region and submits it to the scheduler's
// Normal lane. It returns the task's id and a channel that receives its
// single Outcome once the task settles. Spawn fails with ErrRegionClosed if
// region is not Open, or ErrAdmissionRejected if region's task bound would
// be exceeded.
func Spawn[T any](d *Driver, region RegionID, budget Budget, body func(cx *Cx) Outcome[T]) (TaskID, <-chan Outcome[T], error) {
	d.mu.Lock()
	regionRec, ok := d.regions.get(region.s)
	if !ok {
		_, closed := d.regionOutcomes[region]
		d.mu.Unlock()
		if closed {
			return TaskID{}, nil, ErrRegionClosed
		}
		return TaskID{}, nil, ErrGenerationMismatch
	}

	rec := newTaskRecord(TaskID{}, region, TaskID{}, budget)
	s := d.tasks.insert(rec)
	rec.id = TaskID{s: s}

	if err := regionRec.admitTask(rec.id); err != nil {
		d.tasks.remove(s)
		d.mu.Unlock()
		return TaskID{}, nil, err
	}
	d.mu.Unlock()

	d.recordEvent(rec.id, region, trace.KindSpawn, map[string]any{"budget": budget})

	result := make(chan Outcome[T], 1)
	cx := newCx(rec, d.traceSink(), d)
	d.sched.Submit(sched.Item{Lane: sched.LaneNormal, Run: func() {
		outcome := runTaskBody(rec, cx, body)
		result <- outcome
		close(result)
		kind := outcome.Kind()
		d.recordEvent(rec.id, region, trace.KindSettle, map[string]any{"kind": kind.String()})
		if kind == OutcomeCancelled {
			// The task settled by cooperative cancellation rather than
			// crashing out or racing finalizeTask: record that its body
			// actually observed the request (spec.md §4.4's TaskCancelling
			// rung) before handing it to the finalize sequence.
			AcknowledgeCancel(d, rec.id)
		}
		var aggErr error
		if kind == OutcomeErr || kind == OutcomePanicked {
			aggErr = outcome.AsError()
		}
		d.finalizeTask(rec.id, kind, aggErr)
	}})
	return rec.id, result, nil
}

// BeginClose moves region into its close sequence: it stops accepting new
// admissions, strengthens its recorded cancel reason, propagates
// cancellation to every live descendant task and region (cancel_protocol.go's
// requestCancelCascade), and advances to Draining. If region is already
// quiescent at that point, it proceeds straight through Finalizing to
// Closed in the same call.
func BeginClose(d *Driver, region RegionID, reason CancelReason) error {
	d.mu.Lock()
	rec, ok := d.regions.get(region.s)
	if !ok {
		d.mu.Unlock()
		return ErrGenerationMismatch
	}
	if rec.state == RegionOpen {
		rec.advance(RegionClosing)
	}
	rec.requestCancel(reason)
	d.mu.Unlock()

	requestCancelCascade(d, region, reason)

	d.mu.Lock()
	defer d.mu.Unlock()
	rec.advance(RegionDraining)
	d.advanceRegionIfQuiescent(region, rec)
	return nil
}

// AwaitQuiescent blocks the calling goroutine until region reaches Closed.
// It returns immediately if region has already closed (and so no longer
// has an entry in d.done).
func AwaitQuiescent(d *Driver, region RegionID) {
	d.mu.Lock()
	ch, ok := d.done[region]
	d.mu.Unlock()
	if !ok {
		return
	}
	<-ch
}

// finalizeTask runs the per-task finalize sequence for a task that settled
// with kind (and, for Err/Panicked, aggErr carrying its error): obligation
// drain-on-cancel, region bookkeeping, and (if this was the region's last
// live task or child) cascading the region itself toward Closed.
//
// spec.md §4.2 names two distinct obligation-finalize operations:
// drain_task_on_cancel (a clean, expected abort of whatever the task still
// held, because it unwound cooperatively) and leak_if_open_at_close (a bug
// signal, checked once at region close — see advanceRegionIfQuiescent).
// Only the first runs here; a task that settles Ok/Err/Panicked while still
// holding an obligation is not yet a leak; it only becomes one if that
// obligation is still Reserved when its *region* closes.
func (d *Driver) finalizeTask(id TaskID, kind OutcomeKind, aggErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.tasks.get(id.s)
	if !ok {
		return
	}
	rec.state = TaskFinalizing

	if kind == OutcomeCancelled {
		d.ledger.DrainOwner(id)
	}
	rec.state = TaskDone

	if regionRec, ok := d.regions.get(rec.region.s); ok {
		regionRec.noteChildOutcome(kind, aggErr)
		regionRec.removeTask(id)
		d.advanceRegionIfQuiescent(rec.region, regionRec)
	}
	d.tasks.remove(id.s)
}

// advanceRegionIfQuiescent moves rec from Draining through Finalizing to
// Closed once it has nothing left live beneath it: it runs the region's
// finalizer (if any), leak-checks every obligation ever reserved under the
// region via leak_if_open_at_close (spec.md §4.2 — the region-close-only
// counterpart to finalizeTask's drain-on-cancel), computes and stores the
// region's aggregated RegionOutcome, folds that outcome into the parent's
// own aggregation, closes its done channel, and recursively checks whether
// the parent has, in turn, become quiescent. Callers must hold d.mu.
func (d *Driver) advanceRegionIfQuiescent(id RegionID, rec *regionRecord) {
	if rec.state != RegionDraining || !rec.quiescent() {
		return
	}
	rec.advance(RegionFinalizing)
	rec.runFinalizer()

	if ids, ok := d.regionObligations[id]; ok {
		idList := make([]ObligationID, 0, len(ids))
		for oid := range ids {
			idList = append(idList, oid)
		}
		report := d.ledger.FinalizeIDs(idList)
		if report.Count > 0 {
			d.logger.ObligationLeak(TaskID{}, id, report.Count)
		}
		delete(d.regionObligations, id)
	}

	outcome := rec.aggregatedOutcome()
	d.regionOutcomes[id] = outcome
	rec.advance(RegionClosed)
	d.recordEvent(TaskID{}, id, trace.KindRegionClose, map[string]any{"live_count": float64(0), "outcome": outcome.Kind.String()})

	if ch, ok := d.done[id]; ok {
		close(ch)
		delete(d.done, id)
	}

	parent := rec.parent
	if parentRec, ok := d.regions.get(parent.s); ok {
		parentRec.noteChildOutcome(outcome.Kind, outcome.Err)
		parentRec.removeChild(id)
		d.advanceRegionIfQuiescent(parent, parentRec)
	}
	d.regions.remove(id.s)
}
