package asupersync

import "github.com/Dicklesworthstone/asupersync/trace"

// RequestCancel strengthens a single task's cancel reason without closing
// its region. The task observes the request the next time its Cx reports
// CancelRequested (at its next Checkpoint, modulo masking).
func RequestCancel(d *Driver, task TaskID, reason CancelReason) error {
	d.mu.Lock()
	rec, ok := d.tasks.get(task.s)
	if !ok {
		d.mu.Unlock()
		return ErrGenerationMismatch
	}
	region := rec.region
	rec.requestCancel(reason)
	d.mu.Unlock()
	d.recordEvent(task, region, trace.KindCancelRequest, map[string]any{"kind": reason.Kind.String()})
	return nil
}

// RequestCancelWithBudget is RequestCancel plus budget tightening: when
// reason actually strengthens the task's recorded severity, its budget is
// also tightened to the smaller of its current budget and budget (spec.md
// §4.4, regression repro_cancel_strengthening). Use this at cancellation
// sites that carry their own budget policy — e.g. a timeout enforcing a
// tighter poll quota on the tasks it cancels; plain RequestCancel is for
// sites with no budget opinion of their own.
func RequestCancelWithBudget(d *Driver, task TaskID, reason CancelReason, budget Budget) error {
	d.mu.Lock()
	rec, ok := d.tasks.get(task.s)
	if !ok {
		d.mu.Unlock()
		return ErrGenerationMismatch
	}
	region := rec.region
	rec.requestCancelTighten(reason, budget)
	d.mu.Unlock()
	d.recordEvent(task, region, trace.KindCancelRequest, map[string]any{"kind": reason.Kind.String()})
	return nil
}

// requestCancelCascade propagates reason from root to every region and
// task beneath it (root's own task set is included; root's own region
// record was already strengthened and advanced to Draining by the caller,
// e.g. BeginClose, so this walk only re-strengthens descendant regions, not
// root itself twice). Every descendant region is also driven into its own
// close sequence here (Open/Closing -> Draining) — a region otherwise never
// leaves Open on its own, so without this a region nested beneath the one
// BeginClose was called on would never reach Closed, and its ancestor would
// never observe quiescence. A descendant already quiescent at this point
// (no live tasks, no live children of its own) closes immediately; one
// still running tasks closes later, the ordinary way, as each of its tasks
// settles and finalizeTask rechecks quiescence. The walk is breadth-first
// over the region tree via a plain slice-backed queue — container/list is
// unnecessary at the scale a process-local region tree reaches.
func requestCancelCascade(d *Driver, root RegionID, reason CancelReason) {
	queue := []RegionID{root}
	for len(queue) > 0 {
		regionID := queue[0]
		queue = queue[1:]

		d.mu.Lock()
		rec, ok := d.regions.get(regionID.s)
		if !ok {
			d.mu.Unlock()
			continue
		}
		if regionID != root {
			rec.requestCancel(reason)
			if rec.state == RegionOpen {
				rec.advance(RegionClosing)
			}
			if rec.state == RegionClosing {
				rec.advance(RegionDraining)
			}
		}
		var cancelledTasks []TaskID
		for taskID := range rec.tasks {
			if taskRec, ok := d.tasks.get(taskID.s); ok {
				taskRec.requestCancel(reason)
				cancelledTasks = append(cancelledTasks, taskID)
			}
		}
		for childID := range rec.children {
			queue = append(queue, childID)
		}
		if regionID != root {
			d.advanceRegionIfQuiescent(regionID, rec)
		}
		d.mu.Unlock()

		for _, taskID := range cancelledTasks {
			d.recordEvent(taskID, regionID, trace.KindCancelRequest, map[string]any{"kind": reason.Kind.String()})
		}
	}
}

// AcknowledgeCancel transitions a task from TaskCancelRequested into
// TaskCancelling, recording that its body has observed the request and
// begun cooperative unwinding. Spawn's dispatch closure calls this after the
// task body has returned a Cancelled Outcome, before finalizing the task;
// it is a no-op if the task was not in TaskCancelRequested at that point.
func AcknowledgeCancel(d *Driver, task TaskID) {
	d.mu.Lock()
	rec, ok := d.tasks.get(task.s)
	if !ok {
		d.mu.Unlock()
		return
	}
	acked := rec.state == TaskCancelRequested
	if acked {
		rec.state = TaskCancelling
	}
	region := rec.region
	d.mu.Unlock()
	if acked {
		d.recordEvent(task, region, trace.KindCancelAck, nil)
	}
}

// Complete is the combined "close and wait" entry point: it calls
// BeginClose and then blocks until region is fully Closed.
func Complete(d *Driver, region RegionID, reason CancelReason) error {
	if err := BeginClose(d, region, reason); err != nil {
		return err
	}
	AwaitQuiescent(d, region)
	return nil
}
