package asupersync

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/Dicklesworthstone/asupersync/metrics"
)

// RegionState is a region's position in its close sequence. Every region
// starts Open and moves strictly forward; there is no path back to an
// earlier state.
type RegionState uint8

const (
	// RegionOpen accepts new child tasks and child regions.
	RegionOpen RegionState = iota
	// RegionClosing has stopped accepting new admissions and has requested
	// cancellation of everything still live beneath it.
	RegionClosing
	// RegionDraining is waiting for live tasks and child regions to settle.
	RegionDraining
	// RegionFinalizing is running obligation leak checks and parent
	// notification now that nothing beneath it is live.
	RegionFinalizing
	// RegionClosed is terminal.
	RegionClosed
)

func (s RegionState) String() string {
	switch s {
	case RegionOpen:
		return "open"
	case RegionClosing:
		return "closing"
	case RegionDraining:
		return "draining"
	case RegionFinalizing:
		return "finalizing"
	case RegionClosed:
		return "closed"
	default:
		return fmt.Sprintf("region_state(%d)", uint8(s))
	}
}

// AdmissionBounds caps how much a region may hold live at once. A zero
// field means unlimited for that dimension. Per SPEC_FULL.md §6 Open
// Question 2, exceeding a bound always rejects the admission; it never
// queues the caller.
type AdmissionBounds struct {
	MaxTasks       int
	MaxObligations int
	MaxHeapBytes   int64
}

// admissionCounters tracks both live usage and cumulative rejections
// against AdmissionBounds, the oracle-level visibility SPEC_FULL.md §5
// calls for (original_source/src/observability/resource_accounting.rs).
type admissionCounters struct {
	liveTasks       int
	liveObligations int
	heapBytes       int64

	rejectedTasks       int64
	rejectedObligations int64
	rejectedHeap        int64
}

// regionRecord is the runtime driver's internal representation of a region:
// a node in the structured-concurrency tree. Ownership of children is by
// arena index rather than the name-keyed map a plain supervisor tree might
// use, so stale references are caught by generation mismatch instead of a
// silent map-key collision.
type regionRecord struct {
	id     RegionID
	parent RegionID // zero value for the root region
	state  RegionState

	children map[RegionID]struct{}
	tasks    map[TaskID]struct{}

	bounds   AdmissionBounds
	counters admissionCounters

	cancelReason CancelReason
	cancelled    bool

	gauges regionGauges

	// finalizer runs exactly once, while the region is RegionFinalizing,
	// once it has become quiescent (spec.md §3's finalizer slot). Nil means
	// no finalizer was attached via SetFinalizer; that is not an error, most
	// regions never need one.
	finalizer RegionFinalizer

	// aggKind/aggErrs accumulate the severity-max outcome across every child
	// task and child region this region ever saw settle (noteChildOutcome),
	// independent of whether that child has already left the live set by the
	// time the region itself finalizes. finalizerErr/finalizerPanic* record
	// the finalizer's own contribution, folded in last by aggregatedOutcome
	// so a finalizer failure can only raise severity, never mask a child's.
	aggKind           OutcomeKind
	aggErrs           []error
	finalizerErr      error
	finalizerPanicked bool
	finalizerPanicVal any
}

// RegionFinalizer runs once a region has drained (every child task and child
// region settled) and before it is reported Closed. Its error, if non-nil,
// folds into the region's aggregated RegionOutcome the same way a child
// task's Err outcome does.
type RegionFinalizer func() error

// RegionOutcome is a region's aggregated settlement: the severity-maximum
// outcome kind across every child task, every child region, and the
// region's own finalizer (spec.md §4.3's Outcome<R, AggErr>). Err joins
// every non-nil error seen along the way via errors.Join, so a caller
// inspecting Err after a Panicked/Err aggregation can still recover every
// constituent failure, not just the most severe one.
type RegionOutcome struct {
	Kind OutcomeKind
	Err  error
}

// regionGauges holds the metrics instruments a region reports through,
// constructed once per runtime driver and shared across all regions it
// owns (one instrument each, with no per-region attributes, so every
// region adds to the same three totals).
type regionGauges struct {
	liveTasks    metrics.UpDownCounter
	liveChildren metrics.UpDownCounter
	rejections   metrics.Counter
}

func newRegionGauges(p metrics.Provider) regionGauges {
	if p == nil {
		p = metrics.NewNoopProvider()
	}
	return regionGauges{
		liveTasks:    p.UpDownCounter("asupersync.region.live_tasks", metrics.WithUnit("1")),
		liveChildren: p.UpDownCounter("asupersync.region.live_children", metrics.WithUnit("1")),
		rejections:   p.Counter("asupersync.region.admission_rejections", metrics.WithUnit("1")),
	}
}

func newRegionRecord(id, parent RegionID, bounds AdmissionBounds, gauges regionGauges) *regionRecord {
	return &regionRecord{
		id:       id,
		parent:   parent,
		state:    RegionOpen,
		children: make(map[RegionID]struct{}),
		tasks:    make(map[TaskID]struct{}),
		bounds:   bounds,
		gauges:   gauges,
	}
}

// admitTask reserves capacity for one more live task. It returns
// ErrRegionClosed if the region is not Open, or ErrAdmissionRejected (and
// records the rejection) if the task bound would be exceeded.
func (r *regionRecord) admitTask(id TaskID) error {
	if r.state != RegionOpen {
		return ErrRegionClosed
	}
	if r.bounds.MaxTasks > 0 && r.counters.liveTasks >= r.bounds.MaxTasks {
		r.counters.rejectedTasks++
		r.gauges.rejections.Add(1)
		return ErrAdmissionRejected
	}
	r.tasks[id] = struct{}{}
	r.counters.liveTasks++
	r.gauges.liveTasks.Add(1)
	return nil
}

// admitObligation mirrors admitTask for the obligation-count dimension of
// AdmissionBounds.
func (r *regionRecord) admitObligation() error {
	if r.state != RegionOpen {
		return ErrRegionClosed
	}
	if r.bounds.MaxObligations > 0 && r.counters.liveObligations >= r.bounds.MaxObligations {
		r.counters.rejectedObligations++
		r.gauges.rejections.Add(1)
		return ErrAdmissionRejected
	}
	r.counters.liveObligations++
	return nil
}

// releaseObligation gives back one unit of obligation capacity.
func (r *regionRecord) releaseObligation() {
	if r.counters.liveObligations > 0 {
		r.counters.liveObligations--
	}
}

// admitHeap mirrors admitTask for the heap-byte dimension.
func (r *regionRecord) admitHeap(n int64) error {
	if r.state != RegionOpen {
		return ErrRegionClosed
	}
	if r.bounds.MaxHeapBytes > 0 && r.counters.heapBytes+n > r.bounds.MaxHeapBytes {
		r.counters.rejectedHeap++
		r.gauges.rejections.Add(1)
		return ErrAdmissionRejected
	}
	r.counters.heapBytes += n
	return nil
}

// admitChild registers a child region, rejecting if this region is not
// Open (a region stops accepting new children the instant it leaves Open,
// same as it stops accepting new tasks).
func (r *regionRecord) admitChild(id RegionID) error {
	if r.state != RegionOpen {
		return ErrRegionClosed
	}
	r.children[id] = struct{}{}
	r.gauges.liveChildren.Add(1)
	return nil
}

// removeTask drops id from the live set, called once its taskRecord reaches
// TaskDone.
func (r *regionRecord) removeTask(id TaskID) {
	if _, ok := r.tasks[id]; ok {
		delete(r.tasks, id)
		r.counters.liveTasks--
		r.gauges.liveTasks.Add(-1)
	}
}

// removeChild drops id from the live set, called once the child region
// reaches RegionClosed.
func (r *regionRecord) removeChild(id RegionID) {
	if _, ok := r.children[id]; ok {
		delete(r.children, id)
		r.gauges.liveChildren.Add(-1)
	}
}

// quiescent reports whether nothing is left live beneath this region: the
// precondition for moving from RegionDraining to RegionFinalizing.
func (r *regionRecord) quiescent() bool {
	return len(r.tasks) == 0 && len(r.children) == 0
}

// requestCancel strengthens this region's recorded cancel reason, the
// region-level analogue of taskRecord.requestCancel; BFS propagation to
// descendants is driven by the cancel protocol (cancel_protocol.go), not by
// this method, so repeated calls from multiple ancestors stay idempotent
// and side-effect-free beyond the strengthen itself.
func (r *regionRecord) requestCancel(reason CancelReason) bool {
	before := r.cancelReason
	r.cancelReason = r.cancelReason.Strengthen(reason)
	r.cancelled = true
	return r.cancelReason.Kind != before.Kind
}

// advance moves the region to the next state in the close sequence. It is
// the only place regionState is ever assigned, matching taskRecord's
// single-writer discipline.
func (r *regionRecord) advance(next RegionState) {
	r.state = next
}

// setFinalizer attaches fn as this region's finalizer. Calling it more than
// once replaces the previous finalizer; Scope/CreateChild callers are
// expected to call it at most once, before the region can possibly reach
// RegionFinalizing.
func (r *regionRecord) setFinalizer(fn RegionFinalizer) {
	r.finalizer = fn
}

// noteChildOutcome folds one child task's or child region's settled outcome
// into this region's running aggregation. It is called as each child
// settles, not only at finalize time, since a region's last-living child may
// have settled long before the region itself becomes quiescent.
func (r *regionRecord) noteChildOutcome(kind OutcomeKind, err error) {
	if kind.severity() > r.aggKind.severity() {
		r.aggKind = kind
	}
	if err != nil {
		r.aggErrs = append(r.aggErrs, err)
	}
}

// runFinalizer invokes the region's finalizer, if any, under the same
// panic-recovery discipline runTaskBody applies to task bodies: a panicking
// finalizer becomes part of the region's aggregated outcome instead of
// crashing the caller. It is a no-op if no finalizer was attached.
func (r *regionRecord) runFinalizer() {
	fn := r.finalizer
	if fn == nil {
		return
	}
	r.finalizer = nil // the slot is single-use regardless of how many times a caller invokes this
	defer func() {
		if p := recover(); p != nil {
			r.finalizerPanicked = true
			r.finalizerPanicVal = p
			_ = debug.Stack()
		}
	}()
	r.finalizerErr = fn()
}

// aggregatedOutcome folds the finalizer's own result into the running
// child-outcome aggregation and returns the region's final RegionOutcome.
// A finalizer panic or error can only raise the aggregated severity, never
// lower it below whatever its children already contributed.
func (r *regionRecord) aggregatedOutcome() RegionOutcome {
	kind := r.aggKind
	errs := r.aggErrs
	switch {
	case r.finalizerPanicked:
		if OutcomePanicked.severity() > kind.severity() {
			kind = OutcomePanicked
		}
		errs = append(errs, fmt.Errorf("%s: region finalizer panicked: %v", Namespace, r.finalizerPanicVal))
	case r.finalizerErr != nil:
		if OutcomeErr.severity() > kind.severity() {
			kind = OutcomeErr
		}
		errs = append(errs, r.finalizerErr)
	}
	return RegionOutcome{Kind: kind, Err: errors.Join(errs...)}
}
