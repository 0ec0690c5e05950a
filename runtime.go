package asupersync

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/Dicklesworthstone/asupersync/clock"
	"github.com/Dicklesworthstone/asupersync/metrics"
	"github.com/Dicklesworthstone/asupersync/obligation"
	"github.com/Dicklesworthstone/asupersync/sched"
	"github.com/Dicklesworthstone/asupersync/trace"
)

// Driver is the runtime driver: it exclusively owns the task and region
// arenas and the obligation ledger, and wires the scheduler, reactor,
// clock, and logger together. It generalizes the teacher's workers.go
// struct (which owns one flat pool, one task channel, one results channel,
// and wires a dispatcher and a lifecycleCoordinator) from "one flat pool of
// tasks" to "an arena of regions, each owning an arena of tasks".
type Driver struct {
	mu sync.Mutex

	tasks         *arena[*taskRecord]
	regions       *arena[*regionRecord]
	obligationIDs *arena[struct{}]
	ledger        *obligation.Ledger[ObligationID, TaskID]

	sched   *sched.Scheduler
	reactor sched.Reactor
	clock   clock.Clock
	logger  *Logger
	metrics metrics.Provider
	gauges  regionGauges

	cfg  RuntimeConfig
	done map[RegionID]chan struct{}

	// regionObligations tracks, per region, every obligation id ever
	// reserved by one of its tasks — independent of the ledger's own
	// owner(=TaskID) keying, since a task routinely finishes (and leaves
	// the ledger's per-owner view behind) well before its region closes.
	// advanceRegionIfQuiescent leak-checks exactly this set, once, at
	// RegionFinalizing (spec.md §4.2's leak_if_open_at_close).
	regionObligations map[RegionID]map[ObligationID]struct{}
	// regionOutcomes holds each region's aggregated RegionOutcome, recorded
	// the instant it reaches Closed (region.go's regionRecord itself is
	// removed from the arena at that point, so this is the only place the
	// outcome survives for RegionOutcomeFor to return later).
	regionOutcomes map[RegionID]RegionOutcome

	recorder *trace.Recorder

	// cooperative mirrors sched.Options.Cooperative: when true, the
	// scheduler runs no background dispatch loop and Tick is the only way
	// work ever executes. Set via WithCooperativeScheduler, the mode a
	// lab.Driver uses to get a seed-reproducible dispatch order.
	cooperative bool

	closeOnce *closeSequence
}

// NewRuntime constructs a Driver from cfg and starts its scheduler.
func NewRuntime(cfg RuntimeConfig, opts ...runtimeOption) *Driver {
	d := &Driver{
		tasks:             newArena[*taskRecord](),
		regions:           newArena[*regionRecord](),
		obligationIDs:     newArena[struct{}](),
		ledger:            obligation.NewLedger[ObligationID, TaskID](),
		cfg:               cfg,
		done:              make(map[RegionID]chan struct{}),
		regionObligations: make(map[RegionID]map[ObligationID]struct{}),
		regionOutcomes:    make(map[RegionID]RegionOutcome),
		metrics:           metrics.NewNoopProvider(),
		logger:            NewDiscardLogger(),
	}
	for _, o := range opts {
		o(d)
	}
	d.gauges = newRegionGauges(d.metrics)
	if d.reactor == nil {
		d.reactor = sched.NewNative()
	}
	if d.clock == nil {
		switch cfg.TimeSource {
		case TimeSourceVirtual:
			d.clock = clock.NewVirtual()
		case TimeSourceBrowser:
			d.clock = clock.NewBrowserMonotonic()
		default:
			d.clock = clock.NewWall()
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	d.sched = sched.New(sched.Options{
		Workers:                  workers,
		BurstLimit:               cfg.Scheduler.BurstLimit,
		BrowserReadyHandoffLimit: cfg.Scheduler.BrowserReadyHandoffLimit,
		Metrics:                  d.metrics,
		Cooperative:              d.cooperative,
	})
	d.closeOnce = newCloseSequence(func() { d.sched.Close() })
	return d
}

// runtimeOption customizes a Driver at construction; unlike the public
// Option type (which only ever touches RuntimeConfig), these reach the
// driver's internal wiring (substituting the logger, metrics provider,
// reactor, or clock), mirroring how the teacher's internal wiring is
// exercised directly by its own tests without being part of Config.
type runtimeOption func(*Driver)

// WithLogger overrides the runtime's operator-facing Logger.
func WithLogger(l *Logger) runtimeOption { return func(d *Driver) { d.logger = l } }

// WithMetricsProvider overrides the runtime's metrics.Provider.
func WithMetricsProvider(p metrics.Provider) runtimeOption {
	return func(d *Driver) { d.metrics = p }
}

// WithReactorBackend overrides the runtime's sched.Reactor (used to install
// the lab or browser backend instead of the native stub).
func WithReactorBackend(r sched.Reactor) runtimeOption {
	return func(d *Driver) { d.reactor = r }
}

// WithClock overrides the runtime's clock.Clock (used to install a
// clock.Virtual explicitly rather than letting TimeSource pick a fresh
// one, e.g. to share one virtual clock with a lab.Runner).
func WithClock(c clock.Clock) runtimeOption { return func(d *Driver) { d.clock = c } }

// WithCooperativeScheduler builds the runtime's scheduler with no
// background dispatch goroutine: every submitted item waits in its lane
// until something calls Driver.Tick. This is the mode a lab.Driver installs
// to get a seed-reproducible dispatch order (SPEC_FULL.md §4.8) — a live,
// goroutine-driven dispatchLoop makes no scheduling-order guarantee a seed
// could ever reproduce bit-for-bit, cooperative mode does.
func WithCooperativeScheduler() runtimeOption {
	return func(d *Driver) { d.cooperative = true }
}

// Tick drains up to limit ready items from the scheduler synchronously,
// returning the number dispatched. It is meaningful only when the runtime
// was built with WithCooperativeScheduler; on a runtime with the default
// background dispatch loop it still works (sched.Scheduler.Tick competes
// with dispatchLoop for the same lanes) but is not the intended usage.
func (d *Driver) Tick(limit int) int {
	return d.sched.Tick(limit)
}

// WithTraceRecorder wires rec as the destination for every structured event
// this runtime's lifecycle operations and task Cx handles emit (spec.md
// §2's "every state transition emits a trace event carrying a monotone
// sequence number"). Without this option, a Driver's traceSink is a no-op,
// matching the teacher's position of reporting only through explicit
// Results/Errors channels rather than an always-on log.
func WithTraceRecorder(rec *trace.Recorder) runtimeOption {
	return func(d *Driver) { d.recorder = rec }
}

// Close stops the scheduler and releases runtime resources. Idempotent.
func (d *Driver) Close() { d.closeOnce.run() }

// CreateRootRegion creates a new top-level region with no parent.
func (d *Driver) CreateRootRegion(bounds AdmissionBounds) RegionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := newRegionRecord(RegionID{}, RegionID{}, bounds, d.gauges)
	s := d.regions.insert(rec)
	rec.id = RegionID{s: s}
	d.done[rec.id] = make(chan struct{})
	d.regionObligations[rec.id] = make(map[ObligationID]struct{})
	d.recordEvent(TaskID{}, rec.id, trace.KindRegionOpen, map[string]any{"parent": ""})
	return rec.id
}

// traceSink returns the TraceSink every Cx created by this driver reports
// to. With no trace.Recorder wired (the default), events are discarded —
// matching the teacher's position of reporting only through explicit
// Results/Errors channels rather than an always-on log.
func (d *Driver) traceSink() TraceSink {
	if d.recorder == nil {
		return noopTraceSink{}
	}
	return driverTraceSink{d: d}
}

// driverTraceSink adapts a Driver's optional trace.Recorder into the
// TraceSink interface Cx expects. Task-body-emitted events (via Cx.Trace)
// pass through verbatim; the driver's own lifecycle operations call
// recordEvent directly so they can also stamp a RegionID, which Cx.Trace's
// narrower signature has no way to supply.
type driverTraceSink struct{ d *Driver }

func (s driverTraceSink) TraceEvent(task TaskID, name string, fields map[string]any) {
	s.d.recordEvent(task, RegionID{}, trace.Kind(name), fields)
}

// recordEvent appends one lifecycle event to the wired trace.Recorder, if
// any, stamping it with the driver's clock reading. It is a no-op when no
// recorder is wired, so every call site below can fire unconditionally
// without a nil check.
func (d *Driver) recordEvent(task TaskID, region RegionID, kind trace.Kind, fields map[string]any) {
	if d.recorder == nil {
		return
	}
	evt := trace.Event{
		TimeNS: d.clock.Now(),
		Kind:   kind,
		Fields: fields,
	}
	if !task.IsZero() {
		evt.TaskID = task.String()
	}
	if !region.IsZero() {
		evt.RegionID = region.String()
	}
	_ = d.recorder.Record(evt)
}

// runTaskBody executes body under panic recovery, turning a recovered
// panic into an Outcome instead of crashing the scheduler's worker
// goroutine — generalized from the teacher's worker.go defer recover()
// guard into a generic free function, since Go methods cannot themselves
// be generic.
func runTaskBody[T any](rec *taskRecord, cx *Cx, body func(*Cx) Outcome[T]) (result Outcome[T]) {
	rec.state = TaskRunning
	defer func() {
		if r := recover(); r != nil {
			result = Panicked[T](r, debug.Stack())
		}
	}()
	if rec.cancelRequestedVisible() {
		return Cancelled[T](rec.reason)
	}
	return body(cx)
}
