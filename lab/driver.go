package lab

import (
	"github.com/Dicklesworthstone/asupersync"
	"github.com/Dicklesworthstone/asupersync/trace"
)

// Driver binds a Runner's virtual clock and event queue to a cooperative
// asupersync.Driver: the two sources of nondeterminism a live runtime has —
// goroutine dispatch order and wall-clock timing — are replaced by a single
// Tick-driven scheduler and a clock that only advances to the next
// scheduled event. The same Scenario (same seed) run twice through a Driver
// produces the same dispatch order and the same recorded trace, bit for
// bit (spec.md §8 S5, SPEC_FULL.md §4.8).
type Driver struct {
	Runner *Runner
	Core   *asupersync.Driver
}

// NewDriver builds a Driver for scenario: a cooperative asupersync.Driver
// sharing the Runner's virtual clock and fronted by a lab Reactor, so any
// code spawned through it observes the same virtual time the event queue
// is driving and the same reactor seam a production runtime would reach
// for. rec, if non-nil, receives every lifecycle trace event the runtime
// emits — the same wiring WithTraceRecorder gives a live runtime — so two
// Drivers built from the same Scenario can have their recorded traces
// compared for bit-for-bit replay equivalence.
func NewDriver(scenario Scenario, rec *trace.Recorder) *Driver {
	runner := NewRunner(scenario)
	cfg := asupersync.NewRuntimeConfig(
		asupersync.WithReactor(asupersync.ReactorLab),
		asupersync.WithTimeSource(asupersync.TimeSourceVirtual),
	)
	core := asupersync.NewRuntime(cfg,
		asupersync.WithClock(runner.Clock),
		asupersync.WithCooperativeScheduler(),
		asupersync.WithReactorBackend(NewReactor(runner)),
		asupersync.WithTraceRecorder(rec),
		asupersync.WithLogger(asupersync.NewDiscardLogger()),
	)
	return &Driver{Runner: runner, Core: core}
}

// Drain alternates draining every currently-ready scheduler item and
// stepping the event queue forward one event, until both are quiescent or
// maxSteps total steps (scheduler dispatches plus event-queue pops) have
// run, whichever comes first. It returns the number of steps actually
// taken.
//
// Draining the scheduler fully before advancing the event queue is what
// gives this its ordering guarantee: a cooperative scheduler has exactly
// one goroutine driving Tick, so every task Spawn'd before this call (in
// ascending TaskID order, since TaskID is assigned in Spawn call order)
// dispatches in that same ascending order with nothing else interleaved —
// the "smallest ready id" tie-break spec.md §4.8 asks for falls out of
// the architecture directly, with no separate reordering buffer needed.
func (d *Driver) Drain(maxSteps int) int {
	n := 0
	for n < maxSteps {
		if ticked := d.Core.Tick(maxSteps - n); ticked > 0 {
			n += ticked
			continue
		}
		if !d.Runner.Step() {
			break
		}
		n++
	}
	return n
}

// Close releases the underlying runtime driver's resources. Idempotent.
func (d *Driver) Close() { d.Core.Close() }
