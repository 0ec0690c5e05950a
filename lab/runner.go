package lab

import (
	"time"

	"github.com/Dicklesworthstone/asupersync/clock"
	"github.com/Dicklesworthstone/asupersync/trace"
	"github.com/google/uuid"
)

// Runner drives one deterministic simulation run: a virtual clock that only
// moves forward to the next scheduled event (never on its own), an event
// queue, a seeded RNG, and an optional fault injector. RunID is an external,
// human-facing identifier distinct from the runtime's internal TaskID/
// RegionID arena indices, minted via github.com/google/uuid as seen used
// for external identifiers elsewhere in the retrieved pack.
type Runner struct {
	RunID  string
	Clock  *clock.Virtual
	Queue  *EventQueue
	RNG    *RNG
	Faults *Injector

	steps int
}

// NewRunner builds a Runner for the given scenario.
func NewRunner(scenario Scenario) *Runner {
	return &Runner{
		RunID:  uuid.NewString(),
		Clock:  clock.NewVirtual(),
		Queue:  NewEventQueue(),
		RNG:    NewRNG(scenario.Seed),
		Faults: NewInjector(scenario.Faults),
	}
}

// Schedule enqueues handler to run after delay nanoseconds of virtual time
// from now.
func (r *Runner) Schedule(delayNS int64, handler func()) {
	r.Queue.Schedule(r.Clock.Now()+delayNS, handler)
}

// Step runs exactly one queued event: advances the virtual clock to that
// event's time (never further) and invokes its handler. It returns false
// if the queue was empty (the run is quiescent).
func (r *Runner) Step() bool {
	atNS, handler, ok := r.Queue.Pop()
	if !ok {
		return false
	}
	if atNS > r.Clock.Now() {
		r.Clock.Advance(time.Duration(atNS - r.Clock.Now()))
	}
	r.steps++
	handler()
	return true
}

// Run drives Step until the queue is quiescent (empty) or maxSteps have
// run, whichever comes first — a bound is always required so a bug that
// keeps rescheduling work can't spin the step loop forever. It returns the
// number of steps actually taken.
func (r *Runner) Run(maxSteps int) int {
	n := 0
	for n < maxSteps {
		if !r.Step() {
			break
		}
		n++
	}
	return n
}

// Steps reports how many events have been run so far.
func (r *Runner) Steps() int { return r.steps }

// TraceEvent implements asupersync.TraceSink-shaped callback support for
// callers who want simulation trace events recorded into a trace.Recorder
// stamped with this run's virtual time.
func (r *Runner) TraceEvent(rec *trace.Recorder, taskID, name string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["virtual_time_ns"] = r.Clock.Now()
	_ = rec.RecordNamed(taskID, name, fields)
}

