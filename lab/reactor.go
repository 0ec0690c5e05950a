package lab

import "github.com/Dicklesworthstone/asupersync/sched"

// Reactor adapts a Runner into sched.Reactor. A deterministic simulation has
// no real file descriptor behind a registration, so readiness here is never
// discovered by polling a platform backend — it is driven entirely by the
// Runner's own event queue (Schedule/Step/Run). Wiring this rather than
// sched.Native into a lab-mode runtime keeps the reactor seam honest about
// what simulation mode actually does: nothing outside the event queue ever
// makes a registered source ready, and Poll reflects that by never blocking
// past whatever the caller already knows (Wake still unblocks promptly, the
// one behavior sched.Native already gets right).
type Reactor struct {
	runner *Runner
	next   uint64
	wake   chan struct{}
}

// NewReactor builds a Reactor bound to runner.
func NewReactor(runner *Runner) *Reactor {
	return &Reactor{runner: runner, wake: make(chan struct{}, 1)}
}

func (r *Reactor) Register(_ int, _ sched.InterestKind) (sched.Token, error) {
	r.next++
	return sched.Token(r.next), nil
}

func (r *Reactor) Modify(_ sched.Token, _ sched.InterestKind) error { return nil }

func (r *Reactor) Deregister(_ sched.Token) error { return nil }

// Poll never reports readiness on its own — the Runner's Step/Run loop is
// the only thing that advances a lab-mode simulation. It drains a pending
// Wake (if any) and returns immediately either way, so a caller looping on
// Poll never stalls waiting for I/O that cannot occur.
func (r *Reactor) Poll(_ int, out []sched.ReadyEvent) ([]sched.ReadyEvent, error) {
	select {
	case <-r.wake:
	default:
	}
	return out, nil
}

func (r *Reactor) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
