// Package clock supplies the runtime's time source abstraction: a single
// Clock interface behind which a real wall clock, a deterministic virtual
// clock (used by the lab runtime), or a browser-style monotonic clock can
// be swapped in. The teacher has no time abstraction of its own; this
// follows the "one interface, multiple backends" shape used throughout the
// rest of the retrieved pack's scheduler-shaped code.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time and lets callers wait for a duration to
// elapse, without committing to wall-clock semantics.
type Clock interface {
	// Now returns the current time as nanoseconds since the clock's origin.
	Now() int64
	// Sleep blocks the calling goroutine until d has elapsed on this clock.
	Sleep(d time.Duration)
	// After returns a channel that receives once after d has elapsed on
	// this clock.
	After(d time.Duration) <-chan time.Time
}

// Wall is a Clock backed by the real operating system clock.
type Wall struct {
	origin time.Time
}

// NewWall constructs a Wall clock whose origin is the moment of
// construction, so Now() values are stable small offsets rather than raw
// Unix nanoseconds.
func NewWall() *Wall {
	return &Wall{origin: time.Now()}
}

func (w *Wall) Now() int64 { return int64(time.Since(w.origin)) }

func (w *Wall) Sleep(d time.Duration) { time.Sleep(d) }

func (w *Wall) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Virtual is a Clock that only advances when explicitly told to: the
// deterministic time source the lab runtime drives forward on quiescence
// (spec.md §4.8) instead of on wall-clock elapse. Sleep/After never resolve
// on their own — Advance must be called by the lab step loop.
type Virtual struct {
	mu      sync.Mutex
	now     int64
	waiters []virtualWaiter
}

type virtualWaiter struct {
	deadline int64
	ch       chan time.Time
}

// NewVirtual constructs a Virtual clock starting at time zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

func (v *Virtual) Now() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance moves the clock forward by d, resolving any waiters whose
// deadline has passed. It returns the new time.
func (v *Virtual) Advance(d time.Duration) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now += int64(d)
	remaining := v.waiters[:0]
	for _, w := range v.waiters {
		if w.deadline <= v.now {
			w.ch <- time.Unix(0, v.now)
			close(w.ch)
		} else {
			remaining = append(remaining, w)
		}
	}
	v.waiters = remaining
	return v.now
}

// NextDeadline returns the earliest pending waiter's deadline and true, or
// 0 and false if nothing is waiting — the lab step loop uses this to know
// exactly how far it may jump the clock forward to reach the next event
// without overshooting (spec.md's "virtual clock advances only on
// quiescence").
func (v *Virtual) NextDeadline() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.waiters) == 0 {
		return 0, false
	}
	min := v.waiters[0].deadline
	for _, w := range v.waiters[1:] {
		if w.deadline < min {
			min = w.deadline
		}
	}
	return min, true
}

func (v *Virtual) Sleep(d time.Duration) {
	<-v.After(d)
}

func (v *Virtual) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	v.mu.Lock()
	defer v.mu.Unlock()
	deadline := v.now + int64(d)
	if deadline <= v.now {
		ch <- time.Unix(0, v.now)
		close(ch)
		return ch
	}
	v.waiters = append(v.waiters, virtualWaiter{deadline: deadline, ch: ch})
	return ch
}

// BrowserMonotonic is a Clock modeled on a browser event loop's
// performance.now(): monotonic, but only advances when the host calls Tick
// (there is no real concurrent sleeping — a page's JS is single-threaded),
// per SPEC_FULL.md §5's browser ready-handoff feature.
type BrowserMonotonic struct {
	mu  sync.Mutex
	now int64
}

// NewBrowserMonotonic constructs a BrowserMonotonic clock starting at zero.
func NewBrowserMonotonic() *BrowserMonotonic {
	return &BrowserMonotonic{}
}

func (b *BrowserMonotonic) Now() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// Tick advances the clock by d, as the host page's animation-frame or
// timer callback would.
func (b *BrowserMonotonic) Tick(d time.Duration) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now += int64(d)
	return b.now
}

// Sleep is not supported: it panics. BrowserMonotonic offers no way to wait
// for a point in time; only Tick moves it forward.
func (b *BrowserMonotonic) Sleep(time.Duration) {
	panic("clock: BrowserMonotonic does not support blocking Sleep")
}

// After returns a channel that never fires, whether or not Tick later moves
// the clock past d. It is provided only so BrowserMonotonic satisfies Clock
// for code that merely stores the interface without calling After.
func (b *BrowserMonotonic) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}
