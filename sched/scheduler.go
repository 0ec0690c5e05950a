// Package sched implements the three-lane priority scheduler: a Cancel lane
// that always drains first, a High lane, and a Normal lane, dispatched onto
// a bounded worker pool. It is grounded on the teacher's dispatcher.go
// single-select read-dispatch loop, generalized from one channel to three
// prioritized channels, with pool.Pool reused as a capacity-bounded
// semaphore rather than its original object-recycling role.
package sched

import (
	"sync"
	"time"

	"github.com/Dicklesworthstone/asupersync/metrics"
	"github.com/Dicklesworthstone/asupersync/pool"
)

// Options configures a Scheduler.
type Options struct {
	// Workers bounds how many items run concurrently. Zero means 1.
	Workers int
	// BurstLimit caps consecutive High-lane dispatches before the scheduler
	// rechecks whether Cancel or Normal lane work is due; zero means 1 (no
	// burst — strict priority order every dispatch).
	BurstLimit int
	// BrowserReadyHandoffLimit, when nonzero, is the default item count
	// Tick drains before returning control to an external (cooperative)
	// event loop, per SPEC_FULL.md §5's browser ready-handoff feature.
	BrowserReadyHandoffLimit int
	// Metrics receives lane-depth and dispatch gauges. Nil uses a no-op
	// provider.
	Metrics metrics.Provider
	// QueueCapacity bounds each lane's buffer. Zero means 1024.
	QueueCapacity int
	// Cooperative, when true, builds a Scheduler with no background
	// dispatchLoop goroutine whose worker-slot pool is never drawn from: every item runs
	// synchronously, in-line, on whichever goroutine calls Tick. This is
	// the lab-mode scheduling discipline SPEC_FULL.md's deterministic
	// simulation subsystem requires — a dispatch order driven entirely by
	// Tick's caller (a lab.Runner stepping a seeded event queue) rather
	// than by goroutine scheduling, so a seed reproduces dispatch order
	// bit-for-bit. Submit still enqueues onto the three lane channels;
	// only run's execution mode and New's background goroutine change.
	Cooperative bool
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.BurstLimit <= 0 {
		o.BurstLimit = 1
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 1024
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewNoopProvider()
	}
	return o
}

// Scheduler dispatches Items from three priority lanes onto a bounded pool
// of concurrently-running workers.
type Scheduler struct {
	opts Options

	cancelCh chan Item
	highCh   chan Item
	normalCh chan Item

	tokens pool.Pool

	depthCancel metrics.UpDownCounter
	depthHigh   metrics.UpDownCounter
	depthNormal metrics.UpDownCounter
	dispatched  metrics.Counter

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New constructs a Scheduler and starts its dispatch loop. Call Close to
// stop it.
func New(opts Options) *Scheduler {
	opts = opts.normalized()
	s := &Scheduler{
		opts:     opts,
		cancelCh: make(chan Item, opts.QueueCapacity),
		highCh:   make(chan Item, opts.QueueCapacity),
		normalCh: make(chan Item, opts.QueueCapacity),
		tokens:   pool.NewFixed(uint(opts.Workers), func() interface{} { return struct{}{} }),
		stop:     make(chan struct{}),

		depthCancel: opts.Metrics.UpDownCounter("asupersync.sched.lane_depth", metrics.WithAttributes(map[string]string{"lane": "cancel"})),
		depthHigh:   opts.Metrics.UpDownCounter("asupersync.sched.lane_depth", metrics.WithAttributes(map[string]string{"lane": "high"})),
		depthNormal: opts.Metrics.UpDownCounter("asupersync.sched.lane_depth", metrics.WithAttributes(map[string]string{"lane": "normal"})),
		dispatched:  opts.Metrics.Counter("asupersync.sched.dispatched", metrics.WithUnit("1")),
	}
	if !opts.Cooperative {
		s.wg.Add(1)
		go s.dispatchLoop()
	}
	return s
}

// Submit enqueues item on its lane. It blocks only if that lane's buffer is
// full (QueueCapacity), matching the teacher's channel-backed task queue.
func (s *Scheduler) Submit(item Item) {
	switch item.Lane {
	case LaneCancel:
		s.depthCancel.Add(1)
		s.cancelCh <- item
	case LaneHigh:
		s.depthHigh.Add(1)
		s.highCh <- item
	default:
		s.depthNormal.Add(1)
		s.normalCh <- item
	}
}

// Close stops the dispatch loop and waits for in-flight items to finish.
// It is idempotent.
func (s *Scheduler) Close() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// dispatchLoop is the native (non-cooperative) backend: it runs until
// Close, continuously pulling the highest-priority ready item and handing
// it to a worker slot.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()
	burst := 0
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		item, ok := s.next(&burst)
		if !ok {
			select {
			case <-s.stop:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		s.run(item)
	}
}

// Tick drains up to limit ready items synchronously and returns the number
// dispatched, without blocking to wait for more work. limit<=0 uses
// Options.BrowserReadyHandoffLimit (0 there means drain until empty). This
// is the cooperative entry point an external (browser) event loop calls
// instead of relying on dispatchLoop, per SPEC_FULL.md §5.
func (s *Scheduler) Tick(limit int) int {
	if limit <= 0 {
		limit = s.opts.BrowserReadyHandoffLimit
	}
	burst := 0
	n := 0
	for limit <= 0 || n < limit {
		item, ok := s.next(&burst)
		if !ok {
			break
		}
		s.run(item)
		n++
	}
	return n
}

// next returns the next ready item by strict priority (Cancel, then High up
// to BurstLimit consecutive dispatches, then Normal, then High again as a
// new burst when Normal is empty), or ok=false if nothing is ready right
// now.
func (s *Scheduler) next(burst *int) (Item, bool) {
	select {
	case it := <-s.cancelCh:
		s.depthCancel.Add(-1)
		*burst = 0
		return it, true
	default:
	}
	if *burst < s.opts.BurstLimit {
		select {
		case it := <-s.highCh:
			s.depthHigh.Add(-1)
			*burst++
			return it, true
		default:
		}
	}
	select {
	case it := <-s.normalCh:
		s.depthNormal.Add(-1)
		*burst = 0
		return it, true
	default:
	}
	select {
	case it := <-s.highCh:
		s.depthHigh.Add(-1)
		*burst = 1
		return it, true
	default:
		return Item{}, false
	}
}

// run executes item, either synchronously in-line (Cooperative) or on its
// own goroutine drawn from the worker-slot pool (native). Cooperative mode
// is what lets a lab.Runner reproduce a dispatch order bit-for-bit: there is
// no goroutine scheduling left in the loop to introduce nondeterminism,
// Tick's caller controls exactly when each item runs.
func (s *Scheduler) run(item Item) {
	if s.opts.Cooperative {
		s.dispatched.Add(1)
		item.Run()
		return
	}
	tok := s.tokens.Get()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.tokens.Put(tok)
		s.dispatched.Add(1)
		item.Run()
	}()
}
