package lab

import "container/heap"

// scheduledEvent is one entry in the lab runtime's event queue: a handler
// due to run at a given virtual time, with a sequence number used only to
// break exact time ties deterministically (insertion order), never to
// change the actual ordering semantics.
type scheduledEvent struct {
	atNS   int64
	seq    uint64
	handler func()
}

// eventHeap is a container/heap.Interface over scheduledEvent ordered by
// (atNS, seq), giving a deterministic earliest-event-first queue.
type eventHeap []scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].atNS != h[j].atNS {
		return h[i].atNS < h[j].atNS
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(scheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// EventQueue is a deterministic priority queue of scheduled handlers, the
// spine of the lab step loop.
type EventQueue struct {
	h       eventHeap
	nextSeq uint64
}

// NewEventQueue builds an empty EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.h)
	return q
}

// Schedule enqueues handler to run at virtual time atNS.
func (q *EventQueue) Schedule(atNS int64, handler func()) {
	q.nextSeq++
	heap.Push(&q.h, scheduledEvent{atNS: atNS, seq: q.nextSeq, handler: handler})
}

// Len reports how many events remain queued.
func (q *EventQueue) Len() int { return q.h.Len() }

// Pop removes and returns the earliest-scheduled event, or ok=false if the
// queue is empty.
func (q *EventQueue) Pop() (atNS int64, handler func(), ok bool) {
	if q.h.Len() == 0 {
		return 0, nil, false
	}
	e := heap.Pop(&q.h).(scheduledEvent)
	return e.atNS, e.handler, true
}
