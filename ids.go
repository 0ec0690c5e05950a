package asupersync

import "fmt"

// slot is the arena index type shared by TaskID, RegionID, ObligationID and
// EpochID: a dense slab index plus a generation counter. Equality of two
// ids requires both the slot and the generation to match, so a stale handle
// into a reused slot is detected rather than silently aliasing a new record.
type slot struct {
	index uint32
	gen   uint32
}

// TaskID names a task record in the runtime driver's task arena.
type TaskID struct{ s slot }

// RegionID names a region record in the runtime driver's region arena.
type RegionID struct{ s slot }

// ObligationID names an obligation in a task's ledger.
type ObligationID struct{ s slot }

// EpochID names a scheduler epoch. The scheduler does not assign or check
// epochs; taskRecord only carries one.
type EpochID struct{ s slot }

func (i TaskID) String() string       { return fmt.Sprintf("task#%d.%d", i.s.index, i.s.gen) }
func (i RegionID) String() string     { return fmt.Sprintf("region#%d.%d", i.s.index, i.s.gen) }
func (i ObligationID) String() string { return fmt.Sprintf("obligation#%d.%d", i.s.index, i.s.gen) }
func (i EpochID) String() string      { return fmt.Sprintf("epoch#%d.%d", i.s.index, i.s.gen) }

// IsZero reports whether the id is the zero value (never issued by an
// arena; useful as a "no parent"/"no id" sentinel).
func (i TaskID) IsZero() bool       { return i == TaskID{} }
func (i RegionID) IsZero() bool     { return i == RegionID{} }
func (i ObligationID) IsZero() bool { return i == ObligationID{} }

// arena is a generic slab of T with per-slot generation counters, the
// building block for the runtime driver's task/region/obligation arenas
// (§3: "The runtime driver exclusively owns the arenas"). It generalizes
// the slot-recycling idea behind the teacher's pool/fixed.go channel-backed
// pool into an indexable, generation-checked store.
type arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
}

type arenaSlot[T any] struct {
	gen    uint32
	occupied bool
	value  T
}

func newArena[T any]() *arena[T] {
	return &arena[T]{}
}

// insert allocates a slot (reusing a freed one when available) and returns
// its id.
func (a *arena[T]) insert(v T) slot {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.occupied = true
		return slot{index: idx, gen: s.gen}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, arenaSlot[T]{gen: 1, occupied: true, value: v})
	return slot{index: idx, gen: 1}
}

// get returns the value at id, or ok=false if id is stale or never issued.
func (a *arena[T]) get(id slot) (T, bool) {
	var zero T
	if int(id.index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[id.index]
	if !s.occupied || s.gen != id.gen {
		return zero, false
	}
	return s.value, true
}

// update mutates the value at id in place via fn; ok=false if id is stale.
func (a *arena[T]) update(id slot, fn func(*T)) bool {
	if int(id.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[id.index]
	if !s.occupied || s.gen != id.gen {
		return false
	}
	fn(&s.value)
	return true
}

// remove frees id's slot, bumping its generation so any retained copy of id
// is detected as stale on next use.
func (a *arena[T]) remove(id slot) bool {
	if int(id.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[id.index]
	if !s.occupied || s.gen != id.gen {
		return false
	}
	var zero T
	s.value = zero
	s.occupied = false
	s.gen++
	a.free = append(a.free, id.index)
	return true
}

// len reports the number of currently-occupied slots.
func (a *arena[T]) len() int {
	return len(a.slots) - len(a.free)
}
