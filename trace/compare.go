package trace

import (
	"fmt"
	"reflect"
)

// Divergence describes where two traces first stopped matching.
type Divergence struct {
	// Index is the position (0-based) of the first mismatching event.
	Index int
	// Want is the event from the reference (first) trace at Index, or nil
	// if the reference trace ended first.
	Want *Event
	// Got is the event from the candidate (second) trace at Index, or nil
	// if the candidate trace ended first.
	Got *Event
	// CommonPrefixLen is the length of the shared prefix before Index —
	// always equal to Index, kept as a named field so callers reading a
	// Divergence don't need to know that invariant to find the prefix
	// length.
	CommonPrefixLen int
}

func (d Divergence) String() string {
	return fmt.Sprintf("diverged at index %d (common prefix length %d): want=%v got=%v",
		d.Index, d.CommonPrefixLen, d.Want, d.Got)
}

// Compare walks want and got in lockstep and returns the first point they
// differ, or nil if they are equivalent. Event.Seq is ignored for equality
// (sequence numbers are a recording artifact, not semantic content); every
// other field must match exactly. This is the minimal-counterexample
// reporting original_source/tests/replay_e2e_suite.rs calls for: both the
// first mismatching event and (via CommonPrefixLen) the shortest common
// prefix.
func Compare(want, got []Event) *Divergence {
	n := len(want)
	if len(got) < n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		a, b := want[i], got[i]
		a.Seq, b.Seq = 0, 0
		if !reflect.DeepEqual(a, b) {
			wv, gv := want[i], got[i]
			return &Divergence{Index: i, Want: &wv, Got: &gv, CommonPrefixLen: i}
		}
	}
	if len(want) == len(got) {
		return nil
	}
	d := &Divergence{Index: n, CommonPrefixLen: n}
	if len(want) > n {
		wv := want[n]
		d.Want = &wv
	}
	if len(got) > n {
		gv := got[n]
		d.Got = &gv
	}
	return d
}
