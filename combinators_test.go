package asupersync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settled[T any](o Outcome[T]) <-chan Outcome[T] {
	ch := make(chan Outcome[T], 1)
	ch <- o
	return ch
}

func TestJoin2WaitsForBoth(t *testing.T) {
	a, b := Join2(settled(Ok(1)), settled(Ok("x")))
	av, _ := a.Value()
	bv, _ := b.Value()
	assert.Equal(t, 1, av)
	assert.Equal(t, "x", bv)
}

func TestJoinAllPreservesOrder(t *testing.T) {
	results := []<-chan Outcome[int]{settled(Ok(1)), settled(Ok(2)), settled(Ok(3))}
	out := JoinAll(results)
	require.Len(t, out, 3)
	for i, o := range out {
		v, _ := o.Value()
		assert.Equal(t, i+1, v)
	}
}

func TestRace2ReturnsFirstToSettle(t *testing.T) {
	slow := make(chan Outcome[int])
	fast := settled(Ok(7))

	got := <-Race2(slow, fast)
	v, ok := got.Value()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestRaceAllReturnsOnlyOneWinner(t *testing.T) {
	chans := make([]<-chan Outcome[int], 4)
	for i := range chans {
		chans[i] = settled(Ok(i))
	}

	winner := <-RaceAll(chans)
	_, ok := winner.Value()
	assert.True(t, ok)
}

// TestEmptyRaceNeverResolves is the table-style regression test named by
// SPEC_FULL.md §5 (repro_race_empty): spec.md §8 S6 requires race_all([])
// to be "never", not an immediate error or a closed channel.
func TestEmptyRaceNeverResolves(t *testing.T) {
	ch := RaceAll[int](nil)
	select {
	case v := <-ch:
		t.Fatalf("expected RaceAll(nil) to never resolve, got %v", v)
	case <-time.After(20 * time.Millisecond):
		// expected: nothing ever arrives.
	}
}

func TestAggregateReturnsMostSevere(t *testing.T) {
	outcomes := []Outcome[int]{
		Ok(1),
		Err[int](errors.New("bad")),
	}
	got := Aggregate(outcomes)
	assert.Equal(t, OutcomeErr, got.Kind())
}
