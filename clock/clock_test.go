package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualClockDoesNotAdvanceOnItsOwn(t *testing.T) {
	v := NewVirtual()
	assert.Equal(t, int64(0), v.Now())
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int64(0), v.Now())
}

func TestVirtualClockResolvesWaitersOnAdvance(t *testing.T) {
	v := NewVirtual()
	ch := v.After(10 * time.Millisecond)

	select {
	case <-ch:
		t.Fatal("waiter resolved before Advance")
	default:
	}

	deadline, ok := v.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, int64(10*time.Millisecond), deadline)

	v.Advance(10 * time.Millisecond)

	select {
	case <-ch:
	default:
		t.Fatal("waiter did not resolve after Advance reached its deadline")
	}
}

func TestVirtualClockAfterZeroResolvesImmediately(t *testing.T) {
	v := NewVirtual()
	ch := v.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("zero-duration After should resolve without Advance")
	}
}

func TestBrowserMonotonicAdvancesOnlyOnTick(t *testing.T) {
	b := NewBrowserMonotonic()
	assert.Equal(t, int64(0), b.Now())
	b.Tick(16 * time.Millisecond)
	assert.Equal(t, int64(16*time.Millisecond), b.Now())
}
