package asupersync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseSequenceRunsStepsInOrder(t *testing.T) {
	var order []int
	cs := newCloseSequence(
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
		func() { order = append(order, 3) },
	)

	cs.run()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCloseSequenceRunsExactlyOnce(t *testing.T) {
	var n int
	cs := newCloseSequence(func() { n++ })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.run()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, n)
}

func TestCloseSequenceToleratesNilSteps(t *testing.T) {
	cs := newCloseSequence(nil, func() {}, nil)
	assert.NotPanics(t, func() { cs.run() })
}
