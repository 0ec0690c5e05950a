package asupersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGetRemove(t *testing.T) {
	a := newArena[string]()

	id := a.insert("hello")
	v, ok := a.get(id)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 1, a.len())

	require.True(t, a.remove(id))
	_, ok = a.get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, a.len())
}

func TestArenaDetectsStaleGenerationAfterReuse(t *testing.T) {
	a := newArena[string]()

	first := a.insert("a")
	require.True(t, a.remove(first))

	second := a.insert("b")
	assert.Equal(t, first.index, second.index)
	assert.NotEqual(t, first.gen, second.gen)

	_, ok := a.get(first)
	assert.False(t, ok, "stale id must not resolve into the reused slot")

	v, ok := a.get(second)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestArenaUpdateMutatesInPlace(t *testing.T) {
	a := newArena[int]()
	id := a.insert(1)

	ok := a.update(id, func(v *int) { *v += 41 })
	require.True(t, ok)

	v, _ := a.get(id)
	assert.Equal(t, 42, v)
}

func TestIDsIsZero(t *testing.T) {
	assert.True(t, TaskID{}.IsZero())
	assert.True(t, RegionID{}.IsZero())
	assert.True(t, ObligationID{}.IsZero())

	assert.False(t, TaskID{s: slot{index: 1, gen: 1}}.IsZero())
}
