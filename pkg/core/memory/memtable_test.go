package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(keys ...int) *NumberTable[string] {
	nt := NewNumberTable[string](8)
	for _, k := range keys {
		nt.Put(k, "v")
	}
	return nt
}

func TestNumberTableNeighbours(t *testing.T) {
	nt := tableOf(1, 3, 5, 7)

	f, ok := nt.Floor(4)
	require.True(t, ok)
	assert.Equal(t, 3, f.Key)

	c, ok := nt.Ceiling(4)
	require.True(t, ok)
	assert.Equal(t, 5, c.Key)

	f, ok = nt.Floor(5)
	require.True(t, ok)
	assert.Equal(t, 5, f.Key)

	l, ok := nt.Lower(5)
	require.True(t, ok)
	assert.Equal(t, 3, l.Key)

	h, ok := nt.Higher(5)
	require.True(t, ok)
	assert.Equal(t, 7, h.Key)

	_, ok = nt.Higher(7)
	assert.False(t, ok)
	_, ok = nt.Lower(1)
	assert.False(t, ok)
	_, ok = nt.Lower(math.MinInt)
	assert.False(t, ok)
	_, ok = nt.Higher(math.MaxInt)
	assert.False(t, ok)
}

func TestNumberTablePutReplaceDelete(t *testing.T) {
	nt := NewNumberTable[string](8)
	_, replaced := nt.Put(1, "a")
	assert.False(t, replaced)
	old, replaced := nt.Put(1, "b")
	assert.True(t, replaced)
	assert.Equal(t, "a", old)

	v, ok := nt.Get(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = nt.Delete(1)
	assert.True(t, ok)
	assert.Equal(t, 0, nt.Count())
}

func TestNumberTableCloneIsolation(t *testing.T) {
	nt := tableOf(1, 2, 3)
	snapshot := nt
	next := nt.Clone()
	next.Put(9, "v")
	next.Delete(1)

	assert.Equal(t, 3, snapshot.Count())
	_, ok := snapshot.Get(9)
	assert.False(t, ok)
	_, ok = snapshot.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 3, next.Count())
}

func TestNumberTableRange(t *testing.T) {
	nt := tableOf(1, 3, 5, 7, 9)
	var keys []int
	nt.Range(3, 7, func(k int, _ string) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{3, 5, 7}, keys)

	keys = nil
	nt.Iterator(func(k int, _ string) bool {
		keys = append(keys, k)
		return k < 5
	})
	assert.Equal(t, []int{1, 3, 5}, keys)

	mn, _ := nt.Min()
	mx, _ := nt.Max()
	assert.Equal(t, 1, mn.Key)
	assert.Equal(t, 9, mx.Key)
}
