package memory

import (
	"math"

	"github.com/google/btree"
)

type Item[V any] struct {
	Key int
	Val V
}

func less[V any](a, b Item[V]) bool {
	return a.Key < b.Key
}

// NumberTable is an ordered int-keyed map used as a copy-on-write snapshot.
// A table that has been handed to readers must not be written again; Clone it first.
// Clone is lazy, so the copy costs nothing until one side is modified.
type NumberTable[V any] struct {
	tree *btree.BTreeG[Item[V]]
}

func NewNumberTable[V any](degree int) *NumberTable[V] {
	return &NumberTable[V]{
		tree: btree.NewG[Item[V]](degree, less[V]),
	}
}

func (nt *NumberTable[V]) Clone() *NumberTable[V] {
	return &NumberTable[V]{tree: nt.tree.Clone()}
}

// Put stores val under key and returns the value it replaced, if any.
func (nt *NumberTable[V]) Put(key int, val V) (V, bool) {
	old, ok := nt.tree.ReplaceOrInsert(Item[V]{Key: key, Val: val})
	return old.Val, ok
}

func (nt *NumberTable[V]) Get(key int) (V, bool) {
	item, ok := nt.tree.Get(Item[V]{Key: key})
	return item.Val, ok
}

func (nt *NumberTable[V]) Delete(key int) (V, bool) {
	item, ok := nt.tree.Delete(Item[V]{Key: key})
	return item.Val, ok
}

// Floor returns the entry with the greatest key <= key.
func (nt *NumberTable[V]) Floor(key int) (Item[V], bool) {
	var found Item[V]
	ok := false
	nt.tree.DescendLessOrEqual(Item[V]{Key: key}, func(item Item[V]) bool {
		found, ok = item, true
		return false
	})
	return found, ok
}

// Ceiling returns the entry with the smallest key >= key.
func (nt *NumberTable[V]) Ceiling(key int) (Item[V], bool) {
	var found Item[V]
	ok := false
	nt.tree.AscendGreaterOrEqual(Item[V]{Key: key}, func(item Item[V]) bool {
		found, ok = item, true
		return false
	})
	return found, ok
}

// Lower returns the entry with the greatest key strictly below key.
func (nt *NumberTable[V]) Lower(key int) (Item[V], bool) {
	if key == math.MinInt {
		return Item[V]{}, false
	}
	return nt.Floor(key - 1)
}

// Higher returns the entry with the smallest key strictly above key.
func (nt *NumberTable[V]) Higher(key int) (Item[V], bool) {
	if key == math.MaxInt {
		return Item[V]{}, false
	}
	return nt.Ceiling(key + 1)
}

func (nt *NumberTable[V]) Min() (Item[V], bool) {
	return nt.tree.Min()
}

func (nt *NumberTable[V]) Max() (Item[V], bool) {
	return nt.tree.Max()
}

func (nt *NumberTable[V]) Iterator(fn func(key int, val V) bool) {
	nt.tree.Ascend(func(item Item[V]) bool {
		return fn(item.Key, item.Val)
	})
}

// Range visits keys in [lo, hi] in ascending order.
func (nt *NumberTable[V]) Range(lo, hi int, fn func(key int, val V) bool) {
	nt.tree.AscendGreaterOrEqual(Item[V]{Key: lo}, func(item Item[V]) bool {
		if item.Key > hi {
			return false
		}
		return fn(item.Key, item.Val)
	})
}

func (nt *NumberTable[V]) Count() int {
	return nt.tree.Len()
}
