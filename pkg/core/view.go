package core

import (
	"iter"
	"math"

	"github.com/pkg/errors"

	"historydb/pkg/common"
	"historydb/pkg/core/memory"
)

// View presents a snapshot of number -> Reference as number -> record, limited
// to the numbers in [lo, hi]. References whose referent was collected are
// reloaded through the index by ID; a reference that cannot be resolved is
// treated as absent.
//
// The snapshot never changes, so later index mutations are not visible.
// Len and IsEmpty count references, not resolvable records, and are therefore
// approximate. Views are read-only.
type View[R any] struct {
	index  *LazyIndex[R]
	table  *memory.NumberTable[*Reference[R]]
	lo, hi int
}

func newView[R any](index *LazyIndex[R], table *memory.NumberTable[*Reference[R]], lo, hi int) *View[R] {
	return &View[R]{index: index, table: table, lo: lo, hi: hi}
}

func (v *View[R]) inRange(n int) bool {
	return n >= v.lo && n <= v.hi
}

func (v *View[R]) resolve(ref *Reference[R]) *R {
	if r := ref.Get(); r != nil {
		return r
	}
	return v.index.GetByID(ref.ID())
}

func (v *View[R]) Get(n int) *R {
	if !v.inRange(n) {
		return nil
	}
	ref, ok := v.table.Get(n)
	if !ok {
		return nil
	}
	return v.resolve(ref)
}

func (v *View[R]) ContainsKey(n int) bool {
	return v.Get(n) != nil
}

// All yields resolvable records in ascending number order.
func (v *View[R]) All() iter.Seq2[int, *R] {
	return func(yield func(int, *R) bool) {
		if v.lo > v.hi {
			return
		}
		v.table.Range(v.lo, v.hi, func(n int, ref *Reference[R]) bool {
			r := v.resolve(ref)
			if r == nil {
				return true
			}
			return yield(n, r)
		})
	}
}

// Keys returns the numbers in the view without resolving them.
func (v *View[R]) Keys() []int {
	var keys []int
	if v.lo > v.hi {
		return keys
	}
	v.table.Range(v.lo, v.hi, func(n int, _ *Reference[R]) bool {
		keys = append(keys, n)
		return true
	})
	return keys
}

func (v *View[R]) Values() []*R {
	var out []*R
	for _, r := range v.All() {
		out = append(out, r)
	}
	return out
}

// Len is approximate, see View.
func (v *View[R]) Len() int {
	if v.lo == math.MinInt && v.hi == math.MaxInt {
		return v.table.Count()
	}
	return len(v.Keys())
}

func (v *View[R]) IsEmpty() bool {
	return len(v.Keys()) == 0
}

func (v *View[R]) FirstKey() (int, error) {
	for n := range v.All() {
		return n, nil
	}
	return 0, errors.Wrap(common.ErrNotFound, "first key of empty view")
}

func (v *View[R]) LastKey() (int, error) {
	keys := v.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		if v.Get(keys[i]) != nil {
			return keys[i], nil
		}
	}
	return 0, errors.Wrap(common.ErrNotFound, "last key of empty view")
}

func (v *View[R]) Put(*R) error {
	return common.ErrUnsupported
}

func (v *View[R]) Remove(int) error {
	return common.ErrUnsupported
}
