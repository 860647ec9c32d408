package core

import (
	"cmp"

	"historydb/pkg/common"
	"historydb/pkg/core/structure"
)

// Search finds the record numbered n. With Asc it settles on the smallest number
// >= n, with Desc on the largest number <= n, with Exact on n or nothing.
//
// Loaded records answer first, then the shortcut listing, then a binary search
// over record directories in ID order. Every record read on the way is cached,
// and shortcuts or directories that turn out to be bad are forgotten.
func (li *LazyIndex[R]) Search(n int, d common.Direction) *R {
	li.stats.RecordLookup()

	if ref, ok := li.index.Load().byNumber.Get(n); ok {
		if r := ref.Get(); r != nil {
			li.stats.RecordCacheHit()
			li.retain(r)
			return r
		}
		// collected; the ID is still good
		if r := li.GetByID(ref.ID()); r != nil && li.numberOf(r) == n {
			li.stats.RecordCacheHit()
			return r
		}
	}

	if r := li.searchShortcuts(n, d); r != nil {
		li.stats.RecordShortcutHit()
		return r
	}

	li.stats.RecordScan()
	return li.searchDisk(n, d)
}

// numbered returns the record numbered m from the cache or through its shortcut.
func (li *LazyIndex[R]) numbered(m int) *R {
	if ref, ok := li.index.Load().byNumber.Get(m); ok {
		if r := ref.Get(); r != nil {
			return r
		}
	}
	return li.loadShortcut(m)
}

// searchShortcuts answers from numberOnDisk when it can and returns nil when
// the caller has to fall back to scanning.
func (li *LazyIndex[R]) searchShortcuts(n int, d common.Direction) *R {
	shortcuts := li.numberOnDisk.Load()
	npos := shortcuts.Find(n)
	if npos >= 0 {
		if r := li.loadShortcut(n); r != nil {
			return r
		}
	}

	var neighbor int
	switch d {
	case common.Asc:
		neighbor = structure.Higher(npos)
	case common.Desc:
		neighbor = structure.Lower(npos)
	default:
		return nil
	}
	if !shortcuts.IsInRange(neighbor) {
		return nil
	}

	r := li.numbered(shortcuts.Get(neighbor))
	if r == nil {
		// the listing promised a record and there was none
		return nil
	}

	// Make sure no record sits between n and r: the record just before r in
	// ID order (just after it, for Desc) must lie on the other side of n.
	ids := li.idOnDisk.Load()
	var prev int
	if d == common.Asc {
		prev = ids.Lower(li.idOf(r))
	} else {
		prev = ids.Higher(li.idOf(r))
	}
	if !ids.IsInRange(prev) {
		// r is the first (or last) record there is
		return r
	}
	pr := li.GetByID(ids.Get(prev))
	if pr != nil && cmp.Compare(li.numberOf(pr), n)*cmp.Compare(n, li.numberOf(r)) > 0 {
		return r
	}
	li.logger.Debug("shortcut neighbour failed validation", "number", n, "direction", d, "candidate", li.numberOf(r))
	return nil
}

// searchDisk binary searches idOnDisk, relying on ID order matching number order.
func (li *LazyIndex[R]) searchDisk(n int, d common.Direction) *R {
	snap := li.index.Load()
	ids := li.idOnDisk.Load()
	if ids.Len() == 0 {
		return nil
	}

	var dead []string
	owned := false
	drop := func(i int) {
		if !owned {
			ids = ids.Clone()
			owned = true
		}
		dead = append(dead, ids.Get(i))
		ids.RemoveAt(i)
	}
	defer func() {
		li.forgetIDs(dead)
	}()

	// The record lies in [lo, hi) of ids, bounded by the nearest loaded
	// records on either side of n.
	lo, hi := 0, ids.Len()
	if f, ok := snap.byNumber.Lower(n); ok {
		lo = ids.Higher(f.Val.ID())
	}
	if c, ok := snap.byNumber.Higher(n); ok {
		hi = ids.Lower(c.Val.ID()) + 1
	}

	for lo < hi {
		pivot := (lo + hi) / 2
		r := li.GetByID(ids.Get(pivot))
		if r == nil {
			drop(pivot)
			hi--
			continue
		}

		found := li.numberOf(r)
		if found == n {
			return r
		}
		if found < n {
			lo = pivot + 1
		} else {
			hi = pivot
		}
	}

	// lo and hi both sit at the insertion point now
	switch d {
	case common.Asc:
		for hi >= 0 && hi < ids.Len() {
			if r := li.GetByID(ids.Get(hi)); r != nil {
				return r
			}
			drop(hi)
		}
	case common.Desc:
		for lo > 0 && lo-1 < ids.Len() {
			if r := li.GetByID(ids.Get(lo - 1)); r != nil {
				return r
			}
			drop(lo - 1)
			lo--
		}
	}
	return nil
}
