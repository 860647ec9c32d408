package core

import (
	"math"
	"sync/atomic"

	"historydb/pkg/common"
)

// Links holds a record's previous/next neighbour references. Record types
// embed it and hand an accessor to NewLinker.
//
// A nil slot is undetermined; a None reference means there is no neighbour.
type Links[R any] struct {
	previous atomic.Pointer[Reference[R]]
	next     atomic.Pointer[Reference[R]]
}

func (ls *Links[R]) slot(d common.Direction) *atomic.Pointer[Reference[R]] {
	if d == common.Desc {
		return &ls.previous
	}
	return &ls.next
}

// Linker walks a history record by record, caching neighbour links as weak
// references so a long walk does not pin the whole history in memory.
type Linker[R any] struct {
	index   *LazyIndex[R]
	linksOf func(*R) *Links[R]
	none    *Reference[R]
}

func NewLinker[R any](index *LazyIndex[R], linksOf func(*R) *Links[R]) *Linker[R] {
	return &Linker[R]{
		index:   index,
		linksOf: linksOf,
		none:    None[R](),
	}
}

func (l *Linker[R]) Previous(r *R) *R {
	return l.neighbour(r, common.Desc)
}

func (l *Linker[R]) Next(r *R) *R {
	return l.neighbour(r, common.Asc)
}

// CreateReference returns a weak, ID-keyed handle to r.
func (l *Linker[R]) CreateReference(r *R) *Reference[R] {
	return l.index.Reference(r)
}

func opposite(d common.Direction) common.Direction {
	if d == common.Desc {
		return common.Asc
	}
	return common.Desc
}

func (l *Linker[R]) neighbour(r *R, d common.Direction) *R {
	slot := l.linksOf(r).slot(d)
	for {
		ref := slot.Load()
		if ref == nil {
			return l.link(r, d)
		}
		if ref.IsNone() {
			return nil
		}
		if found := ref.Get(); found != nil {
			return found
		}
		// the neighbour was collected; look it up again
		slot.CompareAndSwap(ref, nil)
	}
}

// link searches for r's neighbour in direction d and records the link on both
// sides, which is what lets DropLinks splice r out later without a search.
func (l *Linker[R]) link(r *R, d common.Direction) *R {
	slot := l.linksOf(r).slot(d)
	n := l.index.Number(r)

	if (d == common.Desc && n == math.MinInt) || (d == common.Asc && n == math.MaxInt) {
		slot.Store(l.none)
		return nil
	}
	probe := n + 1
	if d == common.Desc {
		probe = n - 1
	}

	found := l.index.Search(probe, d)
	if found == nil {
		slot.Store(l.none)
		return nil
	}
	l.linksOf(found).slot(opposite(d)).Store(l.index.Reference(r))
	slot.Store(l.index.Reference(found))
	l.index.logger.Debug("linked records", "from", n, "to", l.index.Number(found), "direction", d)
	return found
}

// DropLinks splices r out of the chain: its neighbours are pointed at each
// other and r forgets both of its links.
func (l *Linker[R]) DropLinks(r *R) {
	mine := l.linksOf(r)
	prev := mine.previous.Load()
	next := mine.next.Load()

	if nb := next.Get(); nb != nil {
		l.linksOf(nb).previous.Store(prev)
	}
	if pb := prev.Get(); pb != nil {
		l.linksOf(pb).next.Store(next)
	}
	mine.previous.Store(nil)
	mine.next.Store(nil)
}

// Invalidate forgets r's links without touching its neighbours, so both are
// searched again on next use. Hosts call it on the records around a new insert.
func (l *Linker[R]) Invalidate(r *R) {
	mine := l.linksOf(r)
	mine.previous.Store(nil)
	mine.next.Store(nil)
}
