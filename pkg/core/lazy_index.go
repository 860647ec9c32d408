package core

import (
	"maps"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"historydb/pkg/common"
	"historydb/pkg/core/memory"
	"historydb/pkg/core/structure"
	"historydb/pkg/monitor"
)

const btreeDegree = 32

// snapshot holds the loaded subset of the history. Published snapshots are never
// written again: mutators copy, edit and swap the pointer under LazyIndex.mu.
type snapshot[R any] struct {
	byNumber *memory.NumberTable[*Reference[R]]
	byID     map[string]entry[R]
}

// entry is a byID value; number is the byNumber key the reference is filed under.
type entry[R any] struct {
	number int
	ref    *Reference[R]
}

func newSnapshot[R any]() *snapshot[R] {
	return &snapshot[R]{
		byNumber: memory.NewNumberTable[*Reference[R]](btreeDegree),
		byID:     make(map[string]entry[R]),
	}
}

func (s *snapshot[R]) copy() *snapshot[R] {
	return &snapshot[R]{
		byNumber: s.byNumber.Clone(),
		byID:     maps.Clone(s.byID),
	}
}

// put keeps byNumber and byID mirrored: whatever the new entry displaces on
// either side is dropped from the other. It returns the displaced reference.
func (s *snapshot[R]) put(number int, ref *Reference[R]) *Reference[R] {
	if prev, ok := s.byID[ref.ID()]; ok && prev.number != number {
		// the same ID was filed under another number
		if cur, ok := s.byNumber.Get(prev.number); ok && cur.ID() == ref.ID() {
			s.byNumber.Delete(prev.number)
		}
	}
	old, replaced := s.byNumber.Put(number, ref)
	if replaced && old.ID() != ref.ID() {
		delete(s.byID, old.ID())
	}
	s.byID[ref.ID()] = entry[R]{number: number, ref: ref}
	if replaced {
		return old
	}
	return nil
}

func (s *snapshot[R]) remove(id string) bool {
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	if ref, ok := s.byNumber.Get(e.number); ok && ref.ID() == id {
		s.byNumber.Delete(e.number)
	}
	return true
}

type options struct {
	name   string
	logger common.Logger
	retain int
}

type Option func(*options)

// WithName labels the index in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithLogger(l common.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRetention sets how many recently used records are kept strongly reachable.
// Zero disables retention, leaving records alive only as long as callers hold them.
func WithRetention(n int) Option {
	return func(o *options) { o.retain = n }
}

// LazyIndex is a sorted map from record number to record over a Source that is
// only partially loaded. Lookups read a published snapshot without locking;
// every structural change copies the snapshot under mu and swaps it in.
type LazyIndex[R any] struct {
	src      Source[R]
	numberOf func(*R) int
	idOf     func(*R) string

	logger   common.Logger
	stats    *monitor.IndexStats
	retained *lru.Cache[string, *R]
	loads    singleflight.Group

	mu           sync.Mutex
	index        atomic.Pointer[snapshot[R]]
	idOnDisk     atomic.Pointer[structure.SortedIndex[string]]
	numberOnDisk atomic.Pointer[structure.SortedIndex[int]]
	fullyLoaded  atomic.Bool
}

// NewLazyIndex scans src and returns an index with nothing loaded yet.
// numberOf and idOf must be stable for a record's lifetime, and record IDs must
// sort in the same order as record numbers.
func NewLazyIndex[R any](src Source[R], numberOf func(*R) int, idOf func(*R) string, opts ...Option) *LazyIndex[R] {
	o := options{name: "history", logger: common.NopLogger, retain: 128}
	for _, opt := range opts {
		opt(&o)
	}

	li := &LazyIndex[R]{
		src:      src,
		numberOf: numberOf,
		idOf:     idOf,
		logger:   o.logger,
		stats:    monitor.NewIndexStats(o.name),
	}
	if o.retain > 0 {
		li.retained, _ = lru.New[string, *R](o.retain)
	}
	li.index.Store(newSnapshot[R]())

	li.mu.Lock()
	li.loadOnDisk()
	li.mu.Unlock()
	return li
}

// loadOnDisk refreshes both directory listings. Callers hold mu.
func (li *LazyIndex[R]) loadOnDisk() {
	ids, err := li.src.ListIDs()
	if err != nil {
		// the history may simply not exist yet
		li.logger.Warn("failed to list record directories", "err", err)
		ids = nil
	}
	shortcuts, err := li.src.ListShortcuts()
	if err != nil {
		li.logger.Warn("failed to list shortcuts", "err", err)
		shortcuts = nil
	}
	li.idOnDisk.Store(structure.NewSortedIndex(ids...))
	li.numberOnDisk.Store(structure.NewSortedIndex(shortcuts...))
	li.logger.Info("scanned history", "ids", len(ids), "shortcuts", len(shortcuts))
}

func (li *LazyIndex[R]) Number(r *R) int {
	return li.numberOf(r)
}

func (li *LazyIndex[R]) ID(r *R) string {
	return li.idOf(r)
}

// Reference creates an ID-keyed weak handle to r.
func (li *LazyIndex[R]) Reference(r *R) *Reference[R] {
	return newReference(li.idOf(r), r)
}

func (li *LazyIndex[R]) retain(r *R) {
	if li.retained != nil && r != nil {
		li.retained.Add(li.idOf(r), r)
	}
}

// retrieve runs one source read, absorbing failures into a nil result.
func (li *LazyIndex[R]) retrieve(dir string, fn func() (*R, error)) *R {
	r, err := fn()
	if err != nil {
		li.logger.Warn("failed to load record", "dir", dir, "err", err)
		li.stats.RecordLoad(false)
		return nil
	}
	if r == nil {
		li.logger.Debug("record directory is empty", "dir", dir)
		li.stats.RecordLoad(false)
		return nil
	}
	li.stats.RecordLoad(true)
	li.retain(r)
	return r
}

// loadID reads the record directory id and publishes the result.
// Concurrent loads of the same id share one read.
func (li *LazyIndex[R]) loadID(id string) *R {
	v, _, _ := li.loads.Do(id, func() (interface{}, error) {
		r := li.retrieve(id, func() (*R, error) { return li.src.Retrieve(id) })
		if r != nil {
			li.publish(r)
		}
		return r, nil
	})
	return v.(*R)
}

// loadShortcut follows the shortcut for n. A shortcut that is broken or leads to a
// record with another number is dropped from numberOnDisk.
func (li *LazyIndex[R]) loadShortcut(n int) *R {
	dir := strconv.Itoa(n)
	r := li.retrieve(dir, func() (*R, error) { return li.src.RetrieveShortcut(n) })
	if r != nil {
		// whatever it found is still a real record
		li.publish(r)
	}
	if r == nil || li.numberOf(r) != n {
		li.logger.Debug("dropping stale shortcut", "number", n)
		li.stats.RecordStaleShortcut()
		li.forgetShortcut(n)
		return nil
	}
	return r
}

func (li *LazyIndex[R]) publish(rs ...*R) {
	li.mu.Lock()
	defer li.mu.Unlock()

	next := li.index.Load().copy()
	for _, r := range rs {
		next.put(li.numberOf(r), li.Reference(r))
	}
	li.index.Store(next)
}

func (li *LazyIndex[R]) forgetShortcut(n int) {
	li.mu.Lock()
	defer li.mu.Unlock()

	cur := li.numberOnDisk.Load()
	if !cur.Contains(n) {
		return
	}
	next := cur.Clone()
	next.RemoveValue(n)
	li.numberOnDisk.Store(next)
}

func (li *LazyIndex[R]) forgetIDs(ids []string) {
	if len(ids) == 0 {
		return
	}
	li.mu.Lock()
	defer li.mu.Unlock()
	li.forgetIDsLocked(ids)
}

func (li *LazyIndex[R]) forgetIDsLocked(ids []string) {
	cur := li.idOnDisk.Load()
	next := cur.Clone()
	removed := false
	for _, id := range ids {
		if next.RemoveValue(id) {
			removed = true
			li.stats.RecordDeadDirectory()
		}
	}
	if removed {
		li.idOnDisk.Store(next)
	}
}

// Get returns the record numbered n, or nil.
func (li *LazyIndex[R]) Get(n int) *R {
	return li.Search(n, common.Exact)
}

// GetByID returns the record with the given ID, reading its directory directly
// when it is not loaded.
func (li *LazyIndex[R]) GetByID(id string) *R {
	e, cached := li.index.Load().byID[id]
	if cached {
		if r := e.ref.Get(); r != nil {
			li.retain(r)
			return r
		}
	}
	r := li.loadID(id)
	if r == nil && cached {
		li.evict(id)
	}
	return r
}

// evict drops a cached record whose referent was collected and whose directory
// no longer loads, so later lookups stop retrying it.
func (li *LazyIndex[R]) evict(id string) {
	li.mu.Lock()
	defer li.mu.Unlock()

	cur := li.index.Load()
	e, ok := cur.byID[id]
	if !ok || e.ref.Get() != nil {
		// reloaded or replaced meanwhile
		return
	}
	next := cur.copy()
	next.remove(id)
	li.index.Store(next)
	li.forgetIDsLocked([]string{id})
	li.logger.Debug("evicted dead record", "id", id, "number", e.number)
}

func (li *LazyIndex[R]) ContainsKey(n int) bool {
	return li.Get(n) != nil
}

func (li *LazyIndex[R]) FirstKey() (int, error) {
	r := li.Search(math.MinInt, common.Asc)
	if r == nil {
		return 0, errors.Wrap(common.ErrNotFound, "first key of empty history")
	}
	return li.numberOf(r), nil
}

func (li *LazyIndex[R]) LastKey() (int, error) {
	r := li.Search(math.MaxInt, common.Desc)
	if r == nil {
		return 0, errors.Wrap(common.ErrNotFound, "last key of empty history")
	}
	return li.numberOf(r), nil
}

// Oldest returns the record with the smallest number, or nil.
func (li *LazyIndex[R]) Oldest() *R {
	return li.Search(math.MinInt, common.Asc)
}

// Newest returns the record with the largest number, or nil.
func (li *LazyIndex[R]) Newest() *R {
	return li.Search(math.MaxInt, common.Desc)
}

func (li *LazyIndex[R]) IsEmpty() bool {
	return li.Newest() == nil
}

// Put adds r to the loaded set and records its directory as present.
// It returns the record previously stored under the same number, if still alive.
func (li *LazyIndex[R]) Put(r *R) *R {
	li.mu.Lock()
	defer li.mu.Unlock()

	next := li.index.Load().copy()
	old := next.put(li.numberOf(r), li.Reference(r))
	li.index.Store(next)
	li.addIDLocked(li.idOf(r))
	li.retain(r)
	return old.Get()
}

func (li *LazyIndex[R]) PutAll(rs []*R) {
	li.mu.Lock()
	defer li.mu.Unlock()

	next := li.index.Load().copy()
	for _, r := range rs {
		next.put(li.numberOf(r), li.Reference(r))
		li.addIDLocked(li.idOf(r))
		li.retain(r)
	}
	li.index.Store(next)
}

func (li *LazyIndex[R]) addIDLocked(id string) {
	cur := li.idOnDisk.Load()
	if cur.Contains(id) {
		return
	}
	next := cur.Clone()
	next.Add(id)
	li.idOnDisk.Store(next)
}

// RemoveValue forgets r entirely: the caches, its directory and its shortcut.
// The caller is expected to have deleted the directory already.
func (li *LazyIndex[R]) RemoveValue(r *R) bool {
	li.mu.Lock()
	defer li.mu.Unlock()

	id, n := li.idOf(r), li.numberOf(r)
	next := li.index.Load().copy()
	had := next.remove(id)
	li.index.Store(next)

	if ids := li.idOnDisk.Load(); ids.Contains(id) {
		c := ids.Clone()
		c.RemoveValue(id)
		li.idOnDisk.Store(c)
	}
	if shortcuts := li.numberOnDisk.Load(); shortcuts.Contains(n) {
		c := shortcuts.Clone()
		c.RemoveValue(n)
		li.numberOnDisk.Store(c)
	}
	if li.retained != nil {
		li.retained.Remove(id)
	}
	return had
}

// Reset replaces the loaded set with exactly rs. Directory listings and the
// fully-loaded flag are left alone.
func (li *LazyIndex[R]) Reset(rs []*R) {
	li.mu.Lock()
	defer li.mu.Unlock()

	next := newSnapshot[R]()
	for _, r := range rs {
		next.put(li.numberOf(r), li.Reference(r))
		li.retain(r)
	}
	li.index.Store(next)
}

// PurgeCache drops everything loaded and rescans the source.
func (li *LazyIndex[R]) PurgeCache() {
	li.mu.Lock()
	defer li.mu.Unlock()

	li.index.Store(newSnapshot[R]())
	li.fullyLoaded.Store(false)
	if li.retained != nil {
		li.retained.Purge()
	}
	li.loadOnDisk()
}

// fullyLoad reads every directory not loaded yet, including cached ones whose
// referent was collected. This is the expensive path.
func (li *LazyIndex[R]) fullyLoad() *snapshot[R] {
	if li.fullyLoaded.Load() {
		return li.index.Load()
	}

	li.mu.Lock()
	defer li.mu.Unlock()
	if li.fullyLoaded.Load() {
		return li.index.Load()
	}

	next := li.index.Load().copy()
	var dead []string
	for _, id := range li.idOnDisk.Load().Values() {
		e, cached := next.byID[id]
		if cached && e.ref.Get() != nil {
			continue
		}
		r := li.retrieve(id, func() (*R, error) { return li.src.Retrieve(id) })
		if r == nil {
			dead = append(dead, id)
			next.remove(id)
			continue
		}
		next.put(li.numberOf(r), li.Reference(r))
	}
	li.index.Store(next)
	if len(dead) > 0 {
		li.forgetIDsLocked(dead)
	}
	li.fullyLoaded.Store(true)
	return next
}

// Entries loads the whole history and returns a view over it.
func (li *LazyIndex[R]) Entries() *View[R] {
	return newView(li, li.fullyLoad().byNumber, math.MinInt, math.MaxInt)
}

// Len loads the whole history and counts it.
func (li *LazyIndex[R]) Len() int {
	return li.fullyLoad().byNumber.Count()
}

// Loaded returns a view over whatever is loaded right now, without reading disk.
func (li *LazyIndex[R]) Loaded() *View[R] {
	return newView(li, li.index.Load().byNumber, math.MinInt, math.MaxInt)
}

// SubMap returns the records numbered in [from, to).
func (li *LazyIndex[R]) SubMap(from, to int) *View[R] {
	if to == math.MinInt {
		return li.rangeView(0, -1)
	}
	return li.rangeView(from, to-1)
}

// HeadMap returns the records numbered below to.
func (li *LazyIndex[R]) HeadMap(to int) *View[R] {
	return li.SubMap(math.MinInt, to)
}

// TailMap returns the records numbered from and above.
func (li *LazyIndex[R]) TailMap(from int) *View[R] {
	return li.rangeView(from, math.MaxInt)
}

// rangeView walks [lo, hi] with Search so every record in it is loaded, then
// returns a view over the resulting snapshot.
func (li *LazyIndex[R]) rangeView(lo, hi int) *View[R] {
	if lo > hi {
		return newView(li, memory.NewNumberTable[*Reference[R]](btreeDegree), lo, hi)
	}
	for r := li.Search(lo, common.Asc); r != nil; {
		n := li.numberOf(r)
		if n >= hi {
			break
		}
		r = li.Search(n+1, common.Asc)
	}
	return newView(li, li.index.Load().byNumber, lo, hi)
}

// IDsOnDisk returns the record directories currently believed to exist.
func (li *LazyIndex[R]) IDsOnDisk() []string {
	return li.idOnDisk.Load().Values()
}

// ShortcutsOnDisk returns the shortcut numbers currently trusted.
func (li *LazyIndex[R]) ShortcutsOnDisk() []int {
	return li.numberOnDisk.Load().Values()
}

// CheckConsistency verifies that byNumber and byID mirror each other.
func (li *LazyIndex[R]) CheckConsistency() error {
	s := li.index.Load()
	if s.byNumber.Count() != len(s.byID) {
		return errors.Wrapf(common.ErrInconsistentState, "byNumber has %d entries, byID has %d",
			s.byNumber.Count(), len(s.byID))
	}
	var err error
	s.byNumber.Iterator(func(n int, ref *Reference[R]) bool {
		if e := s.byID[ref.ID()]; e.ref != ref || e.number != n {
			err = errors.Wrapf(common.ErrInconsistentState, "record %d (%s) missing from byID", n, ref.ID())
			return false
		}
		return true
	})
	return err
}

func (li *LazyIndex[R]) Stats() map[string]interface{} {
	s := li.stats.Snapshot()
	s["loaded"] = li.index.Load().byNumber.Count()
	s["ids_on_disk"] = li.idOnDisk.Load().Len()
	s["shortcuts_on_disk"] = li.numberOnDisk.Load().Len()
	s["fully_loaded"] = li.fullyLoaded.Load()
	return s
}
