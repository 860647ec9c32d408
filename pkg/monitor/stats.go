package monitor

import (
	"sync/atomic"
)

// IndexStats counts what a lazy index did to answer lookups.
// Every counter is mirrored into the package level prometheus vectors under the index name.
type IndexStats struct {
	name string

	Lookups         uint64
	CacheHits       uint64
	ShortcutHits    uint64
	DiskLoads       uint64
	LoadFailures    uint64
	StaleShortcuts  uint64
	DeadDirectories uint64
}

func NewIndexStats(name string) *IndexStats {
	return &IndexStats{name: name}
}

func (s *IndexStats) RecordLookup() {
	atomic.AddUint64(&s.Lookups, 1)
}

func (s *IndexStats) RecordCacheHit() {
	atomic.AddUint64(&s.CacheHits, 1)
	IndexLookups.WithLabelValues(s.name, "cache").Inc()
}

func (s *IndexStats) RecordShortcutHit() {
	atomic.AddUint64(&s.ShortcutHits, 1)
	IndexLookups.WithLabelValues(s.name, "shortcut").Inc()
}

func (s *IndexStats) RecordScan() {
	IndexLookups.WithLabelValues(s.name, "scan").Inc()
}

func (s *IndexStats) RecordLoad(ok bool) {
	if ok {
		atomic.AddUint64(&s.DiskLoads, 1)
		IndexLoads.WithLabelValues(s.name, "ok").Inc()
		return
	}
	atomic.AddUint64(&s.LoadFailures, 1)
	IndexLoads.WithLabelValues(s.name, "failed").Inc()
}

func (s *IndexStats) RecordStaleShortcut() {
	atomic.AddUint64(&s.StaleShortcuts, 1)
	IndexPurges.WithLabelValues(s.name, "shortcut").Inc()
}

func (s *IndexStats) RecordDeadDirectory() {
	atomic.AddUint64(&s.DeadDirectories, 1)
	IndexPurges.WithLabelValues(s.name, "directory").Inc()
}

func (s *IndexStats) GetHitRatio() float64 {
	lookups := atomic.LoadUint64(&s.Lookups)
	hits := atomic.LoadUint64(&s.CacheHits)

	if lookups == 0 {
		return 0.0
	}
	return float64(hits) / float64(lookups)
}

func (s *IndexStats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"lookups":          atomic.LoadUint64(&s.Lookups),
		"cache_hits":       atomic.LoadUint64(&s.CacheHits),
		"shortcut_hits":    atomic.LoadUint64(&s.ShortcutHits),
		"disk_loads":       atomic.LoadUint64(&s.DiskLoads),
		"load_failures":    atomic.LoadUint64(&s.LoadFailures),
		"stale_shortcuts":  atomic.LoadUint64(&s.StaleShortcuts),
		"dead_directories": atomic.LoadUint64(&s.DeadDirectories),
		"hit_ratio":        s.GetHitRatio(),
	}
}
