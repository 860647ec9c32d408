package record

import (
	"math"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"historydb/pkg/common"
	"historydb/pkg/config"
	"historydb/pkg/core"
	"historydb/pkg/monitor"
	"historydb/pkg/storage"
)

// History is a lazily loaded, linked view of the records in one store.
type History struct {
	*core.LazyIndex[Record]
	links *core.Linker[Record]
	store storage.Store[Record]
}

// Open builds a History over the backend named in cfg and registers the index
// metrics with the default registry.
func Open(cfg *config.Config, opts ...core.Option) (*History, error) {
	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := monitor.Register(prometheus.DefaultRegisterer); err != nil {
		store.Close()
		return nil, errors.Wrap(err, "register metrics")
	}

	logger := common.NewDefaultLogger(common.ParseLevel(cfg.Log.Level))
	base := []core.Option{
		core.WithName(cfg.Storage.Path),
		core.WithLogger(logger),
		core.WithRetention(cfg.Cache.Retain),
	}
	return New(store, append(base, opts...)...), nil
}

func openStore(sc config.StorageConfig) (storage.Store[Record], error) {
	switch sc.Backend {
	case config.BackendSQLite:
		return storage.NewSQLiteSource(sc.Path, Parse)
	case config.BackendDir, "":
		return storage.NewDirSource(sc.Path, sc.RecordFile, Parse)
	}
	return nil, errors.Errorf("unknown storage backend %q", sc.Backend)
}

// New wraps an already opened store.
func New(store storage.Store[Record], opts ...core.Option) *History {
	idx := core.NewLazyIndex[Record](store, NumberOf, IDOf, opts...)
	return &History{
		LazyIndex: idx,
		links:     core.NewLinker(idx, (*Record).HistoryLinks),
		store:     store,
	}
}

func (h *History) Previous(r *Record) *Record {
	return h.links.Previous(r)
}

func (h *History) Next(r *Record) *Record {
	return h.links.Next(r)
}

// Add stores r, points its number shortcut at it and puts it in the index.
// Once the record is saved it is indexed even if linking the shortcut fails;
// that error is still returned, and lookups of r fall back to scanning.
func (h *History) Add(r *Record) error {
	body, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := h.store.Save(r.ID, r.Number, body); err != nil {
		return err
	}
	linkErr := h.store.Link(r.Number, r.ID)
	h.Put(r)
	if r.Number > math.MinInt {
		if prev := h.Search(r.Number-1, common.Desc); prev != nil {
			h.links.Invalidate(prev)
		}
	}
	if r.Number < math.MaxInt {
		if next := h.Search(r.Number+1, common.Asc); next != nil {
			h.links.Invalidate(next)
		}
	}
	return linkErr
}

// Delete removes r from the store and the index and splices it out of the chain.
func (h *History) Delete(r *Record) error {
	if err := h.store.Delete(r.ID); err != nil {
		return err
	}
	h.RemoveValue(r)
	h.links.DropLinks(r)
	return nil
}

func (h *History) Close() error {
	return h.store.Close()
}
