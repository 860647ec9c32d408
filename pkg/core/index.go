package core

import (
	"historydb/pkg/common"
)

// Source is the addressable store a LazyIndex reads records from.
// It is normally a directory holding one sub-directory per record ID plus
// optional shortcut entries named by record number.
type Source[R any] interface {
	// ListIDs returns the names of all record directories.
	ListIDs() ([]string, error)
	// ListShortcuts returns the numbers of all shortcut entries.
	ListShortcuts() ([]int, error)
	// Retrieve parses the record stored under id. A nil record with a nil error
	// means the directory holds nothing usable.
	Retrieve(id string) (*R, error)
	// RetrieveShortcut parses whatever record the shortcut for number points at.
	// The result may carry a different number when the shortcut is stale.
	RetrieveShortcut(number int) (*R, error)
}

// Index is the ordered-map contract over a record history, ascending by number.
type Index[R any] interface {
	Get(number int) *R
	GetByID(id string) *R
	Search(number int, d common.Direction) *R
	FirstKey() (int, error)
	LastKey() (int, error)
	SubMap(from, to int) *View[R]
	HeadMap(to int) *View[R]
	TailMap(from int) *View[R]
	Put(r *R) *R
	PutAll(rs []*R)
	RemoveValue(r *R) bool
	Reset(rs []*R)
	Entries() *View[R]
}

var _ Index[struct{}] = (*LazyIndex[struct{}])(nil)
