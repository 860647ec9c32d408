package core

import "weak"

const noneID = "NONE"

// Reference is a weak handle to a loaded record.
// Identity is the record ID alone, so a reference whose referent has been
// collected still names the record and can be used to reload it.
type Reference[R any] struct {
	id   string
	none bool
	ptr  weak.Pointer[R]
}

func newReference[R any](id string, r *R) *Reference[R] {
	return &Reference[R]{id: id, ptr: weak.Make(r)}
}

// None returns a reference that marks a confirmed absence.
// It is distinct from a nil *Reference, which means "not determined yet".
func None[R any]() *Reference[R] {
	return &Reference[R]{id: noneID, none: true}
}

func (ref *Reference[R]) ID() string {
	return ref.id
}

// Get returns the referent, or nil if it was collected or ref is None.
func (ref *Reference[R]) Get() *R {
	if ref == nil || ref.none {
		return nil
	}
	return ref.ptr.Value()
}

func (ref *Reference[R]) IsNone() bool {
	return ref != nil && ref.none
}

func (ref *Reference[R]) Equal(other *Reference[R]) bool {
	if ref == nil || other == nil {
		return ref == other
	}
	return ref.none == other.none && ref.id == other.id
}

func (ref *Reference[R]) String() string {
	return ref.id
}
