package common

import "errors"

var (
	ErrNotFound          = errors.New("historydb: no such record")
	ErrUnsupported       = errors.New("historydb: operation not supported by view")
	ErrInconsistentState = errors.New("historydb: index caches disagree")
	ErrRetrieval         = errors.New("historydb: record directory could not be retrieved")
)
