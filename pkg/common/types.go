package common

import "fmt"

// Direction selects which neighbour a search settles on when there is no exact match.
type Direction int

const (
	// Exact matches only the requested number.
	Exact Direction = iota
	// Asc settles on the smallest number >= the probe.
	Asc
	// Desc settles on the largest number <= the probe.
	Desc
)

func (d Direction) String() string {
	switch d {
	case Exact:
		return "exact"
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}
