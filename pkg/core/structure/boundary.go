package structure

// The functions below turn a binary search result into a neighbour index.
// r >= 0 is an exact hit at r; r < 0 means the probe would be inserted at -(r+1).
// Every result lies in [-1, size].

// Lower returns the index of the greatest element strictly less than the probe.
func Lower(r int) int {
	if r >= 0 {
		return r - 1
	}
	return -(r + 1) - 1
}

// Higher returns the index of the smallest element strictly greater than the probe.
func Higher(r int) int {
	if r >= 0 {
		return r + 1
	}
	return -(r + 1)
}

// Floor returns the index of the greatest element less than or equal to the probe.
func Floor(r int) int {
	if r >= 0 {
		return r
	}
	return -(r + 1) - 1
}

// Ceil returns the index of the smallest element greater than or equal to the probe.
func Ceil(r int) int {
	if r >= 0 {
		return r
	}
	return -(r + 1)
}
