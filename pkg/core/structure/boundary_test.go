package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundaryExactHit(t *testing.T) {
	assert.Equal(t, 2, Lower(3))
	assert.Equal(t, 4, Higher(3))
	assert.Equal(t, 3, Floor(3))
	assert.Equal(t, 3, Ceil(3))
}

func TestBoundaryInsertionPoint(t *testing.T) {
	// would insert at 2
	r := -3
	assert.Equal(t, 1, Lower(r))
	assert.Equal(t, 2, Higher(r))
	assert.Equal(t, 1, Floor(r))
	assert.Equal(t, 2, Ceil(r))
}

func TestBoundaryEdges(t *testing.T) {
	// before everything
	assert.Equal(t, -1, Lower(-1))
	assert.Equal(t, -1, Floor(-1))
	assert.Equal(t, 0, Ceil(-1))
	assert.Equal(t, -1, Lower(0))
	// past the end of a 4 element list
	assert.Equal(t, 4, Higher(-5))
	assert.Equal(t, 3, Floor(-5))
}
