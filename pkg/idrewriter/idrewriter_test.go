package idrewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUnknownByDefault(t *testing.T) {
	r := New()
	state, _ := r.Lookup("old-1")
	assert.Equal(t, Unknown, state)
}

func TestAssignThenLookupPending(t *testing.T) {
	r := New()
	newID := r.Assign("old-1")
	require.NotEmpty(t, newID)

	state, got := r.Lookup("old-1")
	assert.Equal(t, Pending, state)
	assert.Equal(t, newID, got)
}

func TestTombstoneThenLookup(t *testing.T) {
	r := New()
	r.Tombstone("old-1")

	state, got := r.Lookup("old-1")
	assert.Equal(t, Tombstone, state)
	assert.Empty(t, got)
}

func TestAssignIsUniquePerCall(t *testing.T) {
	r := New()
	a := r.Assign("old-1")
	b := r.Assign("old-2")
	assert.NotEqual(t, a, b)
}

func TestCycleBreaking(t *testing.T) {
	// Page A mentions B, B mentions A. Visiting A assigns its new id up
	// front; when the walk reaches B and then back to A, the second visit
	// of A must resolve to Pending rather than recursing again.
	r := New()
	newA := r.Assign("A")

	state, _ := r.Lookup("B")
	assert.Equal(t, Unknown, state)
	newB := r.Assign("B")

	state, got := r.Lookup("A")
	assert.Equal(t, Pending, state)
	assert.Equal(t, newA, got)
	assert.NotEqual(t, newA, newB)
}
