// Package idrewriter owns the old-id -> new-id mapping that breaks reference
// cycles in the collab graph: assigning the new id before recursing into a
// page's references means a later visit of the same old id resolves to
// Pending instead of recursing again.
package idrewriter

import "github.com/google/uuid"

// Lookup is the result of checking whether an old id has already been seen.
type Lookup int

const (
	// Unknown means the old id has not been seen in this run yet.
	Unknown Lookup = iota
	// Pending means the old id was assigned a new id (which may still be
	// under construction, if this is a cycle-breaking re-visit).
	Pending
	// Tombstone means the old id was found to be unpublished.
	Tombstone
)

// IDRewriter owns duplicated_refs for one Duplicator.Run.
type IDRewriter struct {
	refs map[string]*string
}

// New returns an empty IDRewriter.
func New() *IDRewriter {
	return &IDRewriter{refs: make(map[string]*string)}
}

// Lookup reports what is currently known about oldID.
func (r *IDRewriter) Lookup(oldID string) (Lookup, string) {
	newID, seen := r.refs[oldID]
	if !seen {
		return Unknown, ""
	}
	if newID == nil {
		return Tombstone, ""
	}
	return Pending, *newID
}

// Assign generates a fresh id for oldID and records it before any recursive
// call, so a cycle back to oldID resolves via Lookup instead of recursing.
// Calling Assign twice for the same oldID without an intervening Lookup
// miss is a programmer error — the caller must always Lookup first.
func (r *IDRewriter) Assign(oldID string) string {
	newID := uuid.NewString()
	r.refs[oldID] = &newID
	return newID
}

// Tombstone records that oldID could not be duplicated because its target is
// unpublished.
func (r *IDRewriter) Tombstone(oldID string) {
	r.refs[oldID] = nil
}

// NewID allocates a fresh random id, for ids that never need a Lookup (row
// ids, sibling database view ids, the three ids allocated per embedded
// database block).
func NewID() string {
	return uuid.NewString()
}
