// Package folder models the per-workspace folder CRDT: the tree of View
// entries that locate every collab within a workspace.
package folder

import (
	"fmt"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
)

// ViewLayout is the rendering mode of a folder entry.
type ViewLayout string

const (
	LayoutDocument ViewLayout = "document"
	LayoutGrid     ViewLayout = "grid"
	LayoutBoard    ViewLayout = "board"
	LayoutCalendar ViewLayout = "calendar"
)

// Identifier is a reference to a child view, by id.
type Identifier struct {
	ID string `json:"id"`
}

// View is one folder entry.
type View struct {
	ID             string       `json:"id"`
	ParentViewID   string       `json:"parent_view_id"`
	Name           string       `json:"name"`
	Desc           string       `json:"desc"`
	Children       []Identifier `json:"children"`
	CreatedAt      int64        `json:"created_at"`
	CreatedBy      int64        `json:"created_by"`
	LastEditedTime int64        `json:"last_edited_time"`
	LastEditedBy   int64        `json:"last_edited_by"`
	IsFavorite     bool         `json:"is_favorite"`
	Layout         ViewLayout   `json:"layout"`
	Icon           string       `json:"icon,omitempty"`
	Extra          string       `json:"extra,omitempty"`
}

// AddChild appends a ViewIdentifier to the view's children list.
func (v *View) AddChild(childID string) {
	v.Children = append(v.Children, Identifier{ID: childID})
}

// Data is the full decoded folder collab.
type Data struct {
	Views map[string]*View `json:"views"`
}

// Load decodes an encoded Folder collab.
func Load(enc collab.EncodedV1) (*Data, error) {
	var d Data
	if err := collab.Decode(enc, &d); err != nil {
		return nil, fmt.Errorf("folder: load: %w", err)
	}
	if d.Views == nil {
		d.Views = map[string]*View{}
	}
	return &d, nil
}

// Encode re-serialises the folder collab.
func (d *Data) Encode() (collab.EncodedV1, error) {
	return collab.Encode(d)
}

// InsertView inserts or replaces a view.
func (d *Data) InsertView(v *View) {
	d.Views[v.ID] = v
}

// Update is the incremental CRDT update captured by an insert operation,
// broadcast to live editing sessions after the full collab state has been
// written to storage.
type Update struct {
	InsertedViews []*View `json:"inserted_views"`
}

// InsertViews inserts root followed by every view in rest, in order, and
// returns the encoded update for that single operation — mirroring
// Folder::get_updates_for_op wrapping one batch of insert_view calls.
func (d *Data) InsertViews(root *View, rest []*View) (collab.EncodedV1, error) {
	ordered := make([]*View, 0, len(rest)+1)
	ordered = append(ordered, root)
	ordered = append(ordered, rest...)
	for _, v := range ordered {
		d.InsertView(v)
	}
	return collab.Encode(Update{InsertedViews: ordered})
}
