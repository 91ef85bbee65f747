// Package publishmeta holds the metadata shape attached to every published
// view: the root view's own info plus its ancestor chain and the recursive
// tree of child views, as stored alongside the published blob.
package publishmeta

import "github.com/kasuganosora/collab-duplicator/pkg/collab/folder"

// ViewInfo is the published-view-facing subset of a View: the fields a
// duplicate's folder entry is built from.
type ViewInfo struct {
	ViewID     string            `json:"view_id"`
	Name       string            `json:"name"`
	Icon       string            `json:"icon,omitempty"`
	Layout     folder.ViewLayout `json:"layout"`
	Extra      string            `json:"extra,omitempty"`
	ChildViews []ViewInfo        `json:"child_views,omitempty"`
}

// MetaData is the full PublishViewMetaData contract.
type MetaData struct {
	View          ViewInfo   `json:"view"`
	AncestorViews []ViewInfo `json:"ancestor_views"`
	ChildViews    []ViewInfo `json:"child_views"`
}

// ViewInfoByID flattens the metadata's root view and its recursive
// child_views into a lookup keyed by view id, used to find a sibling
// database view's display metadata.
func ViewInfoByID(meta MetaData) map[string]ViewInfo {
	acc := map[string]ViewInfo{meta.View.ViewID: meta.View}
	collectChildren(acc, meta.ChildViews)
	return acc
}

func collectChildren(acc map[string]ViewInfo, children []ViewInfo) {
	for _, c := range children {
		acc[c.ViewID] = c
		if len(c.ChildViews) > 0 {
			collectChildren(acc, c.ChildViews)
		}
	}
}

// SecondLastAncestor returns the parent of the published view's own doc view
// — the second-to-last entry of the root-to-leaf ancestor chain. Nothing in
// this module calls it; embedded database folder views are parented under
// the document view that embeds them.
func SecondLastAncestor(meta MetaData) (ViewInfo, bool) {
	n := len(meta.AncestorViews)
	if n < 2 {
		return ViewInfo{}, false
	}
	return meta.AncestorViews[n-2], true
}

// PublishDatabaseData is the JSON-encoded payload for a published Database
// collab_type.
type PublishDatabaseData struct {
	DatabaseCollab         []byte            `json:"database_collab"`
	DatabaseRowCollabs     map[string][]byte `json:"database_row_collabs"`
	VisibleDatabaseViewIDs []string          `json:"visible_database_view_ids"`
}
