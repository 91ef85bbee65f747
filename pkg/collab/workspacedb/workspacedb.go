// Package workspacedb models the per-workspace workspace-database meta
// collab: the map from database id to the list of views that render it.
package workspacedb

import (
	"fmt"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
)

// Entry links a database id to the views that render it.
type Entry struct {
	DatabaseID  string   `json:"database_id"`
	LinkedViews []string `json:"linked_views"`
}

// Data is the full decoded workspace-database meta collab.
type Data struct {
	Databases map[string]*Entry `json:"databases"`
}

// Load decodes an encoded WorkspaceDatabase collab.
func Load(enc collab.EncodedV1) (*Data, error) {
	var d Data
	if err := collab.Decode(enc, &d); err != nil {
		return nil, fmt.Errorf("workspacedb: load: %w", err)
	}
	if d.Databases == nil {
		d.Databases = map[string]*Entry{}
	}
	return &d, nil
}

// Encode re-serialises the workspace-database meta collab.
func (d *Data) Encode() (collab.EncodedV1, error) {
	return collab.Encode(d)
}

// Update is the incremental CRDT update captured by AddDatabases.
type Update struct {
	AddedDatabases []*Entry `json:"added_databases"`
}

// AddDatabases appends one linked-view entry per new database, in map
// iteration order, mirroring DatabaseMetaList::add_database_with_txn called
// once per workspace_databases entry inside a single CRDT transaction.
func (d *Data) AddDatabases(links map[string][]string) (collab.EncodedV1, error) {
	added := make([]*Entry, 0, len(links))
	for dbID, views := range links {
		e := &Entry{DatabaseID: dbID, LinkedViews: views}
		d.Databases[dbID] = e
		added = append(added, e)
	}
	return collab.Encode(Update{AddedDatabases: added})
}
