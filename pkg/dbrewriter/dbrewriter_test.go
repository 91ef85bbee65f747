package dbrewriter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/collab-duplicator/pkg/collab/databasecrdt"
	"github.com/kasuganosora/collab-duplicator/pkg/collabstore"
	"github.com/kasuganosora/collab-duplicator/pkg/duprun"
	"github.com/kasuganosora/collab-duplicator/pkg/idrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
	"github.com/kasuganosora/collab-duplicator/pkg/testfixture"
)

func newState(t *testing.T) *duprun.State {
	db, err := testfixture.OpenDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := collabstore.New(db)
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	return &duprun.State{
		Ctx:                ctx,
		Tx:                 tx,
		CollabStore:        store,
		IDs:                idrewriter.New(),
		WorkspaceID:        "ws-1",
		UID:                1,
		TsNow:              1000,
		WorkspaceDatabases: make(map[string][]string),
	}
}

func encodeDB(t *testing.T, c *databasecrdt.Collab) []byte {
	enc, err := c.Encode()
	require.NoError(t, err)
	return enc.ToBytes()
}

func encodeRow(t *testing.T, r *databasecrdt.RowCollab) []byte {
	enc, err := r.Encode()
	require.NoError(t, err)
	return enc.ToBytes()
}

func TestDeepCopyDatabaseDropsInvisibleViews(t *testing.T) {
	state := newState(t)

	dbCollab := &databasecrdt.Collab{Database: databasecrdt.Section{
		ID:     "old-db",
		Fields: databasecrdt.Fields{ID: "old-db"},
		Views: map[string]*databasecrdt.View{
			"main-view":   {ID: "main-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutGrid, RowOrders: []databasecrdt.RowOrder{{ID: "row-1"}}},
			"hidden-view": {ID: "hidden-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutGrid},
		},
	}}
	row := &databasecrdt.RowCollab{Data: databasecrdt.Row{ID: "row-1", DatabaseID: "old-db"}}

	payload := publishmeta.PublishDatabaseData{
		DatabaseCollab:         encodeDB(t, dbCollab),
		DatabaseRowCollabs:     map[string][]byte{"row-1": encodeRow(t, row)},
		VisibleDatabaseViewIDs: nil,
	}
	metadata := publishmeta.MetaData{View: publishmeta.ViewInfo{ViewID: "main-view", Name: "Main"}}

	view, err := DeepCopyDatabase(state, payload, metadata, "main-view", "new-main-view", "new-db")
	require.NoError(t, err)
	assert.Equal(t, "new-main-view", view.ID)
	assert.Equal(t, "Main", view.Name)

	assert.Equal(t, []string{"new-main-view"}, state.WorkspaceDatabases["new-db"])

	enc, err := state.CollabStore.GetLatestEncoded(state.Ctx, nil, "new-db")
	require.NoError(t, err)
	newDBCollab, err := databasecrdt.Load(enc)
	require.NoError(t, err)
	assert.Len(t, newDBCollab.Views(), 1)
	assert.Equal(t, "new-db", newDBCollab.Database.ID)
	assert.Equal(t, "new-db", newDBCollab.Database.Fields.ID)
}

func TestDeepCopyDatabaseKeepsVisibleSiblingsAndRemapsRowOrders(t *testing.T) {
	state := newState(t)

	dbCollab := &databasecrdt.Collab{Database: databasecrdt.Section{
		ID:     "old-db",
		Fields: databasecrdt.Fields{ID: "old-db"},
		Views: map[string]*databasecrdt.View{
			"main-view":    {ID: "main-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutGrid, RowOrders: []databasecrdt.RowOrder{{ID: "row-1"}, {ID: "row-2"}}},
			"sibling-view": {ID: "sibling-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutBoard, RowOrders: []databasecrdt.RowOrder{{ID: "row-1"}}},
		},
	}}
	row1 := &databasecrdt.RowCollab{Data: databasecrdt.Row{ID: "row-1", DatabaseID: "old-db"}}
	row2 := &databasecrdt.RowCollab{Data: databasecrdt.Row{ID: "row-2", DatabaseID: "old-db"}}

	payload := publishmeta.PublishDatabaseData{
		DatabaseCollab: encodeDB(t, dbCollab),
		DatabaseRowCollabs: map[string][]byte{
			"row-1": encodeRow(t, row1),
			"row-2": encodeRow(t, row2),
		},
		VisibleDatabaseViewIDs: []string{"main-view", "sibling-view"},
	}
	metadata := publishmeta.MetaData{
		View:       publishmeta.ViewInfo{ViewID: "main-view", Name: "Main"},
		ChildViews: []publishmeta.ViewInfo{{ViewID: "sibling-view", Name: "Sibling"}},
	}

	view, err := DeepCopyDatabase(state, payload, metadata, "main-view", "new-main-view", "new-db")
	require.NoError(t, err)
	assert.Equal(t, "new-main-view", view.ID)

	assert.Len(t, state.WorkspaceDatabases["new-db"], 2)
	require.Len(t, state.ViewsToAdd, 1)
	assert.Equal(t, "Sibling", state.ViewsToAdd[0].Name)
	assert.Equal(t, "new-main-view", state.ViewsToAdd[0].ParentViewID)

	enc, err := state.CollabStore.GetLatestEncoded(state.Ctx, nil, "new-db")
	require.NoError(t, err)
	newDBCollab, err := databasecrdt.Load(enc)
	require.NoError(t, err)
	require.Len(t, newDBCollab.Views(), 2)
	for _, v := range newDBCollab.Views() {
		for _, ro := range v.RowOrders {
			assert.NotEqual(t, "row-1", ro.ID)
			assert.NotEqual(t, "row-2", ro.ID)
		}
	}

	rows, err := state.Tx.Query(`SELECT collab_type FROM collab WHERE collab_type = 'database_row'`)
	require.NoError(t, err)
	defer rows.Close()
	var n int
	for rows.Next() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestDeepCopyDatabaseErrorsWhenNoViewsSelected(t *testing.T) {
	state := newState(t)
	dbCollab := &databasecrdt.Collab{Database: databasecrdt.Section{ID: "old-db", Fields: databasecrdt.Fields{ID: "old-db"}, Views: map[string]*databasecrdt.View{}}}
	payload := publishmeta.PublishDatabaseData{DatabaseCollab: encodeDB(t, dbCollab)}
	metadata := publishmeta.MetaData{View: publishmeta.ViewInfo{ViewID: "main-view", Name: "Main"}}

	_, err := DeepCopyDatabase(state, payload, metadata, "main-view", "new-main-view", "new-db")
	assert.Error(t, err)
}

func TestDeepCopyDatabaseErrorsWhenSiblingMetadataMissing(t *testing.T) {
	state := newState(t)
	dbCollab := &databasecrdt.Collab{Database: databasecrdt.Section{
		ID:     "old-db",
		Fields: databasecrdt.Fields{ID: "old-db"},
		Views: map[string]*databasecrdt.View{
			"main-view":    {ID: "main-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutGrid},
			"sibling-view": {ID: "sibling-view", DatabaseID: "old-db", Layout: databasecrdt.LayoutGrid},
		},
	}}
	payload := publishmeta.PublishDatabaseData{
		DatabaseCollab:         encodeDB(t, dbCollab),
		VisibleDatabaseViewIDs: []string{"main-view", "sibling-view"},
	}
	// No ChildViews entry for sibling-view.
	metadata := publishmeta.MetaData{View: publishmeta.ViewInfo{ViewID: "main-view", Name: "Main"}}

	_, err := DeepCopyDatabase(state, payload, metadata, "main-view", "new-main-view", "new-db")
	assert.Error(t, err)
}
