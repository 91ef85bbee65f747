// Package dbrewriter implements DbRewriter (spec §4.3): cloning a published
// database collab and its row collabs, reassigning the database id, every
// row id, and every retained view's id.
package dbrewriter

import (
	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/databasecrdt"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
	"github.com/kasuganosora/collab-duplicator/pkg/duprun"
	"github.com/kasuganosora/collab-duplicator/pkg/idrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
	"github.com/kasuganosora/collab-duplicator/pkg/viewbuilder"
)

// DeepCopyDatabase clones payload's database and row collabs into
// state.WorkspaceID under newDBID, retaining only the view at oldViewID and
// any view listed in payload.VisibleDatabaseViewIDs. It returns the
// folder-level View for oldViewID (the "selected view"); its ParentViewID is
// left for the caller to fill in, since that depends on where the database
// was discovered (embedded in a document, or the duplication root).
func DeepCopyDatabase(state *duprun.State, payload publishmeta.PublishDatabaseData, metadata publishmeta.MetaData, oldViewID, newViewID, newDBID string) (*folder.View, error) {
	rowIDMap, err := cloneRows(state, payload.DatabaseRowCollabs, newDBID)
	if err != nil {
		return nil, err
	}

	dbCollab, err := loadDatabase(payload.DatabaseCollab)
	if err != nil {
		return nil, err
	}
	dbCollab.SetID(newDBID)

	selected := selectViews(dbCollab.Views(), oldViewID, payload.VisibleDatabaseViewIDs)
	if len(selected) == 0 {
		return nil, duperr.NewRecordNotFound("no (visible) views found in database")
	}

	viewInfoByID := publishmeta.ViewInfoByID(metadata)

	selectedView, newDBViewIDs, err := rewriteViews(state, selected, viewInfoByID, metadata, oldViewID, newViewID, newDBID)
	if err != nil {
		return nil, err
	}

	if err := rewriteRowOrders(selected, rowIDMap); err != nil {
		return nil, err
	}

	dbCollab.ReplaceViews(selected)

	if state.WorkspaceDatabases == nil {
		state.WorkspaceDatabases = make(map[string][]string)
	}
	state.WorkspaceDatabases[newDBID] = newDBViewIDs

	encOut, err := dbCollab.Encode()
	if err != nil {
		return nil, duperr.NewCodec("encode rewritten database", err)
	}
	if err := state.CollabStore.InsertNewCollabWithTransaction(state.Ctx, state.Tx, state.WorkspaceID, state.UID, newDBID, encOut, collab.TypeDatabase); err != nil {
		return nil, err
	}

	return selectedView, nil
}

func cloneRows(state *duprun.State, rows map[string][]byte, newDBID string) (map[string]string, error) {
	rowIDMap := make(map[string]string, len(rows))
	for oldRowID, rowBlob := range rows {
		newRowID := idrewriter.NewID()

		enc, err := collab.FromBytes(rowBlob)
		if err != nil {
			return nil, duperr.NewCodec("decode published row blob", err)
		}
		rowCollab, err := databasecrdt.LoadRow(enc)
		if err != nil {
			return nil, duperr.NewCodec("load row data", err)
		}
		rowCollab.Rewrite(newRowID, newDBID)

		encOut, err := rowCollab.Encode()
		if err != nil {
			return nil, duperr.NewCodec("encode rewritten row", err)
		}
		if err := state.CollabStore.InsertNewCollabWithTransaction(state.Ctx, state.Tx, state.WorkspaceID, state.UID, newRowID, encOut, collab.TypeDatabaseRow); err != nil {
			return nil, err
		}
		rowIDMap[oldRowID] = newRowID
	}
	return rowIDMap, nil
}

func loadDatabase(blob []byte) (*databasecrdt.Collab, error) {
	enc, err := collab.FromBytes(blob)
	if err != nil {
		return nil, duperr.NewCodec("decode published database blob", err)
	}
	dbCollab, err := databasecrdt.Load(enc)
	if err != nil {
		return nil, duperr.NewCodec("load database data", err)
	}
	return dbCollab, nil
}

func selectViews(views []*databasecrdt.View, oldViewID string, visibleIDs []string) []*databasecrdt.View {
	visible := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}
	var selected []*databasecrdt.View
	for _, v := range views {
		if v.ID == oldViewID || visible[v.ID] {
			selected = append(selected, v)
		}
	}
	return selected
}

func rewriteViews(state *duprun.State, selected []*databasecrdt.View, viewInfoByID map[string]publishmeta.ViewInfo, metadata publishmeta.MetaData, oldViewID, newViewID, newDBID string) (*folder.View, []string, error) {
	var selectedView *folder.View
	newDBViewIDs := make([]string, 0, len(selected))

	for _, v := range selected {
		oldVID := v.ID
		v.DatabaseID = newDBID

		if oldVID == oldViewID {
			v.ID = newViewID
			newDBViewIDs = append(newDBViewIDs, newViewID)
			selectedView = viewbuilder.FromMetadata(newViewID, metadata.View, layoutToFolder(v.Layout), state.TsNow, state.UID)
			continue
		}

		info, ok := viewInfoByID[oldVID]
		if !ok {
			return nil, nil, duperr.NewRecordNotFound("view metadata not found: " + oldVID)
		}
		otherID := idrewriter.NewID()
		v.ID = otherID
		newDBViewIDs = append(newDBViewIDs, otherID)

		sibling := viewbuilder.FromMetadata(otherID, info, layoutToFolder(v.Layout), state.TsNow, state.UID)
		sibling.ParentViewID = newViewID
		state.AddView(sibling)
	}

	return selectedView, newDBViewIDs, nil
}

func rewriteRowOrders(views []*databasecrdt.View, rowIDMap map[string]string) error {
	for _, v := range views {
		for i, ro := range v.RowOrders {
			newRowID, ok := rowIDMap[ro.ID]
			if !ok {
				return duperr.NewRecordNotFound("row not found: " + ro.ID)
			}
			v.RowOrders[i].ID = newRowID
		}
	}
	return nil
}

func layoutToFolder(l databasecrdt.Layout) folder.ViewLayout {
	switch l {
	case databasecrdt.LayoutBoard:
		return folder.LayoutBoard
	case databasecrdt.LayoutCalendar:
		return folder.LayoutCalendar
	default:
		return folder.LayoutGrid
	}
}
