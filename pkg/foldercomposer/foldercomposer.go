// Package foldercomposer implements FolderComposer (spec §4.4): the
// finalisation step run once per duplication, after all recursion
// completes, which links any new databases into the workspace-database
// meta collab and inserts the new view hierarchy into the destination
// folder collab.
package foldercomposer

import (
	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/workspacedb"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
	"github.com/kasuganosora/collab-duplicator/pkg/duprun"
)

// Finalize links state.WorkspaceDatabases into the workspace-database meta
// collab (if any were discovered), then inserts rootView (parented under
// destViewID) and every view in state.ViewsToAdd into the destination
// folder collab. msgID tags the broadcasts emitted along the way — the
// run's single wall-clock timestamp, per spec.
func Finalize(state *duprun.State, rootView *folder.View, destViewID, destWorkspaceID string, msgID int64) error {
	if len(state.WorkspaceDatabases) > 0 {
		if err := linkWorkspaceDatabases(state, destWorkspaceID, msgID); err != nil {
			return err
		}
	}

	rootView.ParentViewID = destViewID

	folderEnc, err := state.CollabStore.GetLatestEncoded(state.Ctx, state.Groups, destWorkspaceID)
	if err != nil {
		return err
	}
	folderData, err := folder.Load(folderEnc)
	if err != nil {
		return duperr.NewCodec("load folder", err)
	}

	update, err := folderData.InsertViews(rootView, state.ViewsToAdd)
	if err != nil {
		return duperr.NewCodec("encode folder update", err)
	}

	folderOut, err := folderData.Encode()
	if err != nil {
		return duperr.NewCodec("encode folder", err)
	}
	if err := state.CollabStore.InsertNewCollabWithTransaction(state.Ctx, state.Tx, destWorkspaceID, state.UID, destWorkspaceID, folderOut, collab.TypeFolder); err != nil {
		return err
	}

	if state.Groups != nil {
		state.Groups.BroadcastUpdate(state.Logger, destWorkspaceID, update, msgID)
	}

	return nil
}

func linkWorkspaceDatabases(state *duprun.State, destWorkspaceID string, msgID int64) error {
	wsdbOID, err := state.CollabStore.SelectWorkspaceDatabaseOID(state.Ctx, destWorkspaceID)
	if err != nil {
		return err
	}

	enc, err := state.CollabStore.GetLatestEncoded(state.Ctx, state.Groups, wsdbOID)
	if err != nil {
		return err
	}
	wsdb, err := workspacedb.Load(enc)
	if err != nil {
		return duperr.NewCodec("load workspace database meta", err)
	}

	update, err := wsdb.AddDatabases(state.WorkspaceDatabases)
	if err != nil {
		return duperr.NewCodec("encode workspace database update", err)
	}

	// Broadcast happens before the meta collab is re-inserted, matching the
	// original ordering: the workspace-database object already carries the
	// group's in-memory copy forward, so the store write below only needs
	// to catch it up.
	if state.Groups != nil {
		state.Groups.BroadcastUpdate(state.Logger, wsdbOID, update, msgID)
	}

	encOut, err := wsdb.Encode()
	if err != nil {
		return duperr.NewCodec("encode workspace database meta", err)
	}
	return state.CollabStore.InsertNewCollabWithTransaction(state.Ctx, state.Tx, destWorkspaceID, state.UID, wsdbOID, encOut, collab.TypeWorkspaceDatabase)
}
