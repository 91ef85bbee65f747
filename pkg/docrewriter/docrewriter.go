// Package docrewriter implements DocRewriter (spec §4.2): walking a
// document's block/delta tree, rewriting page mentions (recursing through
// DeepCopy itself — pages only ever mention other pages), rewriting the
// text-map mirror of those mentions, and deep-copying any embedded database
// blocks via dbrewriter.
package docrewriter

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/document"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/dbrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
	"github.com/kasuganosora/collab-duplicator/pkg/duprun"
	"github.com/kasuganosora/collab-duplicator/pkg/idrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
	"github.com/kasuganosora/collab-duplicator/pkg/viewbuilder"
)

// DeepCopy duplicates the document published at oldViewID into newViewID.
// It returns (nil, nil) if oldViewID has no published blob — the tombstone
// case, left for the caller to record — and a non-nil error only for a hard
// failure (parse, codec, storage, or a referenced row/view genuinely
// missing).
func DeepCopy(state *duprun.State, oldViewID, newViewID string) (*folder.View, error) {
	published, err := state.PublishStore.GetPublishedDataForViewID(state.Ctx, state.Tx, oldViewID)
	if err != nil {
		return nil, err
	}
	if published == nil {
		return nil, nil
	}

	enc, err := collab.FromBytes(published.Blob)
	if err != nil {
		return nil, duperr.NewCodec("decode published document blob", err)
	}
	doc, err := document.Load(enc)
	if err != nil {
		return nil, duperr.NewCodec("load document data", err)
	}

	view := viewbuilder.FromMetadata(newViewID, published.Metadata.View, folder.LayoutDocument, state.TsNow, state.UID)

	if err := rewritePageMentions(state, doc, view); err != nil {
		return nil, err
	}
	rewriteTextMap(state, doc)
	if err := rewriteEmbeddedDatabases(state, doc, view); err != nil {
		return nil, err
	}

	encOut, err := doc.Encode()
	if err != nil {
		return nil, duperr.NewCodec("encode rewritten document", err)
	}
	if err := state.CollabStore.InsertNewCollabWithTransaction(state.Ctx, state.Tx, state.WorkspaceID, state.UID, view.ID, encOut, collab.TypeDocument); err != nil {
		return nil, err
	}

	return view, nil
}

func rewritePageMentions(state *duprun.State, doc *document.Data, view *folder.View) error {
	for _, mention := range doc.PageMentions() {
		oldPageID := mention.PageID

		lookupState, existing := state.IDs.Lookup(oldPageID)
		switch lookupState {
		case idrewriter.Pending:
			mention.Rewrite(existing)
			view.AddChild(existing)
		case idrewriter.Tombstone:
			// leave the mention pointing at the old, unpublished id
		default:
			childNewID := state.IDs.Assign(oldPageID)
			childView, err := DeepCopy(state, oldPageID, childNewID)
			if err != nil {
				return err
			}
			if childView == nil {
				state.IDs.Tombstone(oldPageID)
				continue
			}
			childView.ParentViewID = view.ID
			state.AddView(childView)
			mention.Rewrite(childNewID)
			view.AddChild(childNewID)
		}
	}
	return nil
}

func rewriteTextMap(state *duprun.State, doc *document.Data) {
	errs := doc.RewriteTextMapMentions(func(oldID string) (string, bool) {
		lookupState, newID := state.IDs.Lookup(oldID)
		if lookupState != idrewriter.Pending {
			return "", false
		}
		return newID, true
	})
	if state.Logger != nil {
		for _, e := range errs {
			state.Logger.Printf("[WARN] text_map rewrite skipped an entry: %v", e)
		}
	}
}

func rewriteEmbeddedDatabases(state *duprun.State, doc *document.Data, view *folder.View) error {
	for _, block := range doc.DatabaseBlocks() {
		oldBlockViewID, err := block.ViewID()
		if err != nil {
			return duperr.NewRecordNotFound(fmt.Sprintf("embedded database block: %v", err))
		}

		dbPublished, err := state.PublishStore.GetPublishedDataForViewID(state.Ctx, state.Tx, oldBlockViewID)
		if err != nil {
			return err
		}
		if dbPublished == nil {
			// Target database is unpublished; the block keeps pointing at
			// its old, now-dangling view id — same tombstone treatment as
			// an unpublished page mention.
			continue
		}

		var payload publishmeta.PublishDatabaseData
		if err := json.Unmarshal(dbPublished.Blob, &payload); err != nil {
			return duperr.NewParse("decode published database payload", err)
		}

		newBlockViewID := idrewriter.NewID()
		newDBFolderViewID := idrewriter.NewID()
		newDBID := idrewriter.NewID()

		dbFolderView, err := dbrewriter.DeepCopyDatabase(state, payload, dbPublished.Metadata, oldBlockViewID, newDBFolderViewID, newDBID)
		if err != nil {
			return err
		}
		dbFolderView.ParentViewID = view.ID
		state.AddView(dbFolderView)

		inDocView := viewbuilder.FromMetadata(newBlockViewID, dbPublished.Metadata.View, dbFolderView.Layout, state.TsNow, state.UID)
		inDocView.ParentViewID = newDBFolderViewID
		state.AddView(inDocView)

		state.WorkspaceDatabases[newDBID] = append(state.WorkspaceDatabases[newDBID], newBlockViewID)

		if err := block.SetViewAndParent(newBlockViewID, newDBFolderViewID); err != nil {
			return duperr.NewRecordNotFound(err.Error())
		}
	}
	return nil
}
