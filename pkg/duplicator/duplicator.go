// Package duplicator implements the Duplicator orchestrator (spec §4.5):
// the single entry point that opens no transaction of its own (the caller
// supplies one scoped to the whole run), dispatches the root collab to
// docrewriter or dbrewriter, and finishes with foldercomposer.
package duplicator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/collabstore"
	"github.com/kasuganosora/collab-duplicator/pkg/dbrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/docrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
	"github.com/kasuganosora/collab-duplicator/pkg/duprun"
	"github.com/kasuganosora/collab-duplicator/pkg/foldercomposer"
	"github.com/kasuganosora/collab-duplicator/pkg/groupmanager"
	"github.com/kasuganosora/collab-duplicator/pkg/idrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/logging"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
	"github.com/kasuganosora/collab-duplicator/pkg/publishstore"
)

// Duplicator drives one duplication run against the stores and group
// manager it was built with.
type Duplicator struct {
	Publish *publishstore.Store
	Collabs *collabstore.Store
	Groups  *groupmanager.Manager
	Logger  logging.Logger
}

// New returns a Duplicator wired to the given stores. groups may be nil —
// every lookup against it is optional, per spec §5.
func New(publish *publishstore.Store, collabs *collabstore.Store, groups *groupmanager.Manager, logger logging.Logger) *Duplicator {
	return &Duplicator{Publish: publish, Collabs: collabs, Groups: groups, Logger: logger}
}

// Run duplicates the collab published at publishViewID into
// destWorkspaceID, parenting the new root view under destViewID, as
// destUID. nowUnix is the single wall-clock timestamp stamped on every
// created/edited field and every broadcast's msg_id. tx must already be
// open and is never committed or rolled back here — that is the caller's
// responsibility, so that a cancelled context or a handler-level error
// still rolls back cleanly.
//
// It returns the new root view's id on success.
func (d *Duplicator) Run(ctx context.Context, tx *sql.Tx, destUID int64, publishViewID, destWorkspaceID, destViewID string, collabType collab.Type, nowUnix int64) (string, error) {
	if collabType != collab.TypeDocument && collabType != collab.TypeDatabase {
		if d.Logger != nil {
			d.Logger.Printf("[WARN] duplicate requested for unsupported collab type %q", collabType)
		}
		return "", duperr.NewRecordNotFound(fmt.Sprintf("cannot duplicate collab type %q", collabType))
	}

	published, err := d.Publish.GetPublishedDataForViewID(ctx, tx, publishViewID)
	if err != nil {
		return "", err
	}
	if published == nil {
		return "", duperr.NewRecordNotFound("view not found, it might be unpublished")
	}

	state := &duprun.State{
		Ctx:                ctx,
		Tx:                 tx,
		CollabStore:        d.Collabs,
		PublishStore:       d.Publish,
		Groups:             d.Groups,
		IDs:                idrewriter.New(),
		Logger:             d.Logger,
		WorkspaceID:        destWorkspaceID,
		UID:                destUID,
		TsNow:              nowUnix,
		WorkspaceDatabases: make(map[string][]string),
	}

	// The root is registered in the id mapping before recursing, the same
	// assign-before-recurse rule §4.1 uses for every other reference: a
	// cycle that leads back to the root (A mentions B mentions A) must
	// resolve through Lookup instead of duplicating the root a second time.
	newRootID := state.IDs.Assign(publishViewID)

	var rootView *folder.View
	switch collabType {
	case collab.TypeDocument:
		rootView, err = docrewriter.DeepCopy(state, publishViewID, newRootID)
	case collab.TypeDatabase:
		var payload publishmeta.PublishDatabaseData
		if jsonErr := json.Unmarshal(published.Blob, &payload); jsonErr != nil {
			return "", duperr.NewParse("decode published database payload", jsonErr)
		}
		rootView, err = dbrewriter.DeepCopyDatabase(state, payload, published.Metadata, publishViewID, newRootID, idrewriter.NewID())
	}
	if err != nil {
		return "", err
	}
	if rootView == nil {
		return "", duperr.NewRecordNotFound("view not found, it might be unpublished")
	}

	if err := foldercomposer.Finalize(state, rootView, destViewID, destWorkspaceID, nowUnix); err != nil {
		return "", err
	}

	return rootView.ID, nil
}
