// Package duprun holds the duplication state a single Duplicator.Run
// accumulates across its recursive deep-copy: the id mapping, the ordered
// list of non-root views awaiting insertion, and the new database-to-view
// links awaiting a workspace-database meta update. It exists so
// docrewriter, dbrewriter and foldercomposer can share one run's state
// without importing one another.
package duprun

import (
	"context"
	"database/sql"

	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/collabstore"
	"github.com/kasuganosora/collab-duplicator/pkg/groupmanager"
	"github.com/kasuganosora/collab-duplicator/pkg/idrewriter"
	"github.com/kasuganosora/collab-duplicator/pkg/logging"
	"github.com/kasuganosora/collab-duplicator/pkg/publishstore"
)

// State is scoped to one Duplicator.Run. Nothing here outlives the run.
type State struct {
	Ctx          context.Context
	Tx           *sql.Tx
	CollabStore  *collabstore.Store
	PublishStore *publishstore.Store
	Groups       *groupmanager.Manager
	IDs          *idrewriter.IDRewriter
	Logger       logging.Logger

	WorkspaceID string
	UID         int64
	TsNow       int64

	// ViewsToAdd collects every non-root view produced during recursion, in
	// the order they were discovered — the order FolderComposer inserts
	// them in.
	ViewsToAdd []*folder.View

	// WorkspaceDatabases maps a new database id to the view ids that
	// render it, appended to as DbRewriter and DocRewriter discover them.
	WorkspaceDatabases map[string][]string
}

// AddView appends v to ViewsToAdd.
func (s *State) AddView(v *folder.View) {
	s.ViewsToAdd = append(s.ViewsToAdd, v)
}
