// Package collabstore implements the CollabStore external contract: insert a
// new collab into the destination workspace inside the caller's SQL
// transaction, and read the latest encoded state of an existing collab,
// preferring an in-memory group snapshot over a round trip to storage.
package collabstore

import (
	"context"
	"database/sql"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
)

// Snapshotter is the subset of GroupManager this package needs: a read-only
// lookup of the most up to date encoded state for an object id, if an
// editing group for it currently exists.
type Snapshotter interface {
	Snapshot(objectID string) (collab.EncodedV1, bool)
}

// Store implements CollabStore against a database/sql.DB (lib/pq in
// production, modernc.org/sqlite in tests).
type Store struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertNewCollabWithTransaction inserts (or overwrites, for the folder and
// workspace-database meta collabs) one row under the destination workspace,
// inside the caller's transaction.
func (s *Store) InsertNewCollabWithTransaction(ctx context.Context, tx *sql.Tx, workspaceID string, uid int64, objectID string, encoded collab.EncodedV1, collabType collab.Type) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO collab (workspace_id, uid, object_id, collab_type, encoded_collab_v1)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (object_id) DO UPDATE SET
			encoded_collab_v1 = EXCLUDED.encoded_collab_v1,
			collab_type = EXCLUDED.collab_type
	`, workspaceID, uid, objectID, string(collabType), encoded.ToBytes())
	if err != nil {
		return duperr.NewStorage("insert new collab", err)
	}
	return nil
}

// SelectWorkspaceDatabaseOID returns the object id of the workspace's
// workspace-database meta collab. It is read from the pool rather than the
// in-flight transaction, matching the original call site.
func (s *Store) SelectWorkspaceDatabaseOID(ctx context.Context, workspaceID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT workspace_database_oid FROM workspace WHERE workspace_id = $1`, workspaceID)
	var oid string
	if err := row.Scan(&oid); err != nil {
		if err == sql.ErrNoRows {
			return "", duperr.NewRecordNotFound("workspace database oid not found for workspace " + workspaceID)
		}
		return "", duperr.NewStorage("select workspace database oid", err)
	}
	return oid, nil
}

// GetLatestEncoded resolves the most up to date encoded state for objectID:
// a live editing group's in-memory snapshot if one exists (a correctness
// preserving optimisation — the group's copy is a superset of the committed
// copy), otherwise the latest row in storage.
func (s *Store) GetLatestEncoded(ctx context.Context, group Snapshotter, objectID string) (collab.EncodedV1, error) {
	if group != nil {
		if snap, ok := group.Snapshot(objectID); ok {
			return snap, nil
		}
	}
	return s.readLatestFromStorage(ctx, objectID)
}

func (s *Store) readLatestFromStorage(ctx context.Context, objectID string) (collab.EncodedV1, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT encoded_collab_v1 FROM collab WHERE object_id = $1`, objectID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return collab.EncodedV1{}, duperr.NewRecordNotFound("collab not found: " + objectID)
		}
		return collab.EncodedV1{}, duperr.NewStorage("read latest encoded collab", err)
	}
	enc, err := collab.FromBytes(raw)
	if err != nil {
		return collab.EncodedV1{}, duperr.NewCodec("decode stored collab envelope", err)
	}
	return enc, nil
}
