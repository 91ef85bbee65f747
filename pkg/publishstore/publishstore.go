// Package publishstore implements the PublishStore external contract: fetch
// the (metadata, blob) pair for a published view id, the way the teacher's
// SQLCommonDataSource wraps database/sql behind a small typed surface with a
// swappable dialect/driver underneath.
package publishstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/duperr"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
)

// PublishedBlob is the (metadata, blob) pair returned for a published view,
// tagged with the collab type the blob decodes as so callers never have to
// sniff it.
type PublishedBlob struct {
	Metadata   publishmeta.MetaData
	Blob       []byte
	CollabType collab.Type
}

// Store fetches published collab data by view id, inside the caller's
// transaction so a duplication run sees a consistent snapshot of the publish
// namespace.
type Store struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB (any driver satisfying database/sql —
// lib/pq in production, modernc.org/sqlite in tests).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetPublishedDataForViewID fetches (metadata, blob) for a published view id.
// viewID must be a valid UUID; on parse failure this returns a *duperr.Parse
// rather than hitting the database. A nil, nil result means the view id is
// not currently published.
func (s *Store) GetPublishedDataForViewID(ctx context.Context, tx *sql.Tx, viewID string) (*PublishedBlob, error) {
	if _, err := uuid.Parse(viewID); err != nil {
		return nil, duperr.NewParse("invalid view id", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT metadata, blob, collab_type FROM published_collab WHERE view_id = $1`, viewID)

	var metadataJSON []byte
	var blob []byte
	var collabType string
	if err := row.Scan(&metadataJSON, &blob, &collabType); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, duperr.NewStorage("select published data for view id", err)
	}

	var metadata publishmeta.MetaData
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, duperr.NewParse("decode publish view metadata", err)
	}

	return &PublishedBlob{Metadata: metadata, Blob: blob, CollabType: collab.Type(collabType)}, nil
}

// EncodeDatabasePayload is a small helper for producing the JSON blob stored
// for a published Database collab_type, used by tests and fixtures.
func EncodeDatabasePayload(payload publishmeta.PublishDatabaseData) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("publishstore: encode database payload: %w", err)
	}
	return b, nil
}
