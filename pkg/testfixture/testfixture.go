// Package testfixture provides a self-contained modernc.org/sqlite-backed
// database for package tests, schema-compatible with the lib/pq-backed
// production store so the same Store implementations run against either.
package testfixture

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE published_collab (
	view_id     TEXT PRIMARY KEY,
	collab_type TEXT NOT NULL,
	metadata    BLOB NOT NULL,
	blob        BLOB NOT NULL
);

CREATE TABLE collab (
	object_id         TEXT PRIMARY KEY,
	workspace_id      TEXT NOT NULL,
	uid               INTEGER NOT NULL,
	collab_type       TEXT NOT NULL,
	encoded_collab_v1 BLOB NOT NULL
);

CREATE TABLE workspace (
	workspace_id            TEXT PRIMARY KEY,
	workspace_database_oid  TEXT NOT NULL
);
`

// OpenDB opens a fresh in-memory sqlite database with the schema applied.
func OpenDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("testfixture: open sqlite: %w", err)
	}
	// A private :memory: database only exists on the connection that
	// created it, so the pool is pinned to one connection — otherwise a
	// query issued while a *sql.Tx holds the only open connection would
	// silently open a second, empty database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("testfixture: apply schema: %w", err)
	}
	return db, nil
}

// SeedWorkspace inserts a workspace row with empty folder and
// workspace-database meta collabs already in place, mirroring a freshly
// created destination workspace.
func SeedWorkspace(db *sql.DB, workspaceID, workspaceDatabaseOID string, emptyFolder, emptyWorkspaceDB []byte) error {
	if _, err := db.Exec(`INSERT INTO workspace (workspace_id, workspace_database_oid) VALUES ($1, $2)`,
		workspaceID, workspaceDatabaseOID); err != nil {
		return fmt.Errorf("testfixture: seed workspace: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO collab (object_id, workspace_id, uid, collab_type, encoded_collab_v1) VALUES ($1, $2, 0, 'folder', $3)`,
		workspaceID, workspaceID, emptyFolder); err != nil {
		return fmt.Errorf("testfixture: seed folder: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO collab (object_id, workspace_id, uid, collab_type, encoded_collab_v1) VALUES ($1, $2, 0, 'workspace_database', $3)`,
		workspaceDatabaseOID, workspaceID, emptyWorkspaceDB); err != nil {
		return fmt.Errorf("testfixture: seed workspace database meta: %w", err)
	}
	return nil
}

// SeedPublishedDocument inserts a published_collab row for a Document.
func SeedPublishedDocument(db *sql.DB, viewID string, metadataJSON, docBlob []byte) error {
	_, err := db.Exec(`INSERT INTO published_collab (view_id, collab_type, metadata, blob) VALUES ($1, 'document', $2, $3)`,
		viewID, metadataJSON, docBlob)
	if err != nil {
		return fmt.Errorf("testfixture: seed published document: %w", err)
	}
	return nil
}

// SeedPublishedDatabase inserts a published_collab row for a Database.
func SeedPublishedDatabase(db *sql.DB, viewID string, metadataJSON, payloadJSON []byte) error {
	_, err := db.Exec(`INSERT INTO published_collab (view_id, collab_type, metadata, blob) VALUES ($1, 'database', $2, $3)`,
		viewID, metadataJSON, payloadJSON)
	if err != nil {
		return fmt.Errorf("testfixture: seed published database: %w", err)
	}
	return nil
}
