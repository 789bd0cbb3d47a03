// Package db stores a graph catalog in SQLite: nodes with their parent link
// and skeleton flags, edges with their fixed flag, and per-node detail JSON.
package db

import (
	"context"
	"database/sql"
	"strings"

	"canopy/explorer/internal/errors"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens a SQLite database with WAL mode enabled
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "setting WAL mode")
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	parent_id TEXT,
	is_always_visible INTEGER NOT NULL DEFAULT 0,
	has_children INTEGER NOT NULL DEFAULT 0,
	ord INTEGER NOT NULL DEFAULT 0,
	detail TEXT
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, ord);
CREATE TABLE IF NOT EXISTS edges (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	fixed INTEGER NOT NULL DEFAULT 0,
	label TEXT,
	ord INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, ord);
`

// ftsSchema is optional: builds without FTS5 fall back to LIKE search
const ftsSchema = `CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(id UNINDEXED, label, body)`

// EnsureSchema creates the catalog tables if they do not exist
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "creating schema")
	}
	if _, err := d.conn.ExecContext(ctx, ftsSchema); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return errors.Wrap(err, "creating search index")
	}
	return nil
}
