package db

import (
	"context"
	"database/sql"
	"strings"

	"canopy/explorer/internal/errors"
)

// Seed replaces the catalog contents with nodes, edges and details in one
// transaction. Ord is taken from slice position, so callers pass nodes and
// edges in model order. details maps node ID to detail JSON.
func (d *DB) Seed(ctx context.Context, nodes []Node, edges []Edge, details map[string]string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning seed transaction")
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM edges`, `DELETE FROM nodes`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "clearing catalog")
		}
	}

	for i, n := range nodes {
		var detail sql.NullString
		if js, ok := details[n.ID]; ok {
			detail = sql.NullString{String: js, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (id, label, parent_id, is_always_visible, has_children, ord, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, n.ID, n.Label, n.ParentID, boolInt(n.IsAlwaysVisible), boolInt(n.HasChildren), i, detail)
		if err != nil {
			return errors.Wrapf(err, "inserting node %s", n.ID)
		}
	}

	for i, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO edges (id, source_id, target_id, fixed, label, ord)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, e.SourceID, e.TargetID, boolInt(e.Fixed), e.Label, i)
		if err != nil {
			return errors.Wrapf(err, "inserting edge %s", e.ID)
		}
	}

	if err := reindex(ctx, tx); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "committing seed")
}

// reindex rebuilds the FTS table from nodes. A missing FTS table is not an error.
func reindex(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes_fts`); err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil
		}
		return errors.Wrap(err, "clearing search index")
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO nodes_fts (id, label, body)
		SELECT id, label, COALESCE(detail, '') FROM nodes
	`)
	return errors.Wrap(err, "building search index")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
