package db

import (
	"context"
	"database/sql"

	"canopy/explorer/internal/errors"
)

const nodeColumns = `id, label, parent_id, is_always_visible, has_children, ord`

// scanNode scans a row into a Node. The row must have nodeColumns in order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	err := scanner.Scan(
		&n.ID, &n.Label, &n.ParentID, &n.IsAlwaysVisible, &n.HasChildren, &n.Ord,
	)
	return n, err
}

func (d *DB) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// AllNodes returns every node in model order
func (d *DB) AllNodes(ctx context.Context) ([]Node, error) {
	nodes, err := d.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY ord, id`)
	return nodes, errors.Wrap(err, "listing nodes")
}

// RootNodes returns parentless nodes in model order
func (d *DB) RootNodes(ctx context.Context) ([]Node, error) {
	nodes, err := d.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id IS NULL ORDER BY ord, id`)
	return nodes, errors.Wrap(err, "listing root nodes")
}

// SkeletonNodes returns roots and always-visible nodes in model order
func (d *DB) SkeletonNodes(ctx context.Context) ([]Node, error) {
	nodes, err := d.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE parent_id IS NULL OR is_always_visible = 1
		ORDER BY ord, id
	`)
	return nodes, errors.Wrap(err, "listing skeleton nodes")
}

// ChildNodes returns the children of parentID in model order. With
// revealableOnly, always-visible children are left out.
func (d *DB) ChildNodes(ctx context.Context, parentID string, revealableOnly bool) ([]Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE parent_id = ?`
	if revealableOnly {
		query += ` AND is_always_visible = 0`
	}
	query += ` ORDER BY ord, id`

	nodes, err := d.queryNodes(ctx, query, parentID)
	return nodes, errors.Wrapf(err, "listing children of %s", parentID)
}

// GetNode returns a single node by ID. Missing nodes are ErrNotFound.
func (d *DB) GetNode(ctx context.Context, id string) (*Node, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)

	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("node %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading node %s", id)
	}
	return &n, nil
}

// SearchByIDPrefix finds nodes whose ID starts with the given prefix.
func (d *DB) SearchByIDPrefix(ctx context.Context, prefix string, limit int) ([]Node, error) {
	nodes, err := d.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id LIKE ? ORDER BY ord, id LIMIT ?`,
		prefix+"%", limit)
	return nodes, errors.Wrap(err, "searching by id prefix")
}

// NodeDetail returns the stored detail JSON for id. A node without detail
// returns "" and no error; a missing node is ErrNotFound.
func (d *DB) NodeDetail(ctx context.Context, id string) (string, error) {
	var detail sql.NullString
	err := d.conn.QueryRowContext(ctx, `SELECT detail FROM nodes WHERE id = ?`, id).Scan(&detail)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFoundError("node %s", id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "loading detail for %s", id)
	}
	return detail.String, nil
}
