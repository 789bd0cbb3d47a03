package db

import (
	"context"

	"canopy/explorer/internal/errors"
)

const edgeColumns = `id, source_id, target_id, fixed, label, ord`

// scanEdge scans a row into an Edge. The row must have edgeColumns in order.
func scanEdge(scanner interface{ Scan(dest ...any) error }) (Edge, error) {
	var e Edge
	err := scanner.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Fixed, &e.Label, &e.Ord)
	return e, err
}

func (d *DB) queryEdges(ctx context.Context, query string, args ...any) ([]Edge, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AllEdges returns every edge in model order
func (d *DB) AllEdges(ctx context.Context) ([]Edge, error) {
	edges, err := d.queryEdges(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY ord, id`)
	return edges, errors.Wrap(err, "listing edges")
}

// FixedEdges returns the skeleton edges
func (d *DB) FixedEdges(ctx context.Context) ([]Edge, error) {
	edges, err := d.queryEdges(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE fixed = 1 ORDER BY ord, id`)
	return edges, errors.Wrap(err, "listing fixed edges")
}

// ChildEdges returns the non-fixed edges leaving sourceID, which are the
// edges an expand of sourceID reveals.
func (d *DB) ChildEdges(ctx context.Context, sourceID string) ([]Edge, error) {
	edges, err := d.queryEdges(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? AND fixed = 0 ORDER BY ord, id`,
		sourceID)
	return edges, errors.Wrapf(err, "listing edges from %s", sourceID)
}

// GetEdgesForNode returns all edges where the given node is source OR target.
func (d *DB) GetEdgesForNode(ctx context.Context, nodeID string) ([]Edge, error) {
	edges, err := d.queryEdges(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? OR target_id = ? ORDER BY ord, id`,
		nodeID, nodeID)
	return edges, errors.Wrapf(err, "listing edges of %s", nodeID)
}
