package catalog

import (
	"context"
	"encoding/json"

	"canopy/explorer/internal/db"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// SQLite serves a catalog stored by the db package
type SQLite struct {
	db *db.DB
}

// NewSQLite wraps an open database. The schema must already exist.
func NewSQLite(d *db.DB) *SQLite {
	return &SQLite{db: d}
}

func (s *SQLite) Roots(ctx context.Context) ([]graph.Node, error) {
	rows, err := s.db.RootNodes(ctx)
	if err != nil {
		return nil, err
	}
	return toNodes(rows), nil
}

func (s *SQLite) Skeleton(ctx context.Context) (Subgraph, error) {
	nodes, err := s.db.SkeletonNodes(ctx)
	if err != nil {
		return Subgraph{}, err
	}
	edges, err := s.db.FixedEdges(ctx)
	if err != nil {
		return Subgraph{}, err
	}
	return Subgraph{Nodes: toNodes(nodes), Edges: toEdges(edges)}, nil
}

func (s *SQLite) Children(ctx context.Context, id string) ([]graph.Node, error) {
	rows, err := s.db.ChildNodes(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return toNodes(rows), nil
}

func (s *SQLite) ChildEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	rows, err := s.db.ChildEdges(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEdges(rows), nil
}

func (s *SQLite) All(ctx context.Context) (Subgraph, error) {
	nodes, err := s.db.AllNodes(ctx)
	if err != nil {
		return Subgraph{}, err
	}
	edges, err := s.db.AllEdges(ctx)
	if err != nil {
		return Subgraph{}, err
	}
	return Subgraph{Nodes: toNodes(nodes), Edges: toEdges(edges)}, nil
}

func (s *SQLite) NodeDetail(ctx context.Context, id string) (*graph.Detail, error) {
	raw, err := s.db.NodeDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errors.NewNotFoundError("no detail for node %s", id)
	}
	var d graph.Detail
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, errors.Wrapf(err, "decoding detail for %s", id)
	}
	if d.ID == "" {
		d.ID = id
	}
	return &d, nil
}

// SeedDataset writes ds into d, replacing its contents. Nodes and edges are
// stored in the order Memory.All reports them.
func SeedDataset(ctx context.Context, d *db.DB, ds *Dataset) error {
	all, _ := NewMemory(ds).All(ctx)

	nodes := make([]db.Node, 0, len(all.Nodes))
	for _, n := range all.Nodes {
		row := db.Node{
			ID:              n.ID,
			Label:           n.Label,
			IsAlwaysVisible: n.AlwaysVisible,
			HasChildren:     n.HasChildren,
		}
		if n.Parent != "" {
			parent := n.Parent
			row.ParentID = &parent
		}
		nodes = append(nodes, row)
	}

	edges := make([]db.Edge, 0, len(all.Edges))
	for _, e := range all.Edges {
		row := db.Edge{ID: e.ID, SourceID: e.Source, TargetID: e.Target, Fixed: e.Fixed}
		if e.Label != "" {
			label := e.Label
			row.Label = &label
		}
		edges = append(edges, row)
	}

	details := make(map[string]string, len(ds.Details))
	for id, detail := range ds.Details {
		js, err := json.Marshal(detail)
		if err != nil {
			return errors.Wrapf(err, "encoding detail for %s", id)
		}
		details[id] = string(js)
	}

	if err := d.EnsureSchema(ctx); err != nil {
		return err
	}
	return d.Seed(ctx, nodes, edges, details)
}

func toNodes(rows []db.Node) []graph.Node {
	out := make([]graph.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, graph.Node{
			ID:            r.ID,
			Label:         r.Label,
			Parent:        r.Parent(),
			AlwaysVisible: r.IsAlwaysVisible,
			HasChildren:   r.HasChildren,
		})
	}
	return out
}

func toEdges(rows []db.Edge) []graph.Edge {
	out := make([]graph.Edge, 0, len(rows))
	for _, r := range rows {
		e := graph.Edge{ID: r.ID, Source: r.SourceID, Target: r.TargetID, Fixed: r.Fixed}
		if r.Label != nil {
			e.Label = *r.Label
		}
		out = append(out, e)
	}
	return out
}
