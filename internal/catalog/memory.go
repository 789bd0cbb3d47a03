package catalog

import (
	"context"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// Memory serves a Dataset from memory. It is safe for concurrent use
// because it is never mutated after construction.
type Memory struct {
	skeleton Subgraph
	roots    []graph.Node
	children map[string]Subgraph
	details  map[string]graph.Detail
	all      Subgraph
}

// NewMemory indexes ds. HasChildren is forced true for any node that has a
// non-empty child set, so a stale flag in the data cannot hide children.
func NewMemory(ds *Dataset) *Memory {
	m := &Memory{
		children: make(map[string]Subgraph, len(ds.Children)),
		details:  ds.Details,
	}
	if m.details == nil {
		m.details = make(map[string]graph.Detail)
	}

	fix := func(n graph.Node) graph.Node {
		if sub, ok := ds.Children[n.ID]; ok && len(sub.Nodes) > 0 {
			n.HasChildren = true
		}
		return n
	}

	for _, n := range ds.Default.Nodes {
		n = fix(n)
		if n.IsSkeleton() {
			m.skeleton.Nodes = append(m.skeleton.Nodes, n)
		}
		if n.IsRoot() {
			m.roots = append(m.roots, n)
		}
		m.all.Nodes = append(m.all.Nodes, n)
	}
	for _, e := range ds.Default.Edges {
		if e.Fixed {
			m.skeleton.Edges = append(m.skeleton.Edges, e)
		}
		m.all.Edges = append(m.all.Edges, e)
	}

	for _, key := range ds.childKeys() {
		var sub Subgraph
		for _, n := range ds.Children[key].Nodes {
			n = fix(n)
			if n.AlwaysVisible {
				m.skeleton.Nodes = append(m.skeleton.Nodes, n)
			} else {
				sub.Nodes = append(sub.Nodes, n)
			}
			m.all.Nodes = append(m.all.Nodes, n)
			if n.IsRoot() {
				m.roots = append(m.roots, n)
			}
		}
		for _, e := range ds.Children[key].Edges {
			if e.Fixed {
				m.skeleton.Edges = append(m.skeleton.Edges, e)
			}
			m.all.Edges = append(m.all.Edges, e)
		}
		m.children[key] = sub
	}

	// non-fixed edges are served under their source, whichever set listed them
	for _, e := range m.all.Edges {
		if e.Fixed {
			continue
		}
		sub := m.children[e.Source]
		sub.Edges = append(sub.Edges, e)
		m.children[e.Source] = sub
	}

	return m
}

func (m *Memory) Roots(ctx context.Context) ([]graph.Node, error) {
	return clone(m.roots), nil
}

func (m *Memory) Skeleton(ctx context.Context) (Subgraph, error) {
	return Subgraph{Nodes: clone(m.skeleton.Nodes), Edges: clone(m.skeleton.Edges)}, nil
}

func (m *Memory) Children(ctx context.Context, id string) ([]graph.Node, error) {
	return clone(m.children[id].Nodes), nil
}

func (m *Memory) ChildEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	return clone(m.children[id].Edges), nil
}

func (m *Memory) All(ctx context.Context) (Subgraph, error) {
	return Subgraph{Nodes: clone(m.all.Nodes), Edges: clone(m.all.Edges)}, nil
}

func (m *Memory) NodeDetail(ctx context.Context, id string) (*graph.Detail, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, errors.NewNotFoundError("no detail for node %s", id)
	}
	return &d, nil
}

// clone returns a copy so callers cannot mutate the catalog's slices
func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
