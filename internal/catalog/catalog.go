// Package catalog is read-only access to the full node/edge universe.
//
// Sources differ (an in-memory dataset, a sqlite database, a remote graph
// API) but all answer the same questions: which nodes form the skeleton,
// which children a node reveals, and what the popup detail for a node is.
// Wrap any source in a Guard before handing it to the visibility engine so
// calls are bounded by a timeout and failures are marked ErrDataUnavailable.
package catalog

import (
	"context"

	"canopy/explorer/internal/graph"
)

// Catalog is the graph data source boundary. Every call may block on I/O.
type Catalog interface {
	// Roots returns parentless nodes in model order.
	Roots(ctx context.Context) ([]graph.Node, error)
	// Skeleton returns the always-visible nodes and fixed edges.
	Skeleton(ctx context.Context) (Subgraph, error)
	// Children returns the revealable (not always-visible) children of id.
	// An unknown id has no children.
	Children(ctx context.Context, id string) ([]graph.Node, error)
	// ChildEdges returns the non-fixed edges an expand of id reveals.
	ChildEdges(ctx context.Context, id string) ([]graph.Edge, error)
	// All returns the skeleton plus every revealable child set.
	All(ctx context.Context) (Subgraph, error)
	// NodeDetail returns the popup payload for id, or ErrNotFound.
	NodeDetail(ctx context.Context, id string) (*graph.Detail, error)
}

// Subgraph is a batch of nodes and edges, as served by the graph API.
type Subgraph struct {
	Nodes []graph.Node `json:"nodes" yaml:"nodes"`
	Edges []graph.Edge `json:"edges" yaml:"edges"`
}

// Empty reports whether the subgraph has no nodes and no edges
func (s Subgraph) Empty() bool { return len(s.Nodes) == 0 && len(s.Edges) == 0 }

// Snapshot builds an adjacency snapshot of the subgraph
func (s Subgraph) Snapshot() *graph.Snapshot { return graph.NewSnapshot(s.Nodes, s.Edges) }

// GroupChildren splits a full graph into revealable child sets keyed by
// parent ID: non-always-visible nodes under their parent, non-fixed edges
// under their source. Parents with no revealable children are omitted.
func GroupChildren(all Subgraph) map[string]Subgraph {
	out := make(map[string]Subgraph)
	for _, n := range all.Nodes {
		if n.AlwaysVisible || n.Parent == "" {
			continue
		}
		sub := out[n.Parent]
		sub.Nodes = append(sub.Nodes, n)
		out[n.Parent] = sub
	}
	for _, e := range all.Edges {
		if e.Fixed {
			continue
		}
		sub, ok := out[e.Source]
		if !ok {
			continue
		}
		sub.Edges = append(sub.Edges, e)
		out[e.Source] = sub
	}
	return out
}
