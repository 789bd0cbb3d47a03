package visibility

import (
	"context"

	"golang.org/x/sync/errgroup"

	"canopy/explorer/internal/graph"
)

// fetchLimit caps concurrent catalog calls while expanding a subtree
const fetchLimit = 8

type fetched struct {
	children []graph.Node
	edges    []graph.Edge
	err      error
}

// ExpandSubtree expands id and every visible descendant, always-visible
// children included, until nothing new is revealed. Each depth level is
// fetched concurrently and applied in model order, so the result matches
// expanding one node at a time. Nodes whose fetch fails become leaves; the
// first such error is returned after the rest of the subtree is expanded.
func (s *Store) ExpandSubtree(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if !s.Has(id) {
		return nil
	}

	var firstErr error
	seen := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		results := make([]fetched, len(frontier))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fetchLimit)
		for i, nodeID := range frontier {
			if s.Unavailable(nodeID) {
				continue
			}
			g.Go(func() error {
				r := &results[i]
				r.children, r.err = s.cat.Children(gctx, nodeID)
				if r.err == nil && len(r.children) > 0 {
					r.edges, r.err = s.cat.ChildEdges(gctx, nodeID)
				}
				return nil
			})
		}
		_ = g.Wait()

		var next []string
		for i, nodeID := range frontier {
			r := results[i]
			if r.err != nil {
				s.markUnavailable(nodeID, r.err)
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			s.reveal(nodeID, r.children, r.edges)
			for _, c := range s.visibleChildren(nodeID) {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return firstErr
}

// visibleChildren returns the IDs of visible nodes whose parent is id
func (s *Store) visibleChildren(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, n := range s.nodes.values() {
		if n.Parent == id {
			out = append(out, n.ID)
		}
	}
	return out
}
