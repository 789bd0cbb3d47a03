package visibility

import (
	"sort"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// Has reports whether id is visible
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.has(id)
}

// Node returns the visible node for id
func (s *Store) Node(id string) (VisibleNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.get(id)
}

// Edge returns the visible edge for id
func (s *Store) Edge(id string) (graph.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges.get(id)
}

// Unavailable reports whether a catalog failure turned id into a leaf
func (s *Store) Unavailable(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unavailable[id]
}

// VisibleChildCount counts visible children of id that are not always visible
func (s *Store) VisibleChildCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.nodes.values() {
		if n.Parent == id && !n.AlwaysVisible {
			count++
		}
	}
	return count
}

// IsExpanded reports whether any revealed child of id is visible
func (s *Store) IsExpanded(id string) bool {
	return s.VisibleChildCount(id) > 0
}

// IsExpandable reports whether clicking id could reveal anything
func (s *Store) IsExpandable(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes.get(id)
	return ok && n.HasChildren && !s.unavailable[id]
}

// Snapshot returns a copy of the visible graph
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Nodes: s.nodes.values(), Edges: s.edges.values()}
}

// NodeIDs returns the visible node IDs, sorted
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]string(nil), s.nodes.keys...)
	sort.Strings(ids)
	return ids
}

// EdgeIDs returns the visible edge IDs, sorted
func (s *Store) EdgeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]string(nil), s.edges.keys...)
	sort.Strings(ids)
	return ids
}

// Skeleton returns the skeleton the store was last reset to
func (s *Store) Skeleton() (nodes []graph.Node, edges []graph.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]graph.Node(nil), s.skeleton.Nodes...), append([]graph.Edge(nil), s.skeleton.Edges...)
}

// Check verifies the visible-set invariants and returns the first violation
// marked ErrInvariantViolation.
func (s *Store) Check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.nodes.values() {
		if n.InitialVisible || n.IsSkeleton() {
			continue
		}
		if !s.nodes.has(n.Parent) {
			return errors.Mark(
				errors.Newf("revealed node %s is visible but its parent %s is not", n.ID, n.Parent),
				errors.ErrInvariantViolation)
		}
	}
	for _, e := range s.edges.values() {
		if !s.nodes.has(e.Source) || !s.nodes.has(e.Target) {
			return errors.Mark(
				errors.Newf("edge %s references hidden node (%s -> %s)", e.ID, e.Source, e.Target),
				errors.ErrInvariantViolation)
		}
	}
	for _, n := range s.skeleton.Nodes {
		if n.AlwaysVisible && !s.nodes.has(n.ID) {
			return errors.Mark(
				errors.Newf("always-visible node %s is missing", n.ID),
				errors.ErrInvariantViolation)
		}
	}
	for _, e := range s.skeleton.Edges {
		if e.Fixed && !s.edges.has(e.ID) && s.nodes.has(e.Source) && s.nodes.has(e.Target) {
			return errors.Mark(
				errors.Newf("fixed edge %s is missing", e.ID),
				errors.ErrInvariantViolation)
		}
	}
	return nil
}
