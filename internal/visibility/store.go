// Package visibility owns the set of nodes and edges currently shown.
//
// The visible graph is the skeleton (always-visible nodes, roots and fixed
// edges) plus whatever children open expands have revealed. Whether a node
// is expanded is never stored: it is derived from set membership every time
// it is asked.
//
// All mutations go through Expand, Collapse, Toggle, Reset and the bulk
// variants; each one runs to completion, including its catalog fetch,
// before the next one starts.
package visibility

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/logger"
)

// VisibleNode is a node in the visible set. InitialVisible is true for
// skeleton nodes and false for nodes revealed by an expand.
type VisibleNode struct {
	graph.Node
	InitialVisible bool `json:"initialVisible"`
}

// Action reports what Toggle did
type Action string

const (
	ActionNone     Action = "none"
	ActionExpand   Action = "expand"
	ActionCollapse Action = "collapse"
)

// View is a copy of the visible graph, in the order items became visible
type View struct {
	Nodes []VisibleNode `json:"nodes"`
	Edges []graph.Edge  `json:"edges"`
}

// Store holds the visible node and edge sets
type Store struct {
	cat catalog.Catalog
	log *zap.SugaredLogger

	// cmdMu serializes mutations end to end, catalog fetches included
	cmdMu sync.Mutex

	mu          sync.RWMutex
	nodes       *ordered[VisibleNode]
	edges       *ordered[graph.Edge]
	skeleton    catalog.Subgraph
	unavailable map[string]bool
}

// New creates an empty store backed by cat. Call Init or Reset before use.
func New(cat catalog.Catalog, log *zap.SugaredLogger) *Store {
	return &Store{
		cat:         cat,
		log:         logger.Named(log, "visibility"),
		nodes:       newOrdered[VisibleNode](),
		edges:       newOrdered[graph.Edge](),
		unavailable: make(map[string]bool),
	}
}

// Init loads the skeleton from the catalog and resets to it. On failure the
// store is left empty and the error is returned.
func (s *Store) Init(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	skel, err := s.cat.Skeleton(ctx)
	if err != nil {
		s.log.Warnw("skeleton unavailable, starting empty", "error", err)
		s.reset(nil, nil)
		return errors.DataUnavailable(errors.Wrap(err, "loading skeleton"))
	}
	s.reset(skel.Nodes, skel.Edges)
	s.log.Debugw("initialized", "nodes", len(skel.Nodes), "edges", len(skel.Edges))
	return nil
}

// Reset replaces the visible sets with the given skeleton. Every node is
// marked InitialVisible. The skeleton is remembered for CollapseToSkeleton.
func (s *Store) Reset(nodes []graph.Node, edges []graph.Edge) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.reset(nodes, edges)
}

func (s *Store) reset(nodes []graph.Node, edges []graph.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.skeleton = catalog.Subgraph{
		Nodes: append([]graph.Node(nil), nodes...),
		Edges: append([]graph.Edge(nil), edges...),
	}
	s.nodes = newOrdered[VisibleNode]()
	s.edges = newOrdered[graph.Edge]()
	for _, n := range nodes {
		s.nodes.put(n.ID, VisibleNode{Node: n, InitialVisible: true})
	}
	for _, e := range edges {
		s.addEdge(e)
	}
}

// Expand reveals the children of id and the edges leading to them. Children
// already visible are left as they are. A catalog failure leaves the store
// unchanged and marks id as a leaf for the rest of the session.
func (s *Store) Expand(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if !s.Has(id) {
		return errors.NewNotFoundError("node %s is not visible", id)
	}
	children, err := s.fetchChildren(ctx, id)
	if err != nil {
		return err
	}
	return s.expand(ctx, id, children)
}

// fetchChildren returns the revealable children of id, or nil for a node
// already known to be unavailable.
func (s *Store) fetchChildren(ctx context.Context, id string) ([]graph.Node, error) {
	if s.Unavailable(id) {
		return nil, nil
	}
	children, err := s.cat.Children(ctx, id)
	if err != nil {
		s.markUnavailable(id, err)
		return nil, err
	}
	return children, nil
}

// expand applies an expand of id given its already fetched children
func (s *Store) expand(ctx context.Context, id string, children []graph.Node) error {
	if len(children) == 0 {
		return nil
	}
	edges, err := s.cat.ChildEdges(ctx, id)
	if err != nil {
		s.markUnavailable(id, err)
		return err
	}

	s.reveal(id, children, edges)
	return nil
}

// reveal adds the missing children of id and their edges
func (s *Store) reveal(id string, children []graph.Node, edges []graph.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range children {
		if s.nodes.has(c.ID) {
			continue
		}
		if c.Parent == "" {
			c.Parent = id
		}
		if c.Parent != id {
			s.log.Warnw("dropping child with wrong parent",
				"node", id, "child", c.ID, "parent", c.Parent,
				"error", errors.ErrInvariantViolation)
			continue
		}
		s.nodes.put(c.ID, VisibleNode{Node: c})
		added++
	}
	for _, e := range edges {
		s.addEdge(e)
	}
	s.log.Debugw("expanded", "node", id, "added", added, "visible", s.nodes.len())
}

// addEdge adds e unless its ID is already visible. An edge with a missing
// endpoint is dropped and logged. Callers hold mu.
func (s *Store) addEdge(e graph.Edge) {
	if s.edges.has(e.ID) {
		return
	}
	if !s.nodes.has(e.Source) || !s.nodes.has(e.Target) {
		s.log.Warnw("dropping edge with hidden endpoint",
			"edge", e.ID, "source", e.Source, "target", e.Target,
			"error", errors.ErrInvariantViolation)
		return
	}
	s.edges.put(e.ID, e)
}

func (s *Store) markUnavailable(id string, err error) {
	s.mu.Lock()
	s.unavailable[id] = true
	s.mu.Unlock()
	s.log.Warnw("children unavailable, treating node as leaf", "node", id, "error", err)
}

// Collapse hides the revealed children of id and the non-fixed edges leaving
// it, then prunes whatever that disconnected.
func (s *Store) Collapse(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.collapse(id)
	return nil
}

func (s *Store) collapse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hidden := s.nodes.removeIf(func(_ string, n VisibleNode) bool {
		return n.Parent == id && !n.AlwaysVisible
	})
	s.edges.removeIf(func(_ string, e graph.Edge) bool {
		return e.Source == id && !e.Fixed
	})
	pruned := s.sweep()
	s.log.Debugw("collapsed", "node", id, "hidden", hidden, "pruned", pruned, "visible", s.nodes.len())
}

// sweep drops revealed nodes whose parent chain no longer reaches the
// skeleton, then edges with a missing endpoint. Parent links count as
// connections, so a child delivered without an edge is not orphaned.
// Callers hold mu.
func (s *Store) sweep() int {
	kept := make(map[string]bool, s.nodes.len())
	for _, n := range s.nodes.values() {
		if n.InitialVisible || n.IsSkeleton() {
			kept[n.ID] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, n := range s.nodes.values() {
			if !kept[n.ID] && kept[n.Parent] {
				kept[n.ID] = true
				changed = true
			}
		}
	}

	pruned := s.nodes.removeIf(func(id string, _ VisibleNode) bool { return !kept[id] })
	s.edges.removeIf(func(_ string, e graph.Edge) bool {
		return !s.nodes.has(e.Source) || !s.nodes.has(e.Target)
	})
	return pruned
}

// Toggle expands id if some of its revealable children are hidden and
// collapses it otherwise. It is the entry point for node clicks.
// A node whose children cannot be fetched counts as having none: revealed
// children it still shows are collapsed, and the fetch error is returned
// alongside the action.
func (s *Store) Toggle(ctx context.Context, id string) (Action, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if !s.Has(id) {
		return ActionNone, errors.NewNotFoundError("node %s is not visible", id)
	}
	children, err := s.fetchChildren(ctx, id)
	if err != nil || s.Unavailable(id) {
		if s.VisibleChildCount(id) == 0 {
			return ActionNone, err
		}
		s.collapse(id)
		return ActionCollapse, err
	}

	if s.VisibleChildCount(id) < len(children) {
		if err := s.expand(ctx, id, children); err != nil {
			return ActionNone, err
		}
		return ActionExpand, nil
	}
	s.collapse(id)
	return ActionCollapse, nil
}

// ExpandAll shows the whole catalog graph. Roots and always-visible nodes
// keep InitialVisible; everything else is marked revealed.
func (s *Store) ExpandAll(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	all, err := s.cat.All(ctx)
	if err != nil {
		s.log.Warnw("full graph unavailable, keeping current view", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range all.Nodes {
		if !s.nodes.has(n.ID) {
			s.nodes.put(n.ID, VisibleNode{Node: n, InitialVisible: n.IsSkeleton()})
		}
	}
	for _, e := range all.Edges {
		s.addEdge(e)
	}
	s.log.Debugw("expanded all", "visible", s.nodes.len(), "edges", s.edges.len())
	return nil
}

// CollapseToSkeleton returns to the skeleton last passed to Reset or Init
func (s *Store) CollapseToSkeleton(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.RLock()
	skel := s.skeleton
	s.mu.RUnlock()
	s.reset(skel.Nodes, skel.Edges)
	return nil
}
