// Package graph holds the immutable structural model of the node-link graph
// and the read-only queries the visibility engine runs over it.
package graph

import "sort"

// Node is the structural record of a graph node. It never changes after the
// catalog creates it.
type Node struct {
	ID            string `json:"id" yaml:"id"`
	Label         string `json:"label" yaml:"label"`
	Parent        string `json:"parent,omitempty" yaml:"parent,omitempty"` // empty for roots
	AlwaysVisible bool   `json:"isAlwaysVisible,omitempty" yaml:"isAlwaysVisible,omitempty"`
	HasChildren   bool   `json:"hasChildren,omitempty" yaml:"hasChildren,omitempty"`
}

// IsRoot reports whether the node has no parent
func (n Node) IsRoot() bool { return n.Parent == "" }

// IsSkeleton reports whether the node belongs to the permanent skeleton:
// always-visible nodes and parentless roots.
func (n Node) IsSkeleton() bool { return n.AlwaysVisible || n.Parent == "" }

// Edge is the structural record of a directed edge
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Fixed  bool   `json:"fixed,omitempty" yaml:"fixed,omitempty"` // skeleton edge, never removed by collapse
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Snapshot holds a set of nodes and edges with precomputed adjacency.
// Order preserves the input order of nodes, which is the catalog's model order.
type Snapshot struct {
	Nodes    map[string]*Node
	Order    []string
	Edges    []Edge
	OutAdj   map[string][]string // source -> targets
	InAdj    map[string][]string // target -> sources
	Children map[string][]string // parent -> children, in model order
}

// NewSnapshot builds a Snapshot from raw nodes and edges. Duplicate node IDs
// keep their first occurrence. Edges with an unknown endpoint are kept in
// Edges but left out of the adjacency maps.
func NewSnapshot(nodes []Node, edges []Edge) *Snapshot {
	s := &Snapshot{
		Nodes:    make(map[string]*Node, len(nodes)),
		Order:    make([]string, 0, len(nodes)),
		Edges:    edges,
		OutAdj:   make(map[string][]string),
		InAdj:    make(map[string][]string),
		Children: make(map[string][]string),
	}

	for i := range nodes {
		n := nodes[i]
		if _, dup := s.Nodes[n.ID]; dup {
			continue
		}
		s.Nodes[n.ID] = &n
		s.Order = append(s.Order, n.ID)
	}

	for _, id := range s.Order {
		if p := s.Nodes[id].Parent; p != "" {
			s.Children[p] = append(s.Children[p], id)
		}
	}

	for _, e := range edges {
		if _, ok := s.Nodes[e.Source]; !ok {
			continue
		}
		if _, ok := s.Nodes[e.Target]; !ok {
			continue
		}
		s.OutAdj[e.Source] = append(s.OutAdj[e.Source], e.Target)
		s.InAdj[e.Target] = append(s.InAdj[e.Target], e.Source)
	}

	return s
}

// Roots returns parentless nodes in model order
func (s *Snapshot) Roots() []string {
	var roots []string
	for _, id := range s.Order {
		if s.Nodes[id].IsRoot() {
			roots = append(roots, id)
		}
	}
	return roots
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Levels assigns depth by walking parent links from the roots:
// level(root) = 0, level(child) = level(parent) + 1. Nodes whose parent is
// absent from the snapshot are not reached and get no entry.
func (s *Snapshot) Levels() map[string]int {
	levels := make(map[string]int, len(s.Nodes))
	var walk func(id string, level int)
	walk = func(id string, level int) {
		if _, seen := levels[id]; seen {
			return
		}
		levels[id] = level
		for _, child := range s.Children[id] {
			walk(child, level+1)
		}
	}
	for _, root := range s.Roots() {
		walk(root, 0)
	}
	return levels
}

// Reachable returns every node reachable from seeds along directed edges,
// seeds included.
func (s *Snapshot) Reachable(seeds []string) map[string]bool {
	seen := make(map[string]bool, len(s.Nodes))
	queue := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if _, ok := s.Nodes[id]; ok && !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range s.OutAdj[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// IsAncestorOrSelf reports whether ancestorID is nodeID or one of its
// parents, walking parent links. Cycles terminate as "not an ancestor".
func (s *Snapshot) IsAncestorOrSelf(ancestorID, nodeID string) bool {
	visited := make(map[string]bool)
	current := nodeID
	for current != "" {
		if current == ancestorID {
			return true
		}
		if visited[current] {
			return false
		}
		visited[current] = true
		node, ok := s.Nodes[current]
		if !ok {
			return false
		}
		current = node.Parent
	}
	return false
}

// FilterToSubtree returns a new snapshot containing rootID and its
// descendants, with the edges between them.
func (s *Snapshot) FilterToSubtree(rootID string) *Snapshot {
	var nodes []Node
	included := make(map[string]bool)
	for _, id := range s.Order {
		if s.IsAncestorOrSelf(rootID, id) {
			nodes = append(nodes, *s.Nodes[id])
			included[id] = true
		}
	}

	var edges []Edge
	for _, e := range s.Edges {
		if included[e.Source] && included[e.Target] {
			edges = append(edges, e)
		}
	}

	return NewSnapshot(nodes, edges)
}
