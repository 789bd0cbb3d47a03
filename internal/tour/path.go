package tour

import (
	"sort"

	"canopy/explorer/internal/graph"
)

// BuildPath returns the pre-order walk of snap starting at rootID. An empty
// rootID walks every root in model order. At each node the children are
// visited in this order:
//
//  1. children that are not always visible before always-visible ones
//  2. then children that have children of their own before leaves
//  3. then model order
//
// A node is never emitted twice, so malformed parent cycles terminate.
func BuildPath(snap *graph.Snapshot, rootID string) []string {
	starts := snap.Roots()
	if rootID != "" {
		if _, ok := snap.Nodes[rootID]; !ok {
			return nil
		}
		starts = []string{rootID}
	}

	path := make([]string, 0, len(snap.Nodes))
	seen := make(map[string]bool, len(snap.Nodes))
	var dfs func(id string)
	dfs = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		path = append(path, id)
		for _, child := range orderedChildren(snap, id) {
			dfs(child)
		}
	}
	for _, id := range starts {
		dfs(id)
	}
	return path
}

func orderedChildren(snap *graph.Snapshot, id string) []string {
	children := append([]string(nil), snap.Children[id]...)
	sort.SliceStable(children, func(i, j int) bool {
		a, b := snap.Nodes[children[i]], snap.Nodes[children[j]]
		if a.AlwaysVisible != b.AlwaysVisible {
			return !a.AlwaysVisible
		}
		if hasChildren(snap, a.ID) != hasChildren(snap, b.ID) {
			return hasChildren(snap, a.ID)
		}
		return false
	})
	return children
}

// hasChildren trusts the node flag and falls back to the parent links
func hasChildren(snap *graph.Snapshot, id string) bool {
	n, ok := snap.Nodes[id]
	if !ok {
		return false
	}
	return n.HasChildren || len(snap.Children[id]) > 0
}
