package graph

import "sort"

// FanoutNode is a node with many children in the hierarchy
type FanoutNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Children int    `json:"children"`
	OutEdges int    `json:"out_edges"`
}

// LevelBucket counts nodes at one hierarchy depth
type LevelBucket struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// TopologyReport summarizes the structure of a catalog graph
type TopologyReport struct {
	TotalNodes     int           `json:"total_nodes"`
	TotalEdges     int           `json:"total_edges"`
	FixedEdges     int           `json:"fixed_edges"`
	SkeletonNodes  int           `json:"skeleton_nodes"`
	Roots          []string      `json:"roots"`
	NumComponents  int           `json:"num_components"`
	Largest        int           `json:"largest_component"`
	OrphanIDs      []string      `json:"orphan_ids"`
	UnreachableIDs []string      `json:"unreachable_ids"`
	DanglingEdges  []string      `json:"dangling_edges"`
	MaxDepth       int           `json:"max_depth"`
	Levels         []LevelBucket `json:"levels"`
	Fanout         []FanoutNode  `json:"fanout"`
}

// ComputeTopology reports components, orphans, depth distribution and the
// topN widest parents. Unreachable nodes are those no parent chain connects
// to a root; they can never be revealed by expanding from the skeleton.
func ComputeTopology(snap *Snapshot, topN int) *TopologyReport {
	r := &TopologyReport{
		TotalNodes: len(snap.Nodes),
		TotalEdges: len(snap.Edges),
		Roots:      snap.Roots(),
	}
	if r.TotalNodes == 0 {
		return r
	}

	nodeIDs := snap.NodeIDs()
	uf := NewUnionFind(nodeIDs)
	for _, e := range snap.Edges {
		if e.Fixed {
			r.FixedEdges++
		}
		_, okS := snap.Nodes[e.Source]
		_, okT := snap.Nodes[e.Target]
		if !okS || !okT {
			r.DanglingEdges = append(r.DanglingEdges, e.ID)
			continue
		}
		uf.Union(e.Source, e.Target)
	}
	components := uf.Components()
	r.NumComponents = len(components)
	r.Largest = len(components[0])

	levels := snap.Levels()
	counts := make(map[int]int)
	for _, id := range nodeIDs {
		if snap.Nodes[id].IsSkeleton() {
			r.SkeletonNodes++
		}
		if len(snap.OutAdj[id]) == 0 && len(snap.InAdj[id]) == 0 {
			r.OrphanIDs = append(r.OrphanIDs, id)
		}
		level, ok := levels[id]
		if !ok {
			r.UnreachableIDs = append(r.UnreachableIDs, id)
			continue
		}
		counts[level]++
		if level > r.MaxDepth {
			r.MaxDepth = level
		}
	}
	for level := 0; level <= r.MaxDepth; level++ {
		r.Levels = append(r.Levels, LevelBucket{Level: level, Count: counts[level]})
	}

	for parent, children := range snap.Children {
		n, ok := snap.Nodes[parent]
		if !ok {
			continue
		}
		r.Fanout = append(r.Fanout, FanoutNode{
			ID:       parent,
			Label:    n.Label,
			Children: len(children),
			OutEdges: len(snap.OutAdj[parent]),
		})
	}
	sort.Slice(r.Fanout, func(i, j int) bool {
		if r.Fanout[i].Children != r.Fanout[j].Children {
			return r.Fanout[i].Children > r.Fanout[j].Children
		}
		return r.Fanout[i].ID < r.Fanout[j].ID
	})
	if len(r.Fanout) > topN {
		r.Fanout = r.Fanout[:topN]
	}

	return r
}
