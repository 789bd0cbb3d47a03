package layout

import (
	"context"
	"math"

	gl "github.com/nikolaydubina/go-graph-layout/layout"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// Sugiyama runs go-graph-layout's layered strategy: cycle removal, level
// assignment, crossing reduction, then Brandes-Kopf coordinates. Parent
// links count as edges so a revealed child always sits below its parent.
type Sugiyama struct {
	// Epochs bounds the ordering optimizer; zero uses 100.
	Epochs int
}

func (s Sugiyama) Layout(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (pos map[string]Point, err error) {
	if len(nodes) == 0 {
		return map[string]Point{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := opts.NodeWidth, opts.NodeHeight
	if opts.Direction == Right {
		w, h = h, w
	}

	g, ids := toLibraryGraph(nodes, edges, opts.RootsSameRank, px(w), px(h))

	// the library panics on internal validation failures
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, errors.Newf("layered layout panicked: %v", r)
		}
	}()
	s.strategy(opts).UpdateGraphLayout(g)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fromLibraryGraph(g, ids, opts.Direction), nil
}

func (s Sugiyama) strategy(opts Options) gl.SugiyamaLayersStrategyGraphLayout {
	epochs := s.Epochs
	if epochs <= 0 {
		epochs = 100
	}
	spacing := px(opts.NodeSpacing)
	layers := px(opts.LayerSpacing)
	return gl.SugiyamaLayersStrategyGraphLayout{
		CycleRemover:   gl.NewSimpleCycleRemover(),
		LevelsAssigner: gl.NewLayeredGraph,
		OrderingAssigner: gl.WarfieldOrderingOptimizer{
			Epochs:                   epochs,
			LayerOrderingInitializer: gl.BFSOrderingInitializer,
			LayerOrderingOptimizer: gl.CompositeLayerOrderingOptimizer{
				Optimizers: []gl.LayerOrderingOptimizer{
					gl.WMedianOrderingOptimizer{},
					gl.SwitchAdjacentOrderingOptimizer{},
				},
			}.Optimize,
		}.Optimize,
		NodesHorizontalCoordinatesAssigner: gl.BrandesKopfLayersNodesHorizontalAssigner{
			Delta: spacing,
		},
		NodesVerticalCoordinatesAssigner: gl.BasicNodesVerticalCoordinatesAssigner{
			MarginLayers:   layers,
			FakeNodeHeight: layers,
		},
		EdgePathAssigner: gl.StraightEdgePathAssigner{}.UpdateGraphLayout,
	}
}

// toLibraryGraph numbers nodes by model order. Self loops and duplicate
// links are dropped; with pinRoots, links into a root are dropped too so
// every root lands on level 0.
func toLibraryGraph(nodes []graph.Node, edges []graph.Edge, pinRoots bool, w, h int) (gl.Graph, []string) {
	g := gl.Graph{
		Nodes: make(map[uint64]gl.Node, len(nodes)),
		Edges: make(map[[2]uint64]gl.Edge, len(edges)+len(nodes)),
	}
	index := make(map[string]uint64, len(nodes))
	ids := make([]string, len(nodes))
	roots := make(map[uint64]bool)
	for i, n := range nodes {
		index[n.ID] = uint64(i)
		ids[i] = n.ID
		g.Nodes[uint64(i)] = gl.Node{W: w, H: h}
		if pinRoots && n.IsRoot() {
			roots[uint64(i)] = true
		}
	}
	link := func(from, to string) {
		u, okU := index[from]
		v, okV := index[to]
		if !okU || !okV || u == v || roots[v] {
			return
		}
		// a reverse link would form a two-cycle the remover cannot restore
		if _, ok := g.Edges[[2]uint64{v, u}]; ok {
			return
		}
		g.Edges[[2]uint64{u, v}] = gl.Edge{}
	}
	for _, n := range nodes {
		if n.Parent != "" {
			link(n.Parent, n.ID)
		}
	}
	for _, e := range edges {
		link(e.Source, e.Target)
	}
	return g, ids
}

// fromLibraryGraph reads top-left corners back, transposes for RIGHT and
// shifts the result so the smallest coordinate on each axis is 0.
func fromLibraryGraph(g gl.Graph, ids []string, dir Direction) map[string]Point {
	out := make(map[string]Point, len(ids))
	minX, minY := math.Inf(1), math.Inf(1)
	for i, id := range ids {
		n := g.Nodes[uint64(i)]
		p := Point{X: float64(n.XY[0]), Y: float64(n.XY[1])}
		if dir == Right {
			p = Point{X: p.Y, Y: p.X}
		}
		out[id] = p
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
	}
	for id, p := range out {
		out[id] = Point{X: p.X - minX, Y: p.Y - minY}
	}
	return out
}

func px(v float64) int { return int(math.Round(v)) }
