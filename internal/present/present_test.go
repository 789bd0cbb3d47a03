package present

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/visibility"
)

func skel(id, parent string) visibility.VisibleNode {
	return visibility.VisibleNode{
		Node:           graph.Node{ID: id, Label: id, Parent: parent, AlwaysVisible: true},
		InitialVisible: true,
	}
}

func revealed(id, parent string, hasChildren bool) visibility.VisibleNode {
	return visibility.VisibleNode{Node: graph.Node{ID: id, Label: id, Parent: parent, HasChildren: hasChildren}}
}

func edge(s, t string, fixed bool) graph.Edge {
	return graph.Edge{ID: s + "-" + t, Source: s, Target: t, Fixed: fixed}
}

// expandedInput is the skeleton 1 -> 31 -> 311 with 1 expanded to show 2
func expandedInput() Input {
	return Input{
		Nodes: []visibility.VisibleNode{
			skel("1", ""), skel("31", "1"), skel("311", "31"), revealed("2", "1", true),
		},
		Edges: []graph.Edge{
			edge("1", "31", true), edge("31", "311", true), edge("1", "2", false),
		},
		Positions: map[string]layout.Point{"1": {X: 10, Y: 0}, "2": {X: 0, Y: 160}},
	}
}

func edgeByID(t *testing.T, s Scene, id string) StyledEdge {
	t.Helper()
	for _, e := range s.Edges {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("edge %s not in scene", id)
	return StyledEdge{}
}

func nodeByID(t *testing.T, s Scene, id string) StyledNode {
	t.Helper()
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not in scene", id)
	return StyledNode{}
}

func TestDerive_Empty(t *testing.T) {
	s := Derive(Input{})
	assert.Empty(t, s.Nodes)
	assert.Empty(t, s.Edges)
}

func TestDerive_EdgeColoring(t *testing.T) {
	p := DefaultPalette()
	s := p.Derive(expandedInput())

	root := edgeByID(t, s, "1-31")
	assert.True(t, root.Skeleton)
	assert.Equal(t, p.RootEdge, root.Style.Stroke)
	assert.Equal(t, "6 4", root.Style.StrokeDasharray)

	deep := edgeByID(t, s, "31-311")
	assert.True(t, deep.Skeleton)
	assert.Equal(t, p.SkeletonEdge, deep.Style.Stroke)
	assert.Equal(t, "6 4", deep.Style.StrokeDasharray)

	rev := edgeByID(t, s, "1-2")
	assert.False(t, rev.Skeleton)
	assert.Equal(t, p.RevealedEdge, rev.Style.Stroke)
	assert.Equal(t, "0", rev.Style.StrokeDasharray)
	assert.Equal(t, 3, rev.Style.StrokeWidth)
	assert.Equal(t, rev.Style.Stroke, rev.Style.MarkerColor)
}

func TestDerive_LevelsAndExpansion(t *testing.T) {
	s := Derive(expandedInput())

	assert.Equal(t, 0, nodeByID(t, s, "1").Level)
	assert.Equal(t, 1, nodeByID(t, s, "31").Level)
	assert.Equal(t, 2, nodeByID(t, s, "311").Level)

	// 31 has only an always-visible child, so it does not count as expanded
	assert.True(t, nodeByID(t, s, "1").IsExpanded)
	assert.False(t, nodeByID(t, s, "31").IsExpanded)
	assert.False(t, nodeByID(t, s, "2").IsExpanded)
}

func TestDerive_NodeStylesAndPositions(t *testing.T) {
	p := DefaultPalette()
	s := p.Derive(expandedInput())

	one := nodeByID(t, s, "1")
	assert.Equal(t, layout.Point{X: 10, Y: 0}, one.Position)
	assert.Equal(t, p.SkeletonBackground, one.Style.Background)
	assert.Equal(t, "2px solid #5C6BC0", one.Style.Border)
	assert.Equal(t, "white", one.Style.Color)
	assert.Equal(t, 1.0, one.Style.Opacity)
	assert.Equal(t, "none", one.Style.BoxShadow)

	two := nodeByID(t, s, "2")
	assert.Equal(t, p.RevealedBackground, two.Style.Background)
	assert.Equal(t, "2px solid #FBBF24", two.Style.Border)
	assert.True(t, two.Expandable)
}

func TestDerive_OutputFollowsInputOrder(t *testing.T) {
	in := expandedInput()
	s := Derive(in)
	require.Len(t, s.Nodes, len(in.Nodes))
	for i := range in.Nodes {
		assert.Equal(t, in.Nodes[i].ID, s.Nodes[i].ID)
	}
}

func TestDerive_GlowAndUnavailable(t *testing.T) {
	in := expandedInput()
	in.Glowing = map[string]bool{"2": true, "1": true}
	in.Unavailable = map[string]bool{"2": true}
	s := Derive(in)

	two := nodeByID(t, s, "2")
	assert.True(t, two.IsGlowing)
	assert.Equal(t, "0 0 25px 10px rgba(251, 191, 36, 0.7)", two.Style.BoxShadow)
	assert.False(t, two.Expandable)

	one := nodeByID(t, s, "1")
	assert.Equal(t, "0 0 25px 10px rgba(92, 107, 192, 0.7)", one.Style.BoxShadow)
	assert.False(t, nodeByID(t, s, "31").IsGlowing)
}

func TestDerive_TourFocus(t *testing.T) {
	in := expandedInput()
	in.Focus = Focus{
		Active:  true,
		Current: "2",
		Visited: map[string]bool{"1": true, "2": true},
	}
	p := DefaultPalette()
	s := p.Derive(in)

	assert.Equal(t, 1.0, nodeByID(t, s, "1").Style.Opacity)
	assert.Equal(t, 1.0, nodeByID(t, s, "2").Style.Opacity)
	assert.Equal(t, 0.2, nodeByID(t, s, "31").Style.Opacity)
	assert.Equal(t, "3px solid #FBBF24", nodeByID(t, s, "2").Style.Border)
	assert.Equal(t, "2px solid #5C6BC0", nodeByID(t, s, "1").Style.Border)

	visited := edgeByID(t, s, "1-2")
	assert.Equal(t, 1.0, visited.Style.Opacity)
	assert.Equal(t, p.MarkerVisited, visited.Style.MarkerColor)

	dimmed := edgeByID(t, s, "1-31")
	assert.Equal(t, 0.2, dimmed.Style.Opacity)
	assert.Equal(t, p.MarkerDimmed, dimmed.Style.MarkerColor)
}

func TestDerive_Caption(t *testing.T) {
	in := expandedInput()
	in.Edges[2].Label = "calls"
	s := Derive(in)
	assert.Equal(t, "calls", edgeByID(t, s, "1-2").Caption)
	assert.Equal(t, "1 → 31", edgeByID(t, s, "1-31").Caption)
}

func TestDerive_EdgeToUnknownNodeIsRevealed(t *testing.T) {
	in := Input{
		Nodes: []visibility.VisibleNode{skel("1", "")},
		Edges: []graph.Edge{edge("1", "ghost", true)},
	}
	s := Derive(in)
	assert.False(t, s.Edges[0].Skeleton)
}

func TestGlow_ExpiresAndNotifies(t *testing.T) {
	cleared := make(chan string, 1)
	g := NewGlow(20*time.Millisecond, func(id string) { cleared <- id })

	g.Light("2")
	assert.True(t, g.IsLit("2"))
	assert.Equal(t, map[string]bool{"2": true}, g.Lit())

	select {
	case id := <-cleared:
		assert.Equal(t, "2", id)
	case <-time.After(time.Second):
		t.Fatal("glow never cleared")
	}
	assert.False(t, g.IsLit("2"))
}

func TestGlow_RelightRestartsTimer(t *testing.T) {
	var clears atomic.Int32
	g := NewGlow(60*time.Millisecond, func(string) { clears.Add(1) })

	g.Light("a")
	time.Sleep(40 * time.Millisecond)
	g.Light("a")
	time.Sleep(40 * time.Millisecond)

	// the first timer would have fired by now
	assert.True(t, g.IsLit("a"))
	assert.Equal(t, int32(0), clears.Load())

	require.Eventually(t, func() bool { return clears.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, g.IsLit("a"))
}

func TestGlow_ClearStopsTimers(t *testing.T) {
	var clears atomic.Int32
	g := NewGlow(10*time.Millisecond, func(string) { clears.Add(1) })
	g.Light("a")
	g.Light("b")
	g.Clear()

	assert.Empty(t, g.Lit())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), clears.Load())
}

func TestGlow_DefaultDuration(t *testing.T) {
	g := NewGlow(0, nil)
	assert.Equal(t, DefaultGlowDuration, g.duration)
}
