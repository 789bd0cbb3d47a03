package visibility

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// scenarioDataset is the skeleton 1 -> 30, 1 -> 31, 31 -> 311, 31 -> 312
// (all fixed) with children {2, 5, 8, 11} under 1, and one more level
// under 2 and 31.
func scenarioDataset() *catalog.Dataset {
	skel := func(id, parent string) graph.Node {
		return graph.Node{ID: id, Label: id, Parent: parent, AlwaysVisible: true}
	}
	child := func(id, parent string, hasChildren bool) graph.Node {
		return graph.Node{ID: id, Label: id, Parent: parent, HasChildren: hasChildren}
	}
	edge := func(s, t string, fixed bool) graph.Edge {
		return graph.Edge{ID: s + "-" + t, Source: s, Target: t, Fixed: fixed}
	}
	return &catalog.Dataset{
		Default: catalog.Subgraph{
			Nodes: []graph.Node{skel("1", ""), skel("30", "1"), skel("31", "1"), skel("311", "31"), skel("312", "31")},
			Edges: []graph.Edge{edge("1", "30", true), edge("1", "31", true), edge("31", "311", true), edge("31", "312", true)},
		},
		Children: map[string]catalog.Subgraph{
			"1": {
				Nodes: []graph.Node{child("2", "1", true), child("5", "1", false), child("8", "1", false), child("11", "1", false)},
				Edges: []graph.Edge{edge("1", "2", false), edge("1", "5", false), edge("1", "8", false), edge("1", "11", false)},
			},
			"2": {
				Nodes: []graph.Node{child("3", "2", false)},
				Edges: []graph.Edge{edge("2", "3", false), edge("2", "30", false)},
			},
			"31": {
				Nodes: []graph.Node{child("313", "31", false)},
				Edges: []graph.Edge{edge("31", "313", false)},
			},
		},
	}
}

func newScenarioStore(t *testing.T) *Store {
	t.Helper()
	s := New(catalog.NewMemory(scenarioDataset()), nil)
	require.NoError(t, s.Init(context.Background()))
	return s
}

var skeletonIDs = []string{"1", "30", "31", "311", "312"}
var skeletonEdgeIDs = []string{"1-30", "1-31", "31-311", "31-312"}

func TestInit_Skeleton(t *testing.T) {
	s := newScenarioStore(t)
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
	for _, n := range s.Snapshot().Nodes {
		assert.True(t, n.InitialVisible, n.ID)
	}
	require.NoError(t, s.Check())
}

func TestToggle_ExpandRevealsChildren(t *testing.T) {
	s := newScenarioStore(t)

	action, err := s.Toggle(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, ActionExpand, action)

	assert.ElementsMatch(t, []string{"1", "30", "31", "311", "312", "2", "5", "8", "11"}, s.NodeIDs())
	var revealed []string
	for _, e := range s.Snapshot().Edges {
		if !e.Fixed {
			assert.Equal(t, "1", e.Source)
			revealed = append(revealed, e.ID)
		}
	}
	assert.Len(t, revealed, 4)
	for _, id := range []string{"2", "5", "8", "11"} {
		n, ok := s.Node(id)
		require.True(t, ok)
		assert.False(t, n.InitialVisible, id)
	}
	assert.True(t, s.IsExpanded("1"))
	require.NoError(t, s.Check())
}

func TestToggle_SecondClickRestoresSkeleton(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	_, err := s.Toggle(ctx, "1")
	require.NoError(t, err)
	action, err := s.Toggle(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, ActionCollapse, action)
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
	assert.False(t, s.IsExpanded("1"))
	require.NoError(t, s.Check())
}

func TestToggle_PartiallyVisibleChildrenExpands(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()
	require.NoError(t, s.ExpandAll(ctx))
	require.NoError(t, s.CollapseToSkeleton(ctx))

	// reveal only one child of 1 by hand through a reset containing it
	nodes, edges := s.Skeleton()
	nodes = append(nodes, graph.Node{ID: "2", Label: "2", Parent: "1", HasChildren: true})
	s.Reset(nodes, edges)
	assert.Equal(t, 1, s.VisibleChildCount("1"))

	action, err := s.Toggle(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, ActionExpand, action)
	assert.Equal(t, 4, s.VisibleChildCount("1"))
}

func TestCollapse_PrunesDescendants(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.Expand(ctx, "1"))
	require.NoError(t, s.Expand(ctx, "2"))
	assert.Contains(t, s.NodeIDs(), "3")
	assert.Contains(t, s.EdgeIDs(), "2-30")

	require.NoError(t, s.Collapse(ctx, "1"))

	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
	require.NoError(t, s.Check())
}

func TestCollapse_KeepsFixedEdgesAndAlwaysVisible(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.Expand(ctx, "31"))
	require.NoError(t, s.Collapse(ctx, "31"))
	require.NoError(t, s.Collapse(ctx, "1"))

	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
}

func TestCollapseThenExpand_RoundTrip(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.Expand(ctx, "1"))
	before := s.NodeIDs()

	require.NoError(t, s.Collapse(ctx, "1"))
	require.NoError(t, s.Expand(ctx, "1"))

	assert.Equal(t, before, s.NodeIDs())
}

func TestExpand_Idempotent(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.Expand(ctx, "1"))
	nodes, edges := s.NodeIDs(), s.EdgeIDs()
	require.NoError(t, s.Expand(ctx, "1"))

	assert.Equal(t, nodes, s.NodeIDs())
	assert.Equal(t, edges, s.EdgeIDs())
}

func TestExpand_HiddenNodeIsNotFound(t *testing.T) {
	s := newScenarioStore(t)
	err := s.Expand(context.Background(), "2")
	assert.True(t, errors.IsNotFound(err))
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
}

func TestExpand_DropsEdgeToHiddenNode(t *testing.T) {
	ds := scenarioDataset()
	sub := ds.Children["1"]
	sub.Edges = append(sub.Edges, graph.Edge{ID: "1-ghost", Source: "1", Target: "ghost"})
	ds.Children["1"] = sub
	s := New(catalog.NewMemory(ds), nil)
	require.NoError(t, s.Init(context.Background()))

	require.NoError(t, s.Expand(context.Background(), "1"))

	assert.NotContains(t, s.EdgeIDs(), "1-ghost")
	require.NoError(t, s.Check())
}

func TestExpandAll_AndCollapseToSkeleton(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.ExpandAll(ctx))
	assert.ElementsMatch(t,
		[]string{"1", "30", "31", "311", "312", "2", "5", "8", "11", "313", "3"},
		s.NodeIDs())
	for _, n := range s.Snapshot().Nodes {
		assert.Equal(t, n.AlwaysVisible || n.Parent == "", n.InitialVisible, n.ID)
	}
	require.NoError(t, s.Check())

	require.NoError(t, s.CollapseToSkeleton(ctx))
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
}

func TestExpandSubtree(t *testing.T) {
	s := newScenarioStore(t)
	ctx := context.Background()

	require.NoError(t, s.ExpandSubtree(ctx, "1"))

	assert.ElementsMatch(t,
		[]string{"1", "30", "31", "311", "312", "2", "5", "8", "11", "313", "3"},
		s.NodeIDs())
	assert.Contains(t, s.EdgeIDs(), "2-30")
	require.NoError(t, s.Check())
}

func TestExpandSubtree_MatchesSequentialExpands(t *testing.T) {
	ctx := context.Background()
	bulk := newScenarioStore(t)
	require.NoError(t, bulk.ExpandSubtree(ctx, "1"))

	seq := newScenarioStore(t)
	for _, id := range []string{"1", "30", "31", "2", "5", "8", "11", "311", "312", "313", "3"} {
		require.NoError(t, seq.Expand(ctx, id))
	}

	assert.Equal(t, seq.NodeIDs(), bulk.NodeIDs())
	assert.Equal(t, seq.EdgeIDs(), bulk.EdgeIDs())
}

// failingCatalog fails every Children call for the listed nodes
type failingCatalog struct {
	catalog.Catalog
	fail map[string]bool
}

func (f failingCatalog) Children(ctx context.Context, id string) ([]graph.Node, error) {
	if f.fail[id] {
		return nil, errors.DataUnavailable(errors.New("backend down"))
	}
	return f.Catalog.Children(ctx, id)
}

func TestToggle_DataUnavailableDegradesToLeaf(t *testing.T) {
	cat := failingCatalog{Catalog: catalog.NewMemory(scenarioDataset()), fail: map[string]bool{"1": true}}
	s := New(cat, nil)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	action, err := s.Toggle(ctx, "1")
	assert.Equal(t, ActionNone, action)
	assert.True(t, errors.IsDataUnavailable(err))
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.True(t, s.Unavailable("1"))
	assert.False(t, s.IsExpandable("1"))

	action, err = s.Toggle(ctx, "1")
	assert.Equal(t, ActionNone, action)
	assert.NoError(t, err, "second click on an unavailable node is a quiet no-op")
}

func TestToggle_FailureOnExpandedNodeCollapses(t *testing.T) {
	cat := failingCatalog{Catalog: catalog.NewMemory(scenarioDataset()), fail: map[string]bool{}}
	s := New(cat, nil)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	action, err := s.Toggle(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, ActionExpand, action)

	cat.fail["1"] = true
	action, err = s.Toggle(ctx, "1")
	assert.Equal(t, ActionCollapse, action)
	assert.True(t, errors.IsDataUnavailable(err))
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
	assert.ElementsMatch(t, skeletonEdgeIDs, s.EdgeIDs())
	require.NoError(t, s.Check())

	action, err = s.Toggle(ctx, "1")
	assert.Equal(t, ActionNone, action)
	assert.NoError(t, err)
	assert.ElementsMatch(t, skeletonIDs, s.NodeIDs())
}

func TestExpandSubtree_ContinuesPastFailures(t *testing.T) {
	cat := failingCatalog{Catalog: catalog.NewMemory(scenarioDataset()), fail: map[string]bool{"2": true}}
	s := New(cat, nil)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	err := s.ExpandSubtree(ctx, "1")

	assert.True(t, errors.IsDataUnavailable(err))
	assert.Contains(t, s.NodeIDs(), "313")
	assert.NotContains(t, s.NodeIDs(), "3")
	require.NoError(t, s.Check())
}

func TestInvariants_RandomToggleSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		s := New(catalog.NewMemory(catalog.Sample()), nil)
		require.NoError(t, s.Init(ctx))
		skelNodes, skelEdges := s.Skeleton()

		for step := 0; step < 40; step++ {
			ids := s.NodeIDs()
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(10) {
			case 0:
				require.NoError(t, s.ExpandAll(ctx))
			case 1:
				require.NoError(t, s.CollapseToSkeleton(ctx))
			case 2:
				require.NoError(t, s.ExpandSubtree(ctx, id))
			default:
				_, err := s.Toggle(ctx, id)
				require.NoError(t, err)
			}

			require.NoError(t, s.Check(), "run %d step %d", run, step)
			visible := s.NodeIDs()
			for _, n := range skelNodes {
				assert.Contains(t, visible, n.ID)
			}
			edges := s.EdgeIDs()
			for _, e := range skelEdges {
				assert.Contains(t, edges, e.ID)
			}
		}
	}
}
