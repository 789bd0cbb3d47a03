// Package present turns the visible graph into render-ready styles.
//
// Derive is pure: everything it needs (visible sets, positions, glow and
// tour focus) arrives in Input, and the Scene it returns carries only IDs
// and style values, never references back into the store.
package present

import (
	"fmt"

	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/visibility"
)

// NodeStyle is the inline style of a rendered node
type NodeStyle struct {
	Color        string  `json:"color"`
	Background   string  `json:"background"`
	Border       string  `json:"border"`
	BorderRadius int     `json:"borderRadius"`
	Opacity      float64 `json:"opacity"`
	BoxShadow    string  `json:"boxShadow"`
}

// EdgeStyle is the stroke and marker style of a rendered edge
type EdgeStyle struct {
	Stroke          string  `json:"stroke"`
	StrokeWidth     int     `json:"strokeWidth"`
	StrokeDasharray string  `json:"strokeDasharray"`
	Opacity         float64 `json:"opacity"`
	MarkerColor     string  `json:"markerColor"`
}

// StyledNode is a visible node with its derived presentation state
type StyledNode struct {
	visibility.VisibleNode
	Position   layout.Point `json:"position"`
	Level      int          `json:"level"`
	IsExpanded bool         `json:"isExpanded"`
	IsGlowing  bool         `json:"isGlowing"`
	Expandable bool         `json:"expandable"`
	Style      NodeStyle    `json:"style"`
}

// StyledEdge is a visible edge with its derived presentation state
type StyledEdge struct {
	graph.Edge
	Skeleton bool      `json:"skeleton"`
	Caption  string    `json:"caption"`
	Style    EdgeStyle `json:"style"`
}

// Scene is everything a rendering surface needs to draw one frame
type Scene struct {
	Nodes []StyledNode `json:"nodes"`
	Edges []StyledEdge `json:"edges"`
}

// Focus is the tour highlight. When Active, nodes outside Visited (other
// than Current) and edges with an endpoint outside Visited are dimmed.
type Focus struct {
	Active  bool
	Current string
	Visited map[string]bool
}

// Input is the visible state one Derive pass reads
type Input struct {
	Nodes       []visibility.VisibleNode
	Edges       []graph.Edge
	Positions   map[string]layout.Point
	Glowing     map[string]bool
	Unavailable map[string]bool
	Focus       Focus
}

// Palette holds the colors and stroke patterns Derive applies
type Palette struct {
	RootEdge     string `mapstructure:"root_edge"`
	SkeletonEdge string `mapstructure:"skeleton_edge"`
	RevealedEdge string `mapstructure:"revealed_edge"`
	SkeletonDash string `mapstructure:"skeleton_dash"`
	RevealedDash string `mapstructure:"revealed_dash"`
	EdgeWidth    int    `mapstructure:"edge_width"`

	SkeletonBackground string `mapstructure:"skeleton_background"`
	SkeletonBorder     string `mapstructure:"skeleton_border"`
	SkeletonGlow       string `mapstructure:"skeleton_glow"`
	RevealedBackground string `mapstructure:"revealed_background"`
	RevealedBorder     string `mapstructure:"revealed_border"`
	RevealedGlow       string `mapstructure:"revealed_glow"`
	TextColor          string `mapstructure:"text_color"`

	DimOpacity    float64 `mapstructure:"dim_opacity"`
	MarkerVisited string  `mapstructure:"marker_visited"`
	MarkerDimmed  string  `mapstructure:"marker_dimmed"`
}

// DefaultPalette returns the stock indigo/amber theme
func DefaultPalette() Palette {
	return Palette{
		RootEdge:     "#3B82F6",
		SkeletonEdge: "#46AE6F",
		RevealedEdge: "#F59E0B",
		SkeletonDash: "6 4",
		RevealedDash: "0",
		EdgeWidth:    3,

		SkeletonBackground: "linear-gradient(to left, #283593, #3949AB)",
		SkeletonBorder:     "#5C6BC0",
		SkeletonGlow:       "rgba(92, 107, 192, 0.7)",
		RevealedBackground: "linear-gradient(to right bottom, #F59E0B, #D97706)",
		RevealedBorder:     "#FBBF24",
		RevealedGlow:       "rgba(251, 191, 36, 0.7)",
		TextColor:          "white",

		DimOpacity:    0.2,
		MarkerVisited: "#46AE6F",
		MarkerDimmed:  "#999",
	}
}

// Derive styles in with the default palette
func Derive(in Input) Scene {
	return DefaultPalette().Derive(in)
}

// Derive computes levels, expansion, glow and focus styling for every
// visible node and edge. Output order follows input order.
func (p Palette) Derive(in Input) Scene {
	nodes := make([]graph.Node, len(in.Nodes))
	byID := make(map[string]visibility.VisibleNode, len(in.Nodes))
	expanded := make(map[string]bool)
	for i, n := range in.Nodes {
		nodes[i] = n.Node
		byID[n.ID] = n
		if n.Parent != "" && !n.AlwaysVisible {
			expanded[n.Parent] = true
		}
	}
	levels := graph.NewSnapshot(nodes, nil).Levels()

	scene := Scene{
		Nodes: make([]StyledNode, 0, len(in.Nodes)),
		Edges: make([]StyledEdge, 0, len(in.Edges)),
	}
	for _, n := range in.Nodes {
		scene.Nodes = append(scene.Nodes, StyledNode{
			VisibleNode: n,
			Position:    in.Positions[n.ID],
			Level:       levels[n.ID],
			IsExpanded:  expanded[n.ID],
			IsGlowing:   in.Glowing[n.ID],
			Expandable:  n.HasChildren && !in.Unavailable[n.ID],
			Style:       p.nodeStyle(n, in.Glowing[n.ID], in.Focus),
		})
	}
	for _, e := range in.Edges {
		src, dst := byID[e.Source], byID[e.Target]
		skeleton := src.AlwaysVisible && dst.AlwaysVisible
		scene.Edges = append(scene.Edges, StyledEdge{
			Edge:     e,
			Skeleton: skeleton,
			Caption:  caption(e),
			Style:    p.edgeStyle(e, skeleton, levels[e.Source], in.Focus),
		})
	}
	return scene
}

func (p Palette) nodeStyle(n visibility.VisibleNode, glowing bool, f Focus) NodeStyle {
	background, border, glow := p.RevealedBackground, p.RevealedBorder, p.RevealedGlow
	if n.InitialVisible {
		background, border, glow = p.SkeletonBackground, p.SkeletonBorder, p.SkeletonGlow
	}

	s := NodeStyle{
		Color:        p.TextColor,
		Background:   background,
		Border:       fmt.Sprintf("2px solid %s", border),
		BorderRadius: 8,
		Opacity:      1,
		BoxShadow:    "none",
	}
	if glowing {
		s.BoxShadow = fmt.Sprintf("0 0 25px 10px %s", glow)
	}
	if f.Active {
		current := n.ID == f.Current
		if !current && !f.Visited[n.ID] {
			s.Opacity = p.DimOpacity
		}
		if current {
			// the focused border follows the skeleton split, not InitialVisible
			b := p.RevealedBorder
			if n.AlwaysVisible {
				b = p.SkeletonBorder
			}
			s.Border = fmt.Sprintf("3px solid %s", b)
		}
	}
	return s
}

func (p Palette) edgeStyle(e graph.Edge, skeleton bool, sourceLevel int, f Focus) EdgeStyle {
	s := EdgeStyle{
		Stroke:          p.RevealedEdge,
		StrokeWidth:     p.EdgeWidth,
		StrokeDasharray: p.RevealedDash,
		Opacity:         1,
	}
	if skeleton {
		s.StrokeDasharray = p.SkeletonDash
		s.Stroke = p.SkeletonEdge
		if sourceLevel == 0 {
			s.Stroke = p.RootEdge
		}
	}
	s.MarkerColor = s.Stroke

	if f.Active {
		if f.Visited[e.Source] && f.Visited[e.Target] {
			s.MarkerColor = p.MarkerVisited
		} else {
			s.Opacity = p.DimOpacity
			s.MarkerColor = p.MarkerDimmed
		}
	}
	return s
}

func caption(e graph.Edge) string {
	if e.Label != "" {
		return e.Label
	}
	return e.Source + " → " + e.Target
}
