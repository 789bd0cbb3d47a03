// Package layout maps the visible node/edge set to 2-D positions.
//
// The Engine is a black box; Adapter is the boundary the rest of the engine
// talks to. It bounds each call by a timeout and, when the engine fails,
// keeps the previous positions so the graph never disappears.
package layout

import (
	"context"

	"canopy/explorer/internal/graph"
)

// Point is a node's top-left position
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Direction of rank progression
type Direction string

const (
	Down  Direction = "DOWN"
	Right Direction = "RIGHT"
)

// Options configures a layout run
type Options struct {
	Direction     Direction `mapstructure:"direction"`
	NodeWidth     float64   `mapstructure:"node_width"`
	NodeHeight    float64   `mapstructure:"node_height"`
	NodeSpacing   float64   `mapstructure:"node_spacing"`
	LayerSpacing  float64   `mapstructure:"layer_spacing"`
	RootsSameRank bool      `mapstructure:"roots_same_rank"`
}

// DefaultOptions matches the rendering surface's node box
func DefaultOptions() Options {
	return Options{
		Direction:     Down,
		NodeWidth:     200,
		NodeHeight:    60,
		NodeSpacing:   20,
		LayerSpacing:  100,
		RootsSameRank: true,
	}
}

// Engine computes positions for a node/edge set. Implementations must
// return a position for every node they were given.
type Engine interface {
	Layout(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]Point, error)
}

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]Point, error)

func (f EngineFunc) Layout(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]Point, error) {
	return f(ctx, nodes, edges, opts)
}
