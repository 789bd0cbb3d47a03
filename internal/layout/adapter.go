package layout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/logger"
)

// Adapter runs an Engine with a timeout and remembers the last good result
type Adapter struct {
	engine  Engine
	opts    Options
	timeout time.Duration
	log     *zap.SugaredLogger

	mu   sync.Mutex
	last map[string]Point
}

// NewAdapter wraps engine. A zero timeout means no limit beyond ctx.
func NewAdapter(engine Engine, opts Options, timeout time.Duration, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		engine:  engine,
		opts:    opts,
		timeout: timeout,
		log:     logger.Named(log, "layout"),
		last:    map[string]Point{},
	}
}

// Options returns the options every run uses
func (a *Adapter) Options() Options { return a.opts }

type result struct {
	pos map[string]Point
	err error
}

// Layout positions nodes. On engine failure or timeout it returns the
// previous positions (new nodes are placed one layer below their parent)
// together with an error marked ErrLayoutFailure. Empty input returns an
// empty map and no error.
func (a *Adapter) Layout(ctx context.Context, nodes []graph.Node, edges []graph.Edge) (map[string]Point, error) {
	if len(nodes) == 0 {
		a.remember(map[string]Point{})
		return map[string]Point{}, nil
	}

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	start := time.Now()
	go func() {
		pos, err := a.engine.Layout(runCtx, nodes, edges, a.opts)
		done <- result{pos, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-runCtx.Done():
		res.err = runCtx.Err()
	}

	if res.err == nil {
		if missing := firstMissing(nodes, res.pos); missing != "" {
			res.err = errors.Newf("engine returned no position for node %s", missing)
		}
	}
	if res.err != nil {
		a.log.Warnw("layout failed, keeping previous positions",
			"nodes", len(nodes), "edges", len(edges), "error", res.err)
		return a.fallback(nodes), errors.LayoutFailure(errors.Wrapf(res.err, "laying out %d nodes", len(nodes)))
	}

	a.log.Debugw("layout complete", "nodes", len(nodes), "edges", len(edges), "elapsed", time.Since(start))
	out := make(map[string]Point, len(nodes))
	for _, n := range nodes {
		out[n.ID] = res.pos[n.ID]
	}
	a.remember(out)
	return copyPoints(out), nil
}

// Previous returns a copy of the last successful layout
func (a *Adapter) Previous() map[string]Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyPoints(a.last)
}

func (a *Adapter) remember(pos map[string]Point) {
	a.mu.Lock()
	a.last = pos
	a.mu.Unlock()
}

// fallback keeps known positions and places unknown nodes under their
// parent (or at the origin), walking nodes in order so a parent placed by
// fallback can anchor its own children.
func (a *Adapter) fallback(nodes []graph.Node) map[string]Point {
	prev := a.Previous()
	below := func(p Point) Point {
		if a.opts.Direction == Right {
			return Point{X: p.X + a.opts.NodeWidth + a.opts.LayerSpacing, Y: p.Y}
		}
		return Point{X: p.X, Y: p.Y + a.opts.NodeHeight + a.opts.LayerSpacing}
	}
	out := make(map[string]Point, len(nodes))
	for _, n := range nodes {
		if p, ok := prev[n.ID]; ok {
			out[n.ID] = p
			continue
		}
		if p, ok := out[n.Parent]; ok {
			out[n.ID] = below(p)
			continue
		}
		if p, ok := prev[n.Parent]; ok {
			out[n.ID] = below(p)
			continue
		}
		out[n.ID] = Point{}
	}
	return out
}

func firstMissing(nodes []graph.Node, pos map[string]Point) string {
	for _, n := range nodes {
		if _, ok := pos[n.ID]; !ok {
			return n.ID
		}
	}
	return ""
}

func copyPoints(in map[string]Point) map[string]Point {
	out := make(map[string]Point, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
