package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/logger"
)

// Guard bounds every call to an inner Catalog by a timeout, collapses
// identical in-flight calls into one, and marks failures with
// ErrDataUnavailable. ErrNotFound passes through unmarked.
type Guard struct {
	inner   Catalog
	timeout time.Duration
	group   singleflight.Group
	log     *zap.SugaredLogger
}

// NewGuard wraps inner. A zero timeout means calls are bounded only by the
// caller's context.
func NewGuard(inner Catalog, timeout time.Duration, log *zap.SugaredLogger) *Guard {
	return &Guard{
		inner:   inner,
		timeout: timeout,
		log:     logger.Named(log, "catalog"),
	}
}

// guarded runs fn once per key across concurrent callers. The shared call
// runs detached from any single caller's cancellation but under the guard
// timeout; each caller still stops waiting when its own ctx is done.
func guarded[T any](g *Guard, ctx context.Context, op, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := g.group.DoChan(op+":"+key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, g.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})

	var zero T
	select {
	case <-ctx.Done():
		g.log.Warnw("catalog call abandoned", "op", op, "node", key, "error", ctx.Err())
		return zero, errors.DataUnavailable(errors.Wrapf(ctx.Err(), "%s %s", op, key))
	case res := <-ch:
		if res.Err != nil {
			if errors.IsNotFound(res.Err) {
				return zero, res.Err
			}
			g.log.Warnw("catalog call failed", "op", op, "node", key, "error", res.Err)
			return zero, errors.DataUnavailable(errors.Wrapf(res.Err, "%s %s", op, key))
		}
		return res.Val.(T), nil
	}
}

func (g *Guard) Roots(ctx context.Context) ([]graph.Node, error) {
	return guarded(g, ctx, "roots", "", g.inner.Roots)
}

func (g *Guard) Skeleton(ctx context.Context) (Subgraph, error) {
	return guarded(g, ctx, "skeleton", "", g.inner.Skeleton)
}

func (g *Guard) Children(ctx context.Context, id string) ([]graph.Node, error) {
	return guarded(g, ctx, "children", id, func(ctx context.Context) ([]graph.Node, error) {
		return g.inner.Children(ctx, id)
	})
}

func (g *Guard) ChildEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	return guarded(g, ctx, "child-edges", id, func(ctx context.Context) ([]graph.Edge, error) {
		return g.inner.ChildEdges(ctx, id)
	})
}

func (g *Guard) All(ctx context.Context) (Subgraph, error) {
	return guarded(g, ctx, "all", "", g.inner.All)
}

func (g *Guard) NodeDetail(ctx context.Context, id string) (*graph.Detail, error) {
	return guarded(g, ctx, "detail", id, func(ctx context.Context) (*graph.Detail, error) {
		return g.inner.NodeDetail(ctx, id)
	})
}
