// Package tour walks a fixed path through the full graph, expanding nodes
// as the walk reaches them and collapsing them again when it backs up.
//
// Stepping back from index i+1 to i leaves the visible set and the set of
// tour expansions exactly as stepping forward to i left them.
package tour

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/logger"
)

// State of the controller
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Visibility is the part of the visibility store a tour drives
type Visibility interface {
	Expand(ctx context.Context, id string) error
	Collapse(ctx context.Context, id string) error
	CollapseToSkeleton(ctx context.Context) error
	Has(id string) bool
	Unavailable(id string) bool
}

// Source provides the full graph the path is built over
type Source interface {
	All(ctx context.Context) (catalog.Subgraph, error)
}

// Controller runs one tour at a time
type Controller struct {
	vis Visibility
	src Source
	log *zap.SugaredLogger

	mu       sync.Mutex
	state    State
	snap     *graph.Snapshot
	path     []string
	index    int
	expanded []string // in expansion order
}

// New creates an idle controller
func New(vis Visibility, src Source, log *zap.SugaredLogger) *Controller {
	return &Controller{
		vis:   vis,
		src:   src,
		log:   logger.Named(log, "tour"),
		state: StateIdle,
	}
}

// Start resets the view to the skeleton and begins a tour at rootID (every
// root when empty). A root below the skeleton is revealed by expanding its
// ancestors top-down first; those expansions count as the tour's own. A
// running tour is replaced.
func (c *Controller) Start(ctx context.Context, rootID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.src.All(ctx)
	if err != nil {
		return errors.Wrap(err, "loading graph for tour")
	}
	snap := all.Snapshot()
	path := BuildPath(snap, rootID)
	if len(path) == 0 {
		if rootID != "" {
			return errors.NewNotFoundError("tour root %s", rootID)
		}
		return errors.DataUnavailable(errors.New("graph is empty, nothing to tour"))
	}

	if err := c.vis.CollapseToSkeleton(ctx); err != nil {
		return errors.Wrap(err, "resetting view for tour")
	}

	c.snap = snap
	c.expanded = nil
	if err := c.reveal(ctx, path[0]); err != nil {
		c.state = StateIdle
		c.snap = nil
		c.path = nil
		c.index = 0
		c.expanded = nil
		if resetErr := c.vis.CollapseToSkeleton(ctx); resetErr != nil {
			c.log.Warnw("resetting view after failed tour start", "error", resetErr)
		}
		return err
	}

	c.state = StateActive
	c.path = path
	c.index = 0
	c.log.Infow("tour started", "root", rootID, "steps", len(path))

	c.visit(ctx)
	return nil
}

// Next advances one step. It reports false at the end of the path.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return false, errors.ErrTourInactive
	}
	if c.index+1 >= len(c.path) {
		return false, nil
	}
	c.index++
	c.visit(ctx)
	return true, nil
}

// Prev steps back one node, collapsing every tour expansion that is no
// longer an ancestor-or-self of a visited node, latest expansion first.
// It reports false at the start of the path.
func (c *Controller) Prev(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return false, errors.ErrTourInactive
	}
	if c.index == 0 {
		return false, nil
	}
	c.index--

	visited := c.path[:c.index+1]
	var keep []string
	for i := len(c.expanded) - 1; i >= 0; i-- {
		id := c.expanded[i]
		if c.neededBy(id, visited) {
			keep = append(keep, id)
			continue
		}
		if err := c.vis.Collapse(ctx, id); err != nil {
			c.log.Warnw("collapse on step back failed", "node", id, "error", err)
		}
	}
	// keep was filled latest first
	for i, j := 0, len(keep)-1; i < j; i, j = i+1, j-1 {
		keep[i], keep[j] = keep[j], keep[i]
	}
	c.expanded = keep

	c.visit(ctx)
	return true, nil
}

// Exit ends the tour and returns the view to the skeleton
func (c *Controller) Exit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil
	}
	c.state = StateIdle
	c.snap = nil
	c.path = nil
	c.index = 0
	c.expanded = nil
	c.log.Infow("tour exited")
	return c.vis.CollapseToSkeleton(ctx)
}

// reveal makes id visible by expanding its hidden ancestor chain from the
// top. Callers hold mu.
func (c *Controller) reveal(ctx context.Context, id string) error {
	var chain []string
	seen := map[string]bool{}
	for cur := id; !c.vis.Has(cur); {
		n, ok := c.snap.Nodes[cur]
		if !ok || n.Parent == "" || seen[cur] {
			return errors.NewNotFoundError("tour root %s has no visible ancestor", id)
		}
		seen[cur] = true
		cur = n.Parent
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if err := c.vis.Expand(ctx, chain[i]); err != nil {
			return errors.Wrapf(err, "revealing tour root %s", id)
		}
		c.expanded = append(c.expanded, chain[i])
	}
	if !c.vis.Has(id) {
		return errors.DataUnavailable(errors.Newf("tour root %s could not be revealed", id))
	}
	return nil
}

// visit expands the current node once per tour. Failures leave the node
// unexpanded and the tour running. Callers hold mu.
func (c *Controller) visit(ctx context.Context) {
	id := c.path[c.index]
	if !hasChildren(c.snap, id) || c.isExpanded(id) || c.vis.Unavailable(id) {
		return
	}
	if err := c.vis.Expand(ctx, id); err != nil {
		c.log.Warnw("tour step could not expand node", "node", id, "step", c.index, "error", err)
		return
	}
	c.expanded = append(c.expanded, id)
	c.log.Debugw("tour expanded node", "node", id, "step", c.index)
}

func (c *Controller) neededBy(id string, visited []string) bool {
	for _, v := range visited {
		if c.snap.IsAncestorOrSelf(id, v) {
			return true
		}
	}
	return false
}

func (c *Controller) isExpanded(id string) bool {
	for _, e := range c.expanded {
		if e == id {
			return true
		}
	}
	return false
}
