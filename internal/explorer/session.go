// Package explorer ties the catalog, visibility store, layout, presentation
// and tour together into one interactive session.
//
// Every command runs the whole pipeline (store mutation, layout, derive,
// publish) under the session lock, so the next command always starts from
// a consistent visible set.
package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/logger"
	"canopy/explorer/internal/present"
	"canopy/explorer/internal/tour"
	"canopy/explorer/internal/visibility"
)

// Options controls camera motion and styling
type Options struct {
	Palette      present.Palette `mapstructure:"palette"`
	GlowDuration time.Duration   `mapstructure:"glow_duration"`

	EdgeZoom        float64       `mapstructure:"edge_zoom"`
	EdgeDuration    time.Duration `mapstructure:"edge_duration"`
	TourZoom        float64       `mapstructure:"tour_zoom"`
	TourDuration    time.Duration `mapstructure:"tour_duration"`
	FitPadding      float64       `mapstructure:"fit_padding"`
	FitDuration     time.Duration `mapstructure:"fit_duration"`
	ExitFitDuration time.Duration `mapstructure:"exit_fit_duration"`
}

// DefaultOptions returns the stock camera timings
func DefaultOptions() Options {
	return Options{
		Palette:         present.DefaultPalette(),
		GlowDuration:    present.DefaultGlowDuration,
		EdgeZoom:        1.8,
		EdgeDuration:    800 * time.Millisecond,
		TourZoom:        1.4,
		TourDuration:    600 * time.Millisecond,
		FitPadding:      0.3,
		FitDuration:     600 * time.Millisecond,
		ExitFitDuration: 500 * time.Millisecond,
	}
}

// TourStatus is what a tour navigator shows
type TourStatus struct {
	Active  bool   `json:"active"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	CanNext bool   `json:"canNext"`
	CanPrev bool   `json:"canPrev"`
	Node    string `json:"node,omitempty"`
	Label   string `json:"label,omitempty"`
}

// Frame is one published render of the session
type Frame struct {
	Session  string        `json:"session"`
	Seq      uint64        `json:"seq"`
	Scene    present.Scene `json:"scene"`
	Tour     TourStatus    `json:"tour"`
	Selected string        `json:"selected,omitempty"`
}

// Session is one user's view of the graph
type Session struct {
	ID string

	cat    catalog.Catalog
	store  *visibility.Store
	tour   *tour.Controller
	layout *layout.Adapter
	glow   *present.Glow
	view   Viewport
	opts   Options
	log    *zap.SugaredLogger

	// mu serializes commands end to end
	mu sync.Mutex

	// pubMu keeps frames published in Seq order
	pubMu sync.Mutex

	stateMu   sync.RWMutex
	positions map[string]layout.Point
	frame     Frame

	subMu   sync.Mutex
	subs    map[int]func(Frame)
	nextSub int
}

// New creates a session. A nil adapter uses the Sugiyama engine
// with default options; a nil view records camera commands and drops them.
func New(cat catalog.Catalog, adapter *layout.Adapter, view Viewport, opts Options, log *zap.SugaredLogger) *Session {
	id := uuid.NewString()
	log = logger.Named(log, "explorer").With("session", id)
	if adapter == nil {
		adapter = layout.NewAdapter(layout.Sugiyama{}, layout.DefaultOptions(), 0, log)
	}
	if view == nil {
		view = &Recorder{}
	}
	store := visibility.New(cat, log)
	s := &Session{
		ID:        id,
		cat:       cat,
		store:     store,
		tour:      tour.New(store, cat, log),
		layout:    adapter,
		view:      view,
		opts:      opts,
		log:       log,
		positions: map[string]layout.Point{},
		subs:      make(map[int]func(Frame)),
	}
	s.frame.Session = id
	s.glow = present.NewGlow(opts.GlowDuration, func(string) { s.redraw() })
	return s
}

// Init loads the skeleton and renders the first frame. A catalog failure
// still renders (an empty graph) and is returned.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Init(ctx)
	s.refresh(ctx)
	return err
}

// ToggleNode is the node-click entry point. The scene is refreshed even
// when the catalog fails, since the node has become a leaf. Clicks are
// refused with ErrTourActive while a tour owns the expansions.
func (s *Session) ToggleNode(ctx context.Context, id string) (visibility.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tour.Active() {
		return visibility.ActionNone, errors.Wrapf(errors.ErrTourActive, "toggling %s", id)
	}
	action, err := s.store.Toggle(ctx, id)
	if errors.IsNotFound(err) {
		return action, err
	}
	s.refresh(ctx)
	return action, err
}

// ClickEdge highlights the target of edgeID, selects it and centers on it
func (s *Session) ClickEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.Edge(edgeID)
	if !ok {
		return errors.NewNotFoundError("edge %s is not visible", edgeID)
	}
	s.glow.Light(e.Target)
	s.setSelected(e.Target)
	s.redraw()
	s.centerOn(e.Target, s.opts.EdgeZoom, s.opts.EdgeDuration)
	return nil
}

// SelectNode marks id as the selected node and returns its detail
func (s *Session) SelectNode(ctx context.Context, id string) (*graph.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Has(id) {
		return nil, errors.NewNotFoundError("node %s is not visible", id)
	}
	s.setSelected(id)
	s.redraw()
	return s.cat.NodeDetail(ctx, id)
}

// ExpandAll ends any running tour, shows the whole graph and fits it in
// view
func (s *Session) ExpandAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endTour(ctx)
	err := s.store.ExpandAll(ctx)
	s.refresh(ctx)
	s.view.FitView(s.opts.FitPadding, s.opts.FitDuration)
	return err
}

// CollapseAll ends any running tour, returns to the skeleton and fits it
// in view
func (s *Session) CollapseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endTour(ctx)
	err := s.store.CollapseToSkeleton(ctx)
	s.refresh(ctx)
	s.view.FitView(s.opts.FitPadding, s.opts.FitDuration)
	return err
}

// StartTour begins a tour at rootID, or across every root when empty
func (s *Session) StartTour(ctx context.Context, rootID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.glow.Clear()
	if err := s.tour.Start(ctx, rootID); err != nil {
		return err
	}
	s.markStep()
	s.refresh(ctx)
	s.centerOn(s.tour.Current(), s.opts.TourZoom, s.opts.TourDuration)
	return nil
}

// NextStep advances the tour. It reports false at the last step.
func (s *Session) NextStep(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved, err := s.tour.Next(ctx)
	if err != nil || !moved {
		return moved, err
	}
	s.markStep()
	s.refresh(ctx)
	s.centerOn(s.tour.Current(), s.opts.TourZoom, s.opts.TourDuration)
	return true, nil
}

// PrevStep steps the tour back. It reports false at the first step.
func (s *Session) PrevStep(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved, err := s.tour.Prev(ctx)
	if err != nil || !moved {
		return moved, err
	}
	s.markStep()
	s.refresh(ctx)
	s.centerOn(s.tour.Current(), s.opts.TourZoom, s.opts.TourDuration)
	return true, nil
}

// ExitTour ends the tour, clears highlight and selection, and fits the
// skeleton in view.
func (s *Session) ExitTour(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.tour.Exit(ctx)
	s.glow.Clear()
	s.setSelected("")
	s.refresh(ctx)
	s.view.FitView(s.opts.FitPadding, s.opts.ExitFitDuration)
	return err
}

// Close stops pending glow timers and drops subscribers
func (s *Session) Close() {
	s.glow.Clear()
	s.subMu.Lock()
	s.subs = make(map[int]func(Frame))
	s.subMu.Unlock()
}

// endTour exits a running tour ahead of a bulk command. Callers hold mu.
func (s *Session) endTour(ctx context.Context) {
	if !s.tour.Active() {
		return
	}
	if err := s.tour.Exit(ctx); err != nil {
		s.log.Warnw("exiting tour", "error", err)
	}
	s.glow.Clear()
	s.setSelected("")
}

// markStep glows and selects the current tour node. Callers hold mu.
func (s *Session) markStep() {
	id := s.tour.Current()
	if id == "" {
		return
	}
	s.glow.Light(id)
	s.setSelected(id)
}

// centerOn moves the camera to the middle of id's box
func (s *Session) centerOn(id string, zoom float64, d time.Duration) {
	s.stateMu.RLock()
	p, ok := s.positions[id]
	s.stateMu.RUnlock()
	if !ok {
		return
	}
	o := s.layout.Options()
	s.view.CenterOn(p.X+o.NodeWidth/2, p.Y+o.NodeHeight/2, zoom, d)
}

// refresh lays out the visible graph and redraws. A layout failure keeps
// the previous positions. Callers hold mu.
func (s *Session) refresh(ctx context.Context) {
	view := s.store.Snapshot()
	nodes := make([]graph.Node, len(view.Nodes))
	for i, n := range view.Nodes {
		nodes[i] = n.Node
	}
	pos, err := s.layout.Layout(ctx, nodes, view.Edges)
	if err != nil {
		s.log.Warnw("using fallback positions", "error", err)
	}

	s.stateMu.Lock()
	s.positions = pos
	s.stateMu.Unlock()
	s.redraw()
}

// redraw derives a new frame from the current state and publishes it. It
// runs on command paths and on glow expiry.
func (s *Session) redraw() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	view := s.store.Snapshot()
	unavailable := make(map[string]bool)
	for _, n := range view.Nodes {
		if s.store.Unavailable(n.ID) {
			unavailable[n.ID] = true
		}
	}
	status := s.tourStatus()
	visited := s.tour.Visited()

	s.stateMu.Lock()
	in := present.Input{
		Nodes:       view.Nodes,
		Edges:       view.Edges,
		Positions:   s.positions,
		Glowing:     s.glow.Lit(),
		Unavailable: unavailable,
		Focus: present.Focus{
			Active:  status.Active,
			Current: status.Node,
			Visited: visited,
		},
	}
	s.frame.Seq++
	s.frame.Scene = s.opts.Palette.Derive(in)
	s.frame.Tour = status
	frame := s.frame
	s.stateMu.Unlock()

	s.publish(frame)
}

func (s *Session) tourStatus() TourStatus {
	cur, total := s.tour.Progress()
	st := TourStatus{
		Active:  s.tour.Active(),
		Current: cur,
		Total:   total,
		CanNext: s.tour.CanNext(),
		CanPrev: s.tour.CanPrev(),
		Node:    s.tour.Current(),
	}
	if n, ok := s.store.Node(st.Node); ok {
		st.Label = n.Label
	}
	return st
}

func (s *Session) setSelected(id string) {
	s.stateMu.Lock()
	s.frame.Selected = id
	s.stateMu.Unlock()
}
