package explorer

import (
	"context"

	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/present"
	"canopy/explorer/internal/visibility"
)

// Frame returns the last published frame
func (s *Session) Frame() Frame {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.frame
}

// Scene returns the last derived scene
func (s *Session) Scene() present.Scene { return s.Frame().Scene }

// Selected returns the selected node ID, or ""
func (s *Session) Selected() string { return s.Frame().Selected }

// Tour returns the navigator state
func (s *Session) Tour() TourStatus { return s.Frame().Tour }

// TourPath returns the path of the running tour
func (s *Session) TourPath() []string { return s.tour.Path() }

// TourExpanded returns the nodes the running tour expanded, oldest first
func (s *Session) TourExpanded() []string { return s.tour.Expanded() }

// Visible returns the visible graph
func (s *Session) Visible() visibility.View { return s.store.Snapshot() }

// Position returns the laid-out position of id
func (s *Session) Position(id string) (layout.Point, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	p, ok := s.positions[id]
	return p, ok
}

// NodeDetail returns the popup content for id
func (s *Session) NodeDetail(ctx context.Context, id string) (*graph.Detail, error) {
	return s.cat.NodeDetail(ctx, id)
}

// Subscribe registers fn to receive every published frame. fn runs on the
// publishing goroutine and must not block or call back into the session's
// commands. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Frame)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(f Frame) {
	s.subMu.Lock()
	fns := make([]func(Frame), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}
