package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/visibility"
)

type commandType string

const (
	cmdToggle      commandType = "toggle"
	cmdSelect      commandType = "select"
	cmdClickEdge   commandType = "click_edge"
	cmdExpandAll   commandType = "expand_all"
	cmdCollapseAll commandType = "collapse_all"
	cmdTourStart   commandType = "tour_start"
	cmdTourNext    commandType = "tour_next"
	cmdTourPrev    commandType = "tour_prev"
	cmdTourExit    commandType = "tour_exit"
)

// command is one user interaction, from a request path or a websocket
// message. ID is the node, edge or tour root it applies to.
type command struct {
	Type commandType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

// result is the reply to a command
type result struct {
	Action  visibility.Action `json:"action,omitempty"`
	Moved   *bool             `json:"moved,omitempty"`
	Detail  *graph.Detail     `json:"detail,omitempty"`
	Warning string            `json:"warning,omitempty"`
	Frame   *explorer.Frame   `json:"frame,omitempty"`
}

// message is the websocket envelope sent to clients
type message struct {
	Type  string `json:"type"` // frame, camera, result or error
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// room is a session and the websocket clients watching it. It is the
// session's Viewport, relaying camera commands to every client.
type room struct {
	sess *explorer.Session
	log  *zap.SugaredLogger

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()

	lastUsed atomic.Int64 // unix nanos
}

func (r *room) touch() { r.lastUsed.Store(time.Now().UnixNano()) }

// idleSince reports whether r has no clients and no activity since cutoff
func (r *room) idleSince(cutoff time.Time) bool {
	r.mu.Lock()
	watched := len(r.clients) > 0
	r.mu.Unlock()
	return !watched && r.lastUsed.Load() < cutoff.UnixNano()
}

func (r *room) CenterOn(x, y, zoom float64, d time.Duration) {
	r.broadcast(message{Type: "camera", Data: explorer.CenterCommand(x, y, zoom, d)})
}

func (r *room) FitView(padding float64, d time.Duration) {
	r.broadcast(message{Type: "camera", Data: explorer.FitCommand(padding, d)})
}

func (r *room) onFrame(f explorer.Frame) {
	r.broadcast(message{Type: "frame", Data: f})
}

func (r *room) broadcast(m message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		c.enqueue(m)
	}
}

func (r *room) join(c *client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

func (r *room) leave(c *client) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
	r.touch()
}

func (r *room) close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.sess.Close()
	r.mu.Lock()
	for c := range r.clients {
		c.close()
	}
	r.clients = map[*client]struct{}{}
	r.mu.Unlock()
}

// run applies cmd to the session. Catalog failures on toggle and
// expand-all degrade the view rather than fail the command, so they come
// back as a warning next to the new frame.
func (r *room) run(ctx context.Context, cmd command) (result, error) {
	r.touch()
	var res result
	var err error
	s := r.sess

	switch cmd.Type {
	case cmdToggle:
		res.Action, err = s.ToggleNode(ctx, cmd.ID)
	case cmdSelect:
		res.Detail, err = s.SelectNode(ctx, cmd.ID)
		if errors.IsNotFound(err) && s.Selected() == cmd.ID {
			err = nil // selected, but it has no detail
		}
	case cmdClickEdge:
		err = s.ClickEdge(ctx, cmd.ID)
	case cmdExpandAll:
		err = s.ExpandAll(ctx)
	case cmdCollapseAll:
		err = s.CollapseAll(ctx)
	case cmdTourStart:
		err = s.StartTour(ctx, cmd.ID)
	case cmdTourNext:
		var moved bool
		moved, err = s.NextStep(ctx)
		res.Moved = &moved
	case cmdTourPrev:
		var moved bool
		moved, err = s.PrevStep(ctx)
		res.Moved = &moved
	case cmdTourExit:
		err = s.ExitTour(ctx)
	default:
		return res, errors.Newf("unknown command %q", cmd.Type)
	}

	if err != nil && errors.IsDataUnavailable(err) && (cmd.Type == cmdToggle || cmd.Type == cmdExpandAll) {
		r.log.Warnw("command degraded", "command", cmd.Type, "id", cmd.ID, "error", err)
		res.Warning = err.Error()
		err = nil
	}
	f := s.Frame()
	res.Frame = &f
	return res, err
}

// createRoom starts a new session. A skeleton that cannot be loaded leaves
// the session empty rather than failing.
func (s *Server) createRoom(ctx context.Context) *room {
	r := &room{clients: make(map[*client]struct{})}
	r.touch()
	r.sess = s.newSession(r)
	r.log = s.log.With("session", r.sess.ID)
	r.unsubscribe = r.sess.Subscribe(r.onFrame)
	if err := r.sess.Init(ctx); err != nil {
		r.log.Warnw("session started without a skeleton", "error", err)
	}

	s.mu.Lock()
	s.rooms[r.sess.ID] = r
	s.mu.Unlock()
	r.log.Infow("session created")
	return r
}

func (s *Server) lookupRoom(id string) (*room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if ok {
		r.touch()
	}
	return r, ok
}

// sweepIdle closes every session idle since before cutoff and returns how
// many it closed
func (s *Server) sweepIdle(cutoff time.Time) int {
	s.mu.Lock()
	var idle []*room
	for id, r := range s.rooms {
		if r.idleSince(cutoff) {
			idle = append(idle, r)
			delete(s.rooms, id)
		}
	}
	s.mu.Unlock()

	for _, r := range idle {
		r.close()
		r.log.Infow("idle session closed")
	}
	return len(idle)
}

// sweepLoop runs sweepIdle until ctx is cancelled
func (s *Server) sweepLoop(ctx context.Context) {
	ttl := s.cfg.SessionIdleTimeout
	ticker := time.NewTicker(max(ttl/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sweepIdle(now.Add(-ttl)); n > 0 {
				s.log.Debugw("swept idle sessions", "closed", n, "ttl", ttl)
			}
		}
	}
}

func (s *Server) removeRoom(id string) bool {
	s.mu.Lock()
	r, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if ok {
		r.close()
		r.log.Infow("session closed")
	}
	return ok
}

func (s *Server) closeRooms() {
	s.mu.Lock()
	rooms := s.rooms
	s.rooms = make(map[string]*room)
	s.mu.Unlock()
	for _, r := range rooms {
		r.close()
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.commandContext(r.Context())
	defer cancel()
	rm := s.createRoom(ctx)
	writeJSON(w, http.StatusCreated, rm.sess.Frame())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.lookupRoom(r.PathValue("sid"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, rm.sess.Frame())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.removeRoom(r.PathValue("sid")) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// command returns a handler running t against the session in the path.
// The target comes from the {id} path segment, or ?root= for tour starts.
func (s *Server) command(t commandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := s.lookupRoom(r.PathValue("sid"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		cmd := command{Type: t, ID: r.PathValue("id")}
		if t == cmdTourStart {
			cmd.ID = r.URL.Query().Get("root")
		}

		ctx, cancel := s.commandContext(r.Context())
		defer cancel()
		res, err := rm.run(ctx, cmd)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
