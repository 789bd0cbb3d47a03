// Package server exposes a catalog as the graph API and runs explorer
// sessions for remote rendering surfaces, over plain HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/logger"
)

// Config is the [server] section
type Config struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	// SessionIdleTimeout closes sessions with no clients and no commands
	// for this long. Zero keeps them until deleted.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

// DefaultConfig listens on :4000 and accepts localhost origins
func DefaultConfig() Config {
	return Config{
		Addr:               ":4000",
		AllowedOrigins:     []string{"http://localhost", "https://localhost", "http://127.0.0.1"},
		ShutdownTimeout:    5 * time.Second,
		CommandTimeout:     30 * time.Second,
		SessionIdleTimeout: 30 * time.Minute,
	}
}

// SessionFactory builds a session that sends its camera commands to view
type SessionFactory func(view explorer.Viewport) *explorer.Session

// Server serves the graph API, the session API and the websocket endpoint
type Server struct {
	cat        catalog.Catalog
	newSession SessionFactory
	cfg        Config
	log        *zap.SugaredLogger
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room
}

// New creates a server. Sessions are created on demand by factory.
func New(cat catalog.Catalog, factory SessionFactory, cfg Config, log *zap.SugaredLogger) *Server {
	s := &Server{
		cat:        cat,
		newSession: factory,
		cfg:        cfg,
		log:        logger.Named(log, "server"),
		rooms:      make(map[string]*room),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/graph/root-nodes", s.handleRoots)
	mux.HandleFunc("GET /api/graph/default", s.handleDefault)
	mux.HandleFunc("GET /api/graph/children/{id}", s.handleChildren)
	mux.HandleFunc("GET /api/graph/children/{$}", s.handleAllChildren)
	mux.HandleFunc("GET /api/node/details", s.handleDetails)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{sid}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{sid}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{sid}/nodes/{id}/toggle", s.command(cmdToggle))
	mux.HandleFunc("POST /api/sessions/{sid}/nodes/{id}/select", s.command(cmdSelect))
	mux.HandleFunc("POST /api/sessions/{sid}/edges/{id}/click", s.command(cmdClickEdge))
	mux.HandleFunc("POST /api/sessions/{sid}/expand-all", s.command(cmdExpandAll))
	mux.HandleFunc("POST /api/sessions/{sid}/collapse-all", s.command(cmdCollapseAll))
	mux.HandleFunc("POST /api/sessions/{sid}/tour", s.command(cmdTourStart))
	mux.HandleFunc("POST /api/sessions/{sid}/tour/next", s.command(cmdTourNext))
	mux.HandleFunc("POST /api/sessions/{sid}/tour/prev", s.command(cmdTourPrev))
	mux.HandleFunc("DELETE /api/sessions/{sid}/tour", s.command(cmdTourExit))

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()
	if s.cfg.SessionIdleTimeout > 0 {
		go s.sweepLoop(ctx)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listening on %s", s.cfg.Addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Infow("shutting down")
	s.closeRooms()
	return srv.Shutdown(shutdownCtx)
}

// checkOrigin allows requests without an Origin header and origins that
// start with one of the configured prefixes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	s.log.Warnw("rejected websocket origin", "origin", origin)
	return false
}

// commandContext bounds one command by the configured timeout
func (s *Server) commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CommandTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.CommandTimeout)
}

// statusFor maps an error category to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsDataUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrTourInactive), errors.Is(err, errors.ErrTourActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Warnw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}
