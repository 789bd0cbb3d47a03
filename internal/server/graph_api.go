package server

import (
	"net/http"

	"canopy/explorer/internal/catalog"
)

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := s.cat.Roots(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	skel, err := s.cat.Skeleton(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skel)
}

// handleChildren serves one child set. A node with nothing to reveal is
// a 404, which clients read as an empty set.
func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	nodes, err := s.cat.Children(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	edges, err := s.cat.ChildEdges(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub := catalog.Subgraph{Nodes: nodes, Edges: edges}
	if sub.Empty() {
		writeError(w, http.StatusNotFound, "no children for "+id)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleAllChildren(w http.ResponseWriter, r *http.Request) {
	all, err := s.cat.All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.GroupChildren(all))
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'id' is required")
		return
	}
	d, err := s.cat.NodeDetail(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
