package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/logger"
)

// HTTP reads a catalog from a remote graph API:
//
//	GET /api/graph/root-nodes        -> []Node
//	GET /api/graph/default           -> Subgraph
//	GET /api/graph/children/{id}     -> Subgraph
//	GET /api/graph/children/         -> map[id]Subgraph
//	GET /api/node/details?id={id}    -> Detail
//
// The server package serves the same shape.
type HTTP struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewHTTP creates a client for baseURL. rps limits outgoing requests per
// second; zero or less disables the limit. A nil client uses a 10s default.
func NewHTTP(baseURL string, rps float64, client *http.Client, log *zap.SugaredLogger) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		log:     logger.Named(log, "catalog.http"),
	}
}

func (h *HTTP) get(ctx context.Context, path string, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", path)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	h.log.Debugw("fetched", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewNotFoundError("GET %s: not found", path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("GET %s: HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}

func (h *HTTP) Roots(ctx context.Context) ([]graph.Node, error) {
	var nodes []graph.Node
	if err := h.get(ctx, "/api/graph/root-nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (h *HTTP) Skeleton(ctx context.Context) (Subgraph, error) {
	var sub Subgraph
	if err := h.get(ctx, "/api/graph/default", &sub); err != nil {
		return Subgraph{}, err
	}
	return onlySkeleton(sub), nil
}

func (h *HTTP) children(ctx context.Context, id string) (Subgraph, error) {
	var sub Subgraph
	err := h.get(ctx, "/api/graph/children/"+url.PathEscape(id), &sub)
	if errors.IsNotFound(err) {
		return Subgraph{}, nil
	}
	return sub, err
}

func (h *HTTP) Children(ctx context.Context, id string) ([]graph.Node, error) {
	sub, err := h.children(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []graph.Node
	for _, n := range sub.Nodes {
		if !n.AlwaysVisible {
			out = append(out, n)
		}
	}
	return out, nil
}

func (h *HTTP) ChildEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	sub, err := h.children(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []graph.Edge
	for _, e := range sub.Edges {
		if !e.Fixed && e.Source == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h *HTTP) All(ctx context.Context) (Subgraph, error) {
	var def Subgraph
	if err := h.get(ctx, "/api/graph/default", &def); err != nil {
		return Subgraph{}, err
	}
	sets := make(map[string]Subgraph)
	if err := h.get(ctx, "/api/graph/children/", &sets); err != nil {
		return Subgraph{}, err
	}
	ds := &Dataset{Default: def, Children: sets}
	return NewMemory(ds).All(ctx)
}

func (h *HTTP) NodeDetail(ctx context.Context, id string) (*graph.Detail, error) {
	var d graph.Detail
	if err := h.get(ctx, "/api/node/details?id="+url.QueryEscape(id), &d); err != nil {
		return nil, err
	}
	if d.ID == "" {
		d.ID = id
	}
	return &d, nil
}

// onlySkeleton keeps the always-visible and root nodes and the fixed edges
// of a default graph response.
func onlySkeleton(sub Subgraph) Subgraph {
	var out Subgraph
	for _, n := range sub.Nodes {
		if n.IsSkeleton() {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range sub.Edges {
		if e.Fixed {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
