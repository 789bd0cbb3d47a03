package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/explorer"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cat := catalog.NewMemory(catalog.Sample())
	factory := func(view explorer.Viewport) *explorer.Session {
		return explorer.New(cat, nil, view, explorer.DefaultOptions(), nil)
	}
	srv := New(cat, factory, DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.closeRooms()
	})
	return srv, ts
}

func do(t *testing.T, method, url string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGraphAPI_ServesCatalogToHTTPClient(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	mem := catalog.NewMemory(catalog.Sample())
	remote := catalog.NewHTTP(ts.URL, 0, ts.Client(), nil)

	wantSkel, _ := mem.Skeleton(ctx)
	gotSkel, err := remote.Skeleton(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantSkel, gotSkel)

	wantRoots, _ := mem.Roots(ctx)
	gotRoots, err := remote.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantRoots, gotRoots)

	for _, id := range []string{"1", "8", "31", "11"} {
		want, _ := mem.Children(ctx, id)
		got, err := remote.Children(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "children of %s", id)

		wantEdges, _ := mem.ChildEdges(ctx, id)
		gotEdges, err := remote.ChildEdges(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantEdges, gotEdges, "child edges of %s", id)
	}

	wantAll, _ := mem.All(ctx)
	gotAll, err := remote.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, wantAll.Nodes, gotAll.Nodes)
	assert.ElementsMatch(t, wantAll.Edges, gotAll.Edges)

	d, err := remote.NodeDetail(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", d.ID)
}

func TestGraphAPI_Errors(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/graph/children/11", nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/node/details?id=30", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/node/details", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodPost, ts.URL+"/api/graph/default", nil))
}

func TestSessionAPI_ToggleAndSelect(t *testing.T) {
	_, ts := newTestServer(t)

	var frame explorer.Frame
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &frame))
	require.NotEmpty(t, frame.Session)
	assert.Len(t, frame.Scene.Nodes, 9)
	base := ts.URL + "/api/sessions/" + frame.Session

	var res result
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/nodes/1/toggle", &res))
	assert.Equal(t, "expand", string(res.Action))
	require.NotNil(t, res.Frame)
	assert.Len(t, res.Frame.Scene.Nodes, 13)

	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/nodes/1/select", &res))
	require.NotNil(t, res.Detail)
	assert.Equal(t, "1", res.Frame.Selected)

	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/nodes/30/select", &res))
	assert.Nil(t, res.Detail, "30 has no detail but is still selected")
	assert.Equal(t, "30", res.Frame.Selected)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, base+"/nodes/4/toggle", nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, base+"/edges/nope/click", nil))
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/edges/1-2/click", nil))

	var got explorer.Frame
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base, &got))
	assert.Equal(t, "2", got.Selected)
}

func TestSessionAPI_Tour(t *testing.T) {
	_, ts := newTestServer(t)
	var frame explorer.Frame
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &frame))
	base := ts.URL + "/api/sessions/" + frame.Session

	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, base+"/tour/next", nil))

	var res result
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/tour?root=1", &res))
	assert.True(t, res.Frame.Tour.Active)
	assert.Equal(t, "1", res.Frame.Tour.Node)

	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/tour/next", &res))
	require.NotNil(t, res.Moved)
	assert.True(t, *res.Moved)
	assert.Equal(t, 2, res.Frame.Tour.Current)

	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/tour/prev", &res))
	assert.Equal(t, 1, res.Frame.Tour.Current)

	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, base+"/nodes/0/toggle", nil), "clicks wait for the tour to end")

	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodDelete, base+"/tour", &res))
	assert.False(t, res.Frame.Tour.Active)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, base+"/tour?root=missing", nil))
}

func TestSessionAPI_ExpandCollapseDelete(t *testing.T) {
	_, ts := newTestServer(t)
	var frame explorer.Frame
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &frame))
	base := ts.URL + "/api/sessions/" + frame.Session

	var res result
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/expand-all", &res))
	assert.Len(t, res.Frame.Scene.Nodes, 22)
	res = result{}
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/collapse-all", &res))
	assert.Len(t, res.Frame.Scene.Nodes, 9)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, base, nil))
}

type wsMessage struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of type typ arrives
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == typ {
			return m
		}
	}
}

func TestWebSocket_CommandsAndPushes(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "")

	var frame explorer.Frame
	first := readUntil(t, conn, "frame")
	require.NoError(t, json.Unmarshal(first.Data, &frame))
	assert.Len(t, frame.Scene.Nodes, 9)

	require.NoError(t, conn.WriteJSON(command{Type: cmdToggle, ID: "1"}))
	pushed := readUntil(t, conn, "frame")
	require.NoError(t, json.Unmarshal(pushed.Data, &frame))
	assert.Len(t, frame.Scene.Nodes, 13)

	reply := readUntil(t, conn, "result")
	var res result
	require.NoError(t, json.Unmarshal(reply.Data, &res))
	assert.Equal(t, "expand", string(res.Action))
	assert.Nil(t, res.Frame)

	require.NoError(t, conn.WriteJSON(command{Type: cmdClickEdge, ID: "1-2"}))
	cam := readUntil(t, conn, "camera")
	var c explorer.Camera
	require.NoError(t, json.Unmarshal(cam.Data, &c))
	assert.Equal(t, "center", c.Kind)
	assert.Equal(t, 1.8, c.Zoom)
	assert.Equal(t, int64(800), c.DurationMs)

	require.NoError(t, conn.WriteJSON(command{Type: "bogus"}))
	assert.Contains(t, readUntil(t, conn, "error").Error, "unknown command")
}

func TestWebSocket_AttachToExistingSession(t *testing.T) {
	srv, ts := newTestServer(t)
	var frame explorer.Frame
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &frame))

	conn := dial(t, ts, "?session="+frame.Session)
	readUntil(t, conn, "frame")

	// an HTTP command on the session is pushed to the websocket watcher
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/sessions/"+frame.Session+"/nodes/31/toggle", nil))
	var pushed explorer.Frame
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "frame").Data, &pushed))
	assert.Len(t, pushed.Scene.Nodes, 11)

	conn.Close()
	time.Sleep(50 * time.Millisecond)
	_, ok := srv.lookupRoom(frame.Session)
	assert.True(t, ok, "a watcher does not own the session")
}

func TestWebSocket_UnknownSessionAndOrigin(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url+"?session=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusNotFound, statusFor(graphNotFound()))
}

func graphNotFound() error {
	_, err := catalog.NewMemory(catalog.Sample()).NodeDetail(context.Background(), "nope")
	return err
}

func TestSweepIdle_ClosesUnwatchedSessions(t *testing.T) {
	srv, ts := newTestServer(t)
	var idle, busy explorer.Frame
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &idle))
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/sessions", &busy))

	assert.Zero(t, srv.sweepIdle(time.Now().Add(-time.Hour)), "nothing is an hour old")

	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/sessions/"+busy.Session+"/nodes/1/toggle", nil))

	assert.Equal(t, 1, srv.sweepIdle(cutoff))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/sessions/"+idle.Session, nil))
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/sessions/"+busy.Session, nil))
}
