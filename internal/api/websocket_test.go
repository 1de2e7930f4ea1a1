package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

type wireEvent struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id"`
	Data      json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil skips events until one of kind arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) wireEvent {
	t.Helper()
	for i := 0; i < 20; i++ {
		if ev := readEvent(t, conn); ev.Type == kind {
			return ev
		}
	}
	t.Fatalf("no %s event received", kind)
	return wireEvent{}
}

func dial(t *testing.T, srv *httptest.Server, projectID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/projects/" + projectID
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestProjectWebSocket(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := dial(t, srv, p.ID)
	require.NoError(t, err)
	defer conn.Close()

	first := readEvent(t, conn)
	assert.Equal(t, services.EventProjectUpdated, first.Type)
	assert.Equal(t, p.ID, first.ProjectID)
	assert.Contains(t, string(first.Data), `"title":"Pilot"`)

	assert.Eventually(t, func() bool { return env.hub.ClientCount(p.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	w, _ := env.do(t, http.MethodPatch, "/api/projects/"+p.ID, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	update := readUntil(t, conn, services.EventProjectUpdated)
	assert.Contains(t, string(update.Data), `"title":"Renamed"`)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, conn, "pong")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readUntil(t, conn, services.EventError)

	w, _ = env.do(t, http.MethodGet, "/api/ws/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), p.ID)

	w, _ = env.do(t, http.MethodDelete, "/api/projects/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	readUntil(t, conn, services.EventProjectDeleted)
}

func TestProjectWebSocket_UnknownProject(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	_, resp, err := dial(t, srv, "missing")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := dial(t, srv, p.ID)
	require.NoError(t, err)
	readEvent(t, conn)
	assert.Eventually(t, func() bool { return env.hub.ClientCount(p.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return env.hub.ClientCount(p.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(utils.NewNopLogger())
	go hub.Run()
	defer hub.Stop()

	assert.NotPanics(t, func() {
		hub.BroadcastToProject("nobody", services.EventProjectUpdated, map[string]string{"a": "b"})
	})
	assert.Equal(t, 0, hub.ClientCount("nobody"))
}

func TestUpgraderOrigins(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/projects/x", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := newUpgrader([]string{"*"})
	assert.True(t, open.CheckOrigin(req("http://anything.example")))

	strict := newUpgrader([]string{"http://studio.example"})
	assert.True(t, strict.CheckOrigin(req("http://studio.example")))
	assert.True(t, strict.CheckOrigin(req("")))
	assert.False(t, strict.CheckOrigin(req("http://evil.example")))
}
