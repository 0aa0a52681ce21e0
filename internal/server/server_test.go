package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/editor/history"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/store"
)

func budget() *diagram.Diagram {
	return &diagram.Diagram{
		Title: "Budget",
		Nodes: []diagram.Node{
			{Name: "Wages"}, {Name: "Budget"}, {Name: "Rent"}, {Name: "Savings"},
		},
		Flows: []diagram.Flow{
			{Source: "Wages", Target: "Budget", Value: 2000},
			{Source: "Budget", Target: "Rent", Value: 1200},
			{Source: "Budget", Target: "Savings", Value: 800},
		},
	}
}

func newTestServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()
	sess, err := editor.NewSession(budget(), layout.NewSankey(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewSession() = %v", err)
	}
	ts := httptest.NewServer(New(sess, st, log.New(io.Discard)).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestGetDiagram(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts, "/api/diagram")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	d := decodeBody[diagram.Diagram](t, resp)
	if len(d.Nodes) != 4 || len(d.Flows) != 3 {
		t.Errorf("diagram = %d nodes / %d flows, want 4 / 3", len(d.Nodes), len(d.Flows))
	}
}

func TestDragLifecycleOverAPI(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := post(t, ts, "/api/drag/start", map[string]any{"kind": "node", "id": "Wages", "x": 0, "y": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("drag/start status = %d, want 200", resp.StatusCode)
	}

	resp = post(t, ts, "/api/drag/update", map[string]any{"x": 10, "y": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("drag/update status = %d, want 200", resp.StatusCode)
	}
	p := decodeBody[layout.Point](t, resp)
	if p == (layout.Point{}) {
		t.Error("drag/update returned zero transient position")
	}

	resp = post(t, ts, "/api/drag/end", nil)
	st := decodeBody[history.StackState](t, resp)
	if !st.CanUndo || st.CanRedo {
		t.Errorf("stack state after commit = %+v, want {true false}", st)
	}

	// Idle drag endpoints report a conflict.
	resp = post(t, ts, "/api/drag/end", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("drag/end while idle status = %d, want 409", resp.StatusCode)
	}

	// Undo through the API.
	resp = post(t, ts, "/api/undo", nil)
	st = decodeBody[history.StackState](t, resp)
	if st.CanUndo || !st.CanRedo {
		t.Errorf("stack state after undo = %+v, want {false true}", st)
	}
}

func TestStructuralEditsOverAPI(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := post(t, ts, "/api/flows", map[string]any{"source": "Budget", "target": "Travel", "value": 300})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("flows status = %d, want 201", resp.StatusCode)
	}
	d := decodeBody[diagram.Diagram](t, resp)
	if d.FindNode("Travel") == nil {
		t.Error("implicit flow target missing from diagram")
	}

	// A cycle is a client error.
	resp = post(t, ts, "/api/flows", map[string]any{"source": "Rent", "target": "Wages", "value": 1})
	if resp.StatusCode == http.StatusCreated {
		t.Error("cycle-creating flow was accepted")
	}

	resp = post(t, ts, "/api/nodes/delete", map[string]any{"name": "Ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleting unknown node status = %d, want 404", resp.StatusCode)
	}

	resp = post(t, ts, "/api/properties", map[string]any{
		"element_type": "node", "element_id": "Rent", "property": "color", "value": "#884400",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("properties status = %d, want 200", resp.StatusCode)
	}
	d = decodeBody[diagram.Diagram](t, resp)
	if d.FindNode("Rent").Color != "#884400" {
		t.Errorf("color = %q, want #884400", d.FindNode("Rent").Color)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := get(t, ts, "/api/positions")
	pos := decodeBody[positionsResponse](t, resp)
	wages := pos.Nodes["Wages"].Position
	if wages == nil {
		t.Fatal("no position for Wages")
	}

	resp = post(t, ts, "/api/verify", map[string]any{"id": "Wages", "kind": "node", "x": wages.X, "y": wages.Y})
	rep := decodeBody[editor.Report](t, resp)
	if !rep.OK {
		t.Errorf("verify at reported position = %+v, want OK", rep)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/flows", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts, "/api/render.svg")
	if got := resp.Header.Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("<svg")) {
		t.Error("render did not return an SVG document")
	}
}

func TestSaveAndLoadDocument(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() = %v", err)
	}
	ts := newTestServer(t, st)

	// Make an override so the saved document carries an overlay.
	post(t, ts, "/api/drag/start", map[string]any{"kind": "node", "id": "Wages", "x": 0, "y": 0})
	post(t, ts, "/api/drag/update", map[string]any{"x": 10, "y": 5})
	post(t, ts, "/api/drag/end", nil)

	resp := post(t, ts, "/api/save", map[string]any{"title": "My Budget"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d, want 200", resp.StatusCode)
	}
	saved := decodeBody[map[string]string](t, resp)
	id := saved["id"]
	if id == "" {
		t.Fatal("save returned no document id")
	}

	doc, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) = %v", id, err)
	}
	if doc.Title != "My Budget" || len(doc.Overlay) == 0 {
		t.Errorf("stored document = %q with %d overlay bytes", doc.Title, len(doc.Overlay))
	}

	resp = post(t, ts, "/api/documents/load", map[string]string{"id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocketStackChange(t *testing.T) {
	ts := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	post(t, ts, "/api/drag/start", map[string]any{"kind": "node", "id": "Wages", "x": 0, "y": 0})
	post(t, ts, "/api/drag/update", map[string]any{"x": 10, "y": 5})
	post(t, ts, "/api/drag/end", nil)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read websocket event: %v", err)
	}
	if ev.Type != "stackChange" && ev.Type != "positions" {
		t.Errorf("event type = %q, want stackChange or positions", ev.Type)
	}
}
