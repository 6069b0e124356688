package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

type stubSource struct {
	ready bool
	conns []session.Stats
}

func (s stubSource) NodeID() string               { return "node-a" }
func (s stubSource) Kind() string                 { return "node" }
func (s stubSource) Ready() bool                  { return s.ready }
func (s stubSource) Packets() []string            { return []string{"echo", "ping", "pong"} }
func (s stubSource) Connections() []session.Stats { return s.conns }

func serve(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s body: %v", path, err)
		}
	}
	return rr, body
}

func TestHealthAndReady(t *testing.T) {
	testlog.Start(t)
	s := New(stubSource{ready: false}, ":0", nil)

	rr, body := serve(t, s, "/health")
	if rr.Code != http.StatusOK || body["status"] != "ok" || body["node"] != "node-a" {
		t.Fatalf("unexpected health: code=%d body=%v", rr.Code, body)
	}
	rr, body = serve(t, s, "/ready")
	if rr.Code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("unexpected ready: code=%d body=%v", rr.Code, body)
	}

	s = New(stubSource{ready: true}, ":0", nil)
	if rr, _ := serve(t, s, "/ready"); rr.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rr.Code)
	}
}

func TestConnectionsAndPackets(t *testing.T) {
	testlog.Start(t)
	s := New(stubSource{
		ready: true,
		conns: []session.Stats{{State: session.StateRunning, Remote: "127.0.0.1:5000", Pending: 2}},
	}, ":0", nil)

	rr, body := serve(t, s, "/connections")
	if rr.Code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("unexpected connections: code=%d body=%v", rr.Code, body)
	}
	conns := body["connections"].([]any)
	first := conns[0].(map[string]any)
	if first["state"] != "running" || first["pending"] != float64(2) {
		t.Fatalf("unexpected connection view: %v", first)
	}

	rr, body = serve(t, s, "/packets")
	if rr.Code != http.StatusOK || len(body["packets"].([]any)) != 3 {
		t.Fatalf("unexpected packets: code=%d body=%v", rr.Code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	s := New(stubSource{ready: true}, ":0", nil)
	serve(t, s, "/health")
	rr, _ := serve(t, s, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "pktwire_http_requests_total") {
		t.Fatalf("metrics missing http counter: code=%d", rr.Code)
	}
}
