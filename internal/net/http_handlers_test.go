package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hide-and-hunt/server"
	"hide-and-hunt/server/internal/observability"
	"hide-and-hunt/server/internal/sim"
)

func TestHealthEndpoint(t *testing.T) {
	hub := server.NewHub(server.HubConfig{Arena: "standard", TickRate: 15})
	handler := NewHTTPHandler(hub, HTTPHandlerConfig{})

	req := httptest.NewRequest(nethttp.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "ok" {
		t.Fatalf("expected ok body, got %q", body)
	}
}

func TestDiagnosticsReportsArenaAndJournal(t *testing.T) {
	hub := server.NewHub(server.HubConfig{Arena: "console", TickRate: 20})
	for tick := uint64(1); tick <= 2; tick++ {
		hub.BroadcastFrame(sim.StepResult{
			Tick:     tick,
			Now:      time.Now(),
			Snapshot: sim.Snapshot{Tick: tick, Arena: "console"},
		})
	}

	handler := NewHTTPHandler(hub, HTTPHandlerConfig{})

	req := httptest.NewRequest(nethttp.MethodGet, "/diagnostics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}

	if payload["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", payload["status"])
	}
	if payload["arena"] != "console" {
		t.Fatalf("expected arena console, got %v", payload["arena"])
	}
	if rate, ok := payload["tickRate"].(float64); !ok || int(rate) != 20 {
		t.Fatalf("expected tick rate 20, got %v", payload["tickRate"])
	}

	journal, ok := payload["journal"].(map[string]any)
	if !ok {
		t.Fatalf("expected journal object, got %T", payload["journal"])
	}
	if size, ok := journal["size"].(float64); !ok || int(size) != 2 {
		t.Fatalf("expected journal size 2, got %v", journal["size"])
	}
	if newest, ok := journal["newest"].(float64); !ok || uint64(newest) != 2 {
		t.Fatalf("expected newest sequence 2, got %v", journal["newest"])
	}
}

func TestDiagnosticsListsConnectedWatchers(t *testing.T) {
	hub := server.NewHub(server.HubConfig{Arena: "standard", TickRate: 15})
	handler := NewHTTPHandler(hub, HTTPHandlerConfig{})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	wsURL, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	wsURL.Scheme = "ws"
	wsURL.Path = "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("failed to read hello: %v", err)
	}

	diag, err := nethttp.Get(srv.URL + "/diagnostics")
	if err != nil {
		t.Fatalf("failed to fetch diagnostics: %v", err)
	}
	defer diag.Body.Close()

	raw, err := io.ReadAll(diag.Body)
	if err != nil {
		t.Fatalf("failed to read diagnostics body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}

	watchers, ok := payload["watchers"].([]any)
	if !ok {
		t.Fatalf("expected watchers array, got %T", payload["watchers"])
	}
	if len(watchers) != 1 {
		t.Fatalf("expected one connected watcher, got %d", len(watchers))
	}
	first, ok := watchers[0].(map[string]any)
	if !ok {
		t.Fatalf("expected watcher object, got %T", watchers[0])
	}
	if id, ok := first["id"].(string); !ok || id == "" {
		t.Fatalf("expected watcher id, got %v", first["id"])
	}
}

func TestPprofMountsOnlyWhenEnabled(t *testing.T) {
	hub := server.NewHub(server.HubConfig{Arena: "standard", TickRate: 15})

	disabled := NewHTTPHandler(hub, HTTPHandlerConfig{})
	req := httptest.NewRequest(nethttp.MethodGet, "/debug/pprof/", nil)
	resp := httptest.NewRecorder()
	disabled.ServeHTTP(resp, req)
	if resp.Code != nethttp.StatusNotFound {
		t.Fatalf("expected 404 with pprof disabled, got %d", resp.Code)
	}

	enabled := NewHTTPHandler(hub, HTTPHandlerConfig{
		Observability: observability.Config{EnablePprof: true},
	})
	resp = httptest.NewRecorder()
	enabled.ServeHTTP(resp, httptest.NewRequest(nethttp.MethodGet, "/debug/pprof/", nil))
	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected 200 with pprof enabled, got %d", resp.Code)
	}
}
