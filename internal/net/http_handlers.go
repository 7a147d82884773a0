// Package net exposes the arena over HTTP: health and diagnostics endpoints
// plus the websocket watchers use to stream frames and issue commands.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"hide-and-hunt/server"
	"hide-and-hunt/server/internal/net/ws"
	"hide-and-hunt/server/internal/observability"
)

// HTTPHandlerConfig adjusts the handler surface.
type HTTPHandlerConfig struct {
	// ClientDir, when set, serves a diagnostic viewer build at /.
	ClientDir     string
	Logger        *log.Logger
	Observability observability.Config
}

// NewHTTPHandler builds the arena's HTTP surface around a hub.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		size, oldest, newest := hub.Journal().Window()
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Arena      string `json:"arena"`
			TickRate   int    `json:"tickRate"`
			Watchers   any    `json:"watchers"`
			Journal    any    `json:"journal"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Arena:      hub.Arena(),
			TickRate:   hub.TickRate(),
			Watchers:   hub.DiagnosticsSnapshot(),
			Journal: struct {
				Size   int    `json:"size"`
				Oldest uint64 `json:"oldest"`
				Newest uint64 `json:"newest"`
			}{Size: size, Oldest: oldest, Newest: newest},
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
