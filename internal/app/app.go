// Package app wires the arena process: tuning, logging, the hub, the
// simulation loop, the scripted hunter, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	server "hide-and-hunt/server"
	servernet "hide-and-hunt/server/internal/net"
	"hide-and-hunt/server/internal/observability"
	"hide-and-hunt/server/internal/sim"
	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/logging"
	loggingSinks "hide-and-hunt/server/logging/sinks"
	"hide-and-hunt/server/tuning"
)

// Config selects what Run assembles.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// Arena selects the layout and bot decision branches.
	Arena string

	// Bots is the roster size; zero uses the arena default.
	Bots int

	// Seed drives every probabilistic decision. Zero seeds from the clock.
	Seed int64

	// ConfigPath points at the tuning document. When set it is also watched
	// for live reloads.
	ConfigPath string

	// ScriptPath points at a hunter control script; empty uses the built-in
	// patrol-and-chase script.
	ScriptPath string

	// DisableHunter leaves the hunter parked until a watcher steers it.
	DisableHunter bool

	// LogJSONPath appends the event stream to a JSONL file when set.
	LogJSONPath string

	// ClientDir serves a diagnostic viewer build at / when set.
	ClientDir string

	Logger        telemetry.Logger
	Observability observability.Config
}

// Run assembles the arena and serves it until the listener fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	counters := telemetry.NewCounters()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	tuningCfg := tuning.Default()
	if cfg.ConfigPath != "" {
		loaded, err := tuning.Load(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("load tuning %s: %w", cfg.ConfigPath, err)
		}
		tuningCfg = loaded
	}

	hub := server.NewHub(server.HubConfig{
		Arena:    cfg.Arena,
		TickRate: tuningCfg.Simulation.TickRate,
		Logger:   telemetryLogger,
		Metrics:  counters,
	})

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout, logConfig.Console)},
		{Name: "hub", Sink: hub},
	}
	if cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open event log %s: %w", cfg.LogJSONPath, err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	arena, err := server.NewArena(server.ArenaConfig{
		Kind:      world.ArenaKind(cfg.Arena),
		Bots:      cfg.Bots,
		Seed:      seed,
		Tuning:    &tuningCfg,
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   counters,
		Clock:     logging.SystemClock{},
	})
	if err != nil {
		return fmt.Errorf("build arena: %w", err)
	}
	defer arena.Close()

	if cfg.ConfigPath != "" {
		watcher, werr := tuning.Watch(cfg.ConfigPath)
		if werr != nil {
			telemetryLogger.Printf("tuning watch disabled: %v", werr)
		} else {
			defer watcher.Close()
			go func() {
				for {
					select {
					case reloaded, ok := <-watcher.Configs:
						if !ok {
							return
						}
						arena.QueueTuning(reloaded)
					case werr, ok := <-watcher.Errors:
						if !ok {
							return
						}
						telemetryLogger.Printf("tuning reload failed: %v", werr)
					}
				}
			}()
		}
	}

	var driver *server.HunterDriver
	if !cfg.DisableHunter {
		script := server.DefaultHunterScript
		if cfg.ScriptPath != "" {
			raw, rerr := os.ReadFile(cfg.ScriptPath)
			if rerr != nil {
				return fmt.Errorf("read hunter script %s: %w", cfg.ScriptPath, rerr)
			}
			script = string(raw)
		}
		width, height := arena.Bounds()
		driver, err = server.NewHunterDriver(server.HunterDriverConfig{
			Script:    script,
			Width:     width,
			Height:    height,
			Publisher: router,
			Metrics:   counters,
		})
		if err != nil {
			return fmt.Errorf("build hunter driver: %w", err)
		}
	}

	loop := sim.NewLoop(arena, sim.Config{
		TickRate:        tuningCfg.Simulation.TickRate,
		CatchupMaxTicks: 4,
		CommandCapacity: 256,
		PerActorLimit:   32,
		WarningStep:     64,
	}, sim.Hooks{
		AfterStep: func(res sim.StepResult) {
			hub.BroadcastFrame(res)
			if driver == nil {
				return
			}
			if cmd, ok := driver.Drive(res.Snapshot, res.Tick, res.Delta); ok {
				hub.Enqueue(cmd)
			}
		},
	})
	hub.Bind(loop)

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     cfg.ClientDir,
		Logger:        fallbackLogger,
		Observability: cfg.Observability,
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
