package main

import (
	"context"
	"flag"
	"log"

	"hide-and-hunt/server/internal/app"
	"hide-and-hunt/server/internal/observability"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	arena := flag.String("arena", "standard", "arena kind: standard, relic, or console")
	bots := flag.Int("bots", 0, "roster size (0 uses the arena default)")
	seed := flag.Int64("seed", 0, "deterministic seed (0 seeds from the clock)")
	configPath := flag.String("config", "", "tuning config path, watched for live reloads")
	scriptPath := flag.String("hunter-script", "", "hunter control script (empty uses the built-in)")
	noHunter := flag.Bool("no-hunter", false, "leave the hunter parked until a watcher steers it")
	logJSON := flag.String("log-json", "", "append the event stream to this JSONL file")
	clientDir := flag.String("client", "", "serve a diagnostic viewer build from this directory")
	pprof := flag.Bool("pprof", false, "mount runtime profiles under /debug/pprof/")
	flag.Parse()

	cfg := app.Config{
		Addr:          *addr,
		Arena:         *arena,
		Bots:          *bots,
		Seed:          *seed,
		ConfigPath:    *configPath,
		ScriptPath:    *scriptPath,
		DisableHunter: *noHunter,
		LogJSONPath:   *logJSON,
		ClientDir:     *clientDir,
		Observability: observability.Config{EnablePprof: *pprof},
	}

	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
