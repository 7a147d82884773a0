// Package observability holds the opt-in diagnostics toggles threaded into
// the HTTP surface.
package observability

// Config selects which profiling surfaces the handler mounts.
type Config struct {
	// EnablePprof mounts the runtime profiles under /debug/pprof/.
	EnablePprof bool
}
