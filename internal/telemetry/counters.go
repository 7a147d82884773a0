package telemetry

import "sync"

// Counters is a concurrency-safe Metrics implementation backed by a map.
// The diagnostics endpoint snapshots it once per request.
type Counters struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// NewCounters constructs an empty Counters set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments the named counter.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites the named counter with a gauge value.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	copied := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		copied[k] = v
	}
	return copied
}
