package server

import "time"

// ProtocolVersion is stamped on every websocket envelope so diagnostic
// clients can reject streams they do not understand.
const ProtocolVersion = 1

// CommandRejectInvalidAction reports an envelope whose variant payload was
// missing or malformed. Queue rejection reasons live in internal/sim next
// to the loop that produces them.
const CommandRejectInvalidAction = "invalid_action"

const (
	// writeWait bounds a single websocket write before the watcher is
	// considered stuck and dropped.
	writeWait = 10 * time.Second

	// defaultJournalCapacity is how many keyframes the hub retains for
	// late-joining watchers and keyframe requests.
	defaultJournalCapacity = 64
)
