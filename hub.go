// Package server assembles a headless hide-and-hunt arena: the scenario core
// that owns the mesh, objectives, and bot decision stacks, the scripted
// hunter driver, and the websocket hub that streams frames and decision
// events to diagnostic watchers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hide-and-hunt/server/internal/sim"
	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/logging"
)

// commandRejectUnbound is reported while no engine is attached to the hub.
const commandRejectUnbound = "engine_unbound"

// HubConfig sizes the diagnostics hub.
type HubConfig struct {
	Arena           string
	TickRate        int
	JournalCapacity int
	Logger          telemetry.Logger
	Metrics         telemetry.Metrics
}

// Hub fans authoritative frames and decision events out to websocket
// watchers and feeds their commands back into the simulation loop. It
// implements logging.Sink so the event router can register it like any
// other sink.
//
// Watchers are diagnostic consumers, not players: losing one never affects
// the simulation, so every write failure simply drops the watcher.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]*Subscriber
	engine   sim.Engine
	nextID   atomic.Uint64

	journal *sim.Journal
	cfg     HubConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	closed atomic.Bool
}

// Subscriber serializes writes to one watcher connection.
type Subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex

	connectedAt   time.Time
	lastHeartbeat atomic.Int64
	lastRTT       atomic.Int64
	lastSeq       atomic.Uint64
}

// ID reports the watcher identifier the hub assigned at subscribe time.
func (s *Subscriber) ID() string { return s.id }

// WriteMessage writes one websocket message under the per-connection mutex
// with the hub's write deadline applied.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// WriteJSON marshals payload and writes it as a text message.
func (s *Subscriber) WriteJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return s.WriteMessage(websocket.TextMessage, data)
}

// StoreLastCommandSeq records the highest acknowledged command sequence.
func (s *Subscriber) StoreLastCommandSeq(seq uint64) {
	s.lastSeq.Store(seq)
}

// LastCommandSeq reads the highest acknowledged command sequence.
func (s *Subscriber) LastCommandSeq() uint64 {
	return s.lastSeq.Load()
}

// NewHub creates a hub with an empty watcher set and a fresh keyframe
// journal. The engine is attached later with Bind, after the loop exists.
func NewHub(cfg HubConfig) *Hub {
	if cfg.JournalCapacity <= 0 {
		cfg.JournalCapacity = defaultJournalCapacity
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Hub{
		watchers: make(map[string]*Subscriber),
		journal:  sim.NewJournal(cfg.JournalCapacity),
		cfg:      cfg,
		logger:   cfg.Logger,
		metrics:  metrics,
	}
}

// Bind attaches the simulation engine commands are staged into.
func (h *Hub) Bind(engine sim.Engine) {
	h.mu.Lock()
	h.engine = engine
	h.mu.Unlock()
}

// Arena names the scenario the hub serves.
func (h *Hub) Arena() string { return h.cfg.Arena }

// TickRate reports the authoritative frame rate for /diagnostics.
func (h *Hub) TickRate() int { return h.cfg.TickRate }

// Journal exposes the keyframe history for tests and handlers.
func (h *Hub) Journal() *sim.Journal { return h.journal }

// Subscribe registers a watcher connection and returns its hello message,
// seeded with the newest keyframe when the journal has one.
func (h *Hub) Subscribe(conn *websocket.Conn) (*Subscriber, helloMessage) {
	id := fmt.Sprintf("watcher-%d", h.nextID.Add(1))
	sub := &Subscriber{id: id, conn: conn, connectedAt: time.Now()}
	sub.lastHeartbeat.Store(sub.connectedAt.UnixMilli())

	h.mu.Lock()
	h.watchers[id] = sub
	count := len(h.watchers)
	h.mu.Unlock()
	h.metrics.Store("hub.watchers", uint64(count))

	hello := helloMessage{
		Ver:       ProtocolVersion,
		Type:      "hello",
		WatcherID: id,
		Arena:     h.cfg.Arena,
		TickRate:  h.cfg.TickRate,
	}
	if kf, ok := h.journal.Latest(); ok {
		hello.Keyframe = &kf
	}
	return sub, hello
}

// Disconnect removes a watcher and closes its connection.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	sub, ok := h.watchers[id]
	if ok {
		delete(h.watchers, id)
	}
	count := len(h.watchers)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.conn.Close()
	h.metrics.Store("hub.watchers", uint64(count))
}

// WatcherCount reports the number of connected watchers.
func (h *Hub) WatcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// Enqueue stages a watcher command on the bound engine.
func (h *Hub) Enqueue(cmd sim.Command) (bool, string) {
	h.mu.Lock()
	engine := h.engine
	h.mu.Unlock()
	if engine == nil {
		return false, commandRejectUnbound
	}
	return engine.Enqueue(cmd)
}

// BroadcastFrame records the frame as a keyframe and pushes it to every
// watcher. Called from the loop's AfterStep hook on the tick goroutine.
func (h *Hub) BroadcastFrame(res sim.StepResult) {
	kf, rec := h.journal.Record(res.Snapshot, res.Now)
	h.metrics.Store("hub.journal_size", uint64(rec.Size))
	if len(rec.Evicted) > 0 {
		h.metrics.Add("hub.keyframes_evicted", uint64(len(rec.Evicted)))
	}

	msg := frameMessage{
		Ver:         ProtocolVersion,
		Type:        "frame",
		Tick:        res.Tick,
		KeyframeSeq: kf.Sequence,
		ServerTime:  res.Now.UnixMilli(),
		Snapshot:    res.Snapshot,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal frame %d: %v", res.Tick, err)
		}
		return
	}
	h.broadcast(data)
	h.metrics.Add("hub.frames_broadcast", 1)
}

// HandleKeyframeRequest serves one journal lookup. The nack reason follows
// the journal window: sequences below it have been evicted, sequences above
// it have not happened yet.
func (h *Hub) HandleKeyframeRequest(seq uint64) (keyframeMessage, *keyframeNackMessage) {
	if kf, ok := h.journal.BySequence(seq); ok {
		return keyframeMessage{
			Ver:      ProtocolVersion,
			Type:     "keyframe",
			Sequence: kf.Sequence,
			Tick:     kf.Tick,
			Snapshot: kf.Snapshot,
		}, nil
	}
	nack := &keyframeNackMessage{
		Ver:      ProtocolVersion,
		Type:     "keyframeNack",
		Sequence: seq,
		Reason:   "expired",
	}
	if _, _, newest := h.journal.Window(); seq > newest {
		nack.Reason = "unknown"
	}
	return keyframeMessage{}, nack
}

// UpdateHeartbeat refreshes a watcher's liveness and computes the round trip
// when the client timestamp is plausible.
func (h *Hub) UpdateHeartbeat(id string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	sub, ok := h.watchers[id]
	h.mu.Unlock()
	if !ok {
		return 0, false
	}

	sub.lastHeartbeat.Store(receivedAt.UnixMilli())
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			sub.lastRTT.Store(rtt.Milliseconds())
		}
	}
	return time.Duration(sub.lastRTT.Load()) * time.Millisecond, true
}

// DiagnosticsSnapshot summarizes connected watchers for /diagnostics.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsWatcher {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.watchers))
	for _, sub := range h.watchers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	out := make([]diagnosticsWatcher, 0, len(subs))
	for _, sub := range subs {
		out = append(out, diagnosticsWatcher{
			ID:            sub.id,
			ConnectedAt:   sub.connectedAt.UnixMilli(),
			LastHeartbeat: sub.lastHeartbeat.Load(),
			RTTMillis:     sub.lastRTT.Load(),
			LastSeq:       sub.lastSeq.Load(),
		})
	}
	return out
}

// Write implements logging.Sink: every routed event is forwarded to the
// watchers as an event envelope. Per-watcher failures drop that watcher
// only, so the sink itself never enters the router's retry path.
func (h *Hub) Write(event logging.Event) error {
	if h.closed.Load() {
		return nil
	}
	msg := eventMessage{Ver: ProtocolVersion, Type: "event", Event: event}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	h.broadcast(data)
	h.metrics.Add("hub.events_broadcast", 1)
	return nil
}

// Close implements logging.Sink: it disconnects every watcher.
func (h *Hub) Close(context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.watchers))
	for _, sub := range h.watchers {
		subs = append(subs, sub)
	}
	h.watchers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
	h.metrics.Store("hub.watchers", 0)
	return nil
}

// Ensure the hub can register as a router sink.
var _ logging.Sink = (*Hub)(nil)

// broadcast writes data to a snapshot of the watcher set, dropping any
// watcher whose write fails.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.watchers))
	for id, sub := range h.watchers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			if h.logger != nil {
				h.logger.Printf("failed to send update to %s: %v", id, err)
			}
			h.Disconnect(id)
		}
	}
}
