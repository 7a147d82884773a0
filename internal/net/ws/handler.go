// Package ws runs watcher websocket sessions: it decodes envelopes,
// deduplicates sequenced commands, stages them through intake, and writes
// the acks and replies.
package ws

import (
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"hide-and-hunt/server"
	"hide-and-hunt/server/internal/net/intake"
	"hide-and-hunt/server/internal/net/proto"
	"hide-and-hunt/server/internal/sim"
)

// HandlerConfig adjusts the session handler.
type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades watcher connections and serves their read loops against
// the hub.
type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket session handler for the given hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and serves the session until the connection
// drops.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}
	h.Serve(conn)
}

// Serve registers the connection as a watcher and runs its read loop. The
// hub owns the connection from this point; any write failure disconnects
// the watcher and ends the session.
func (h *Handler) Serve(conn *websocket.Conn) {
	sub, hello := h.hub.Subscribe(conn)
	watcherID := sub.ID()

	if err := sub.WriteJSON(hello); err != nil {
		h.logger.Printf("failed to send hello to %s: %v", watcherID, err)
		h.hub.Disconnect(watcherID)
		return
	}

	stage := intake.CommandContext{
		Engine: h.hub,
		Tick:   h.latestTick,
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(watcherID)
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", watcherID, err)
			continue
		}

		normalizedSeq := uint64(0)
		if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
			normalizedSeq = *msg.CommandSeq
		}

		// write sends an encoded reply. Encoding failures are logged and
		// the session continues; write failures end it.
		write := func(data []byte, err error) bool {
			if err != nil {
				h.logger.Printf("failed to encode response for %s: %v", watcherID, err)
				return true
			}
			if werr := sub.WriteMessage(websocket.TextMessage, data); werr != nil {
				h.hub.Disconnect(watcherID)
				return false
			}
			return true
		}

		switch msg.Type {
		case proto.TypeHunterMove, proto.TypeRecolor, proto.TypeBarrier, proto.TypeJail, proto.TypeEndArena:
			if normalizedSeq > 0 {
				if last := sub.LastCommandSeq(); last > 0 && normalizedSeq <= last {
					if !write(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq})) {
						return
					}
					continue
				}
			}
			cmd, ok, reason := intake.StageClientCommand(stage, watcherID, msg)
			if normalizedSeq == 0 {
				if !ok && reason == server.CommandRejectInvalidAction {
					h.logger.Printf("invalid %s command from %s", msg.Type, watcherID)
				}
				continue
			}
			if ok {
				if !write(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq, Tick: cmd.OriginTick})) {
					return
				}
				sub.StoreLastCommandSeq(normalizedSeq)
				continue
			}
			retry := reason == sim.CommandRejectQueueLimit
			if !write(proto.EncodeCommandReject(proto.CommandReject{Seq: normalizedSeq, Reason: reason, Retry: retry})) {
				return
			}
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(watcherID, now, msg.SentAt)
			if !ok {
				continue
			}
			if !write(proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			})) {
				return
			}
		case proto.TypeKeyframeReq:
			if msg.KeyframeSeq == nil {
				continue
			}
			kf, nack := h.hub.HandleKeyframeRequest(*msg.KeyframeSeq)
			var reply any = kf
			if nack != nil {
				reply = nack
			}
			if err := sub.WriteJSON(reply); err != nil {
				h.hub.Disconnect(watcherID)
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, watcherID)
		}
	}
}

// latestTick reports the newest broadcast tick so acks can carry the frame
// the watcher last saw.
func (h *Handler) latestTick() uint64 {
	if kf, ok := h.hub.Journal().Latest(); ok {
		return kf.Tick
	}
	return 0
}
