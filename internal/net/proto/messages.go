// Package proto owns the watcher wire protocol: the inbound envelope, its
// mapping onto simulation commands, and the typed reply encoders.
package proto

import (
	"encoding/json"
	"fmt"

	"hide-and-hunt/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by watchers.
	Version = 1

	// Type identifiers for outbound websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
)

// Client message type identifiers.
const (
	TypeHunterMove  = "hunterMove"
	TypeRecolor     = "recolorConsole"
	TypeBarrier     = "barrier"
	TypeJail        = "jail"
	TypeEndArena    = "endArena"
	TypeHeartbeat   = "heartbeat"
	TypeKeyframeReq = "keyframeRequest"
)

// ClientMessage is the single envelope watchers send. Type selects the
// variant; the pointer fields distinguish absent from zero.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`

	// hunterMove
	DX    float64 `json:"dx"`
	DZ    float64 `json:"dz"`
	Yaw   float64 `json:"yaw"`
	Speed float64 `json:"speed"`

	// recolorConsole
	ConsoleID string `json:"consoleId"`
	Color     string `json:"color"`

	// barrier
	ButtonID string `json:"buttonId"`
	Down     *bool  `json:"down"`

	// jail
	BotID  string `json:"botId"`
	Jailed *bool  `json:"jailed"`

	// endArena
	Reason string `json:"reason"`

	// heartbeat
	SentAt int64 `json:"sentAt"`

	// keyframeRequest
	KeyframeSeq *uint64 `json:"keyframeSeq"`

	CommandSeq *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts a raw websocket payload into a structured
// envelope. Messages without a version field are assumed current.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps an envelope onto the simulation command it carries.
// Origin metadata is stamped later, when the command is staged. Envelopes
// that are not commands, or whose variant fields are incomplete, report
// false.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeHunterMove:
		return sim.Command{
			Type: sim.CommandHunterMove,
			HunterMove: &sim.HunterMoveCommand{
				DX:    msg.DX,
				DZ:    msg.DZ,
				Yaw:   msg.Yaw,
				Speed: msg.Speed,
			},
		}, true
	case TypeRecolor:
		if msg.ConsoleID == "" || msg.Color == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandRecolorConsole,
			Recolor: &sim.RecolorConsoleCommand{
				ConsoleID: msg.ConsoleID,
				Color:     msg.Color,
			},
		}, true
	case TypeBarrier:
		if msg.Down == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandBarrier,
			Barrier: &sim.BarrierCommand{
				ButtonID: msg.ButtonID,
				Down:     *msg.Down,
			},
		}, true
	case TypeJail:
		if msg.BotID == "" || msg.Jailed == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandJail,
			Jail: &sim.JailCommand{
				BotID:  msg.BotID,
				Jailed: *msg.Jailed,
			},
		}, true
	case TypeEndArena:
		return sim.Command{
			Type:     sim.CommandEndArena,
			EndArena: &sim.EndArenaCommand{Reason: msg.Reason},
		}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck acknowledges a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement payload.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the watcher that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection payload.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the watcher.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}
