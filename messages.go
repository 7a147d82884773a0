package server

import (
	"hide-and-hunt/server/internal/sim"
	"hide-and-hunt/server/logging"
)

// helloMessage is the first frame a watcher receives: arena metadata plus the
// newest keyframe so the client can render before the next broadcast lands.
type helloMessage struct {
	Ver       int           `json:"ver"`
	Type      string        `json:"type"`
	WatcherID string        `json:"watcherId"`
	Arena     string        `json:"arena"`
	TickRate  int           `json:"tickRate"`
	Keyframe  *sim.Keyframe `json:"keyframe,omitempty"`
}

// frameMessage carries one authoritative tick's snapshot.
type frameMessage struct {
	Ver         int          `json:"ver"`
	Type        string       `json:"type"`
	Tick        uint64       `json:"t"`
	KeyframeSeq uint64       `json:"keyframeSeq"`
	ServerTime  int64        `json:"serverTime"`
	Snapshot    sim.Snapshot `json:"snapshot"`
}

// eventMessage streams one structured decision event to watchers.
type eventMessage struct {
	Ver   int           `json:"ver"`
	Type  string        `json:"type"`
	Event logging.Event `json:"event"`
}

// keyframeMessage answers a keyframeRequest from the journal.
type keyframeMessage struct {
	Ver      int          `json:"ver"`
	Type     string       `json:"type"`
	Sequence uint64       `json:"sequence"`
	Tick     uint64       `json:"t"`
	Snapshot sim.Snapshot `json:"snapshot"`
}

// keyframeNackMessage reports a journal miss for a requested sequence.
type keyframeNackMessage struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Sequence uint64 `json:"sequence"`
	Reason   string `json:"reason"`
}

// diagnosticsWatcher summarizes one connected watcher for /diagnostics.
type diagnosticsWatcher struct {
	ID            string `json:"id"`
	ConnectedAt   int64  `json:"connectedAt"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
	LastSeq       uint64 `json:"lastSeq"`
}
