package sim

import "time"

// CommandType enumerates the supported arena commands.
type CommandType string

const (
	CommandHunterMove     CommandType = "HunterMove"
	CommandRecolorConsole CommandType = "RecolorConsole"
	CommandBarrier        CommandType = "Barrier"
	CommandJail           CommandType = "Jail"
	CommandEndArena       CommandType = "EndArena"
)

// HunterMoveCommand steers the hunter. The vector is a desired planar
// direction; the actuator scales it by the hunter's speed.
type HunterMoveCommand struct {
	DX    float64 `json:"dx"`
	DZ    float64 `json:"dz"`
	Yaw   float64 `json:"yaw"`
	Speed float64 `json:"speed,omitempty"`
}

// RecolorConsoleCommand flips a console objective to a new color.
type RecolorConsoleCommand struct {
	ConsoleID string `json:"consoleId"`
	Color     string `json:"color"`
}

// BarrierCommand reports a barrier state change for a button objective.
// A lowered barrier retires the button that controlled it.
type BarrierCommand struct {
	ButtonID string `json:"buttonId"`
	Down     bool   `json:"down"`
}

// JailCommand jails or frees a bot.
type JailCommand struct {
	BotID  string `json:"botId"`
	Jailed bool   `json:"jailed"`
}

// EndArenaCommand terminates the current episode.
type EndArenaCommand struct {
	Reason string `json:"reason,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64                 `json:"originTick"`
	ActorID    string                 `json:"actorId"`
	Type       CommandType            `json:"type"`
	IssuedAt   time.Time              `json:"issuedAt"`
	HunterMove *HunterMoveCommand     `json:"hunterMove,omitempty"`
	Recolor    *RecolorConsoleCommand `json:"recolor,omitempty"`
	Barrier    *BarrierCommand        `json:"barrier,omitempty"`
	Jail       *JailCommand           `json:"jail,omitempty"`
	EndArena   *EndArenaCommand       `json:"endArena,omitempty"`
}
