package sim

// BotState mirrors one decision agent for diagnostic consumers.
type BotState struct {
	ID        string  `json:"id"`
	Slot      int     `json:"slot"`
	Color     string  `json:"color,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"yaw"`
	Grounded  bool    `json:"grounded"`
	Jailed    bool    `json:"jailed,omitempty"`
	Branch    string  `json:"branch,omitempty"`
	Objective string  `json:"objective,omitempty"`
	Detour    bool    `json:"detour,omitempty"`
	ZoneScale float64 `json:"zoneScale"`
}

// HunterState mirrors the threat actor.
type HunterState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Speed float64 `json:"speed"`
}

// ObjectiveState mirrors a registry objective.
type ObjectiveState struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Color    string  `json:"color,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Valid    bool    `json:"valid"`
}

// Snapshot captures the arena state exposed to non-simulation callers.
type Snapshot struct {
	Tick         uint64           `json:"tick"`
	Arena        string           `json:"arena,omitempty"`
	Bots         []BotState       `json:"bots,omitempty"`
	Hunter       *HunterState     `json:"hunter,omitempty"`
	Objectives   []ObjectiveState `json:"objectives,omitempty"`
	JailedAgents int              `json:"jailedAgents,omitempty"`
}
