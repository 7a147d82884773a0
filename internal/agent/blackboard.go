// Package agent assembles bot decision trees: a per-agent blackboard, the
// targeting and movement leaves, the fixed tree topology per arena kind, and
// the orchestrator that ticks every bot once per authoritative frame.
package agent

import (
	"fmt"
	"sync/atomic"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/world"
)

// Intent is the one-frame motion output of a bot's tree. The actuator
// consumes it after the frame and the orchestrator clears it before the
// next tick, so nothing persists by accident.
type Intent struct {
	// Move is the unit steering direction on the ground plane; zero holds
	// position.
	Move world.Vec2

	// Yaw is the facing the actuator should turn toward when HasYaw is set.
	Yaw    float64
	HasYaw bool

	// Jump requests a launch with the given initial velocity.
	Jump         bool
	JumpVelocity world.Vec3

	// Interact is latched for one frame on arrival at an objective.
	Interact bool
}

// Blackboard is one agent's shared state: written by leaves and systems on
// the simulation goroutine, except the path snapshot, which the planner's
// worker replaces atomically.
type Blackboard struct {
	AgentID string
	// Slot indexes the knowledge bitmask, in [0, target.MaxAgents).
	Slot int
	// Color gates console objectives; ColorNone for colorless arenas.
	Color world.ConsoleColor

	// Actuator-owned kinematic state, read by leaves.
	Pos       world.Vec3
	Yaw       float64
	VelY      float64
	Grounded  bool
	Jailed    bool
	LastSpeed float64

	// LastGoalPos survives drops; the jail gate ramps on distance to it.
	LastGoalPos world.Vec3
	HasLastGoal bool

	objective *target.Objective

	detour    world.Vec3
	hasDetour bool
	detourSeq uint64

	intent Intent

	gen  uint64
	path atomic.Pointer[nav.Result]
}

// NewBlackboard builds a blackboard for one agent slot.
func NewBlackboard(id string, slot int, color world.ConsoleColor) *Blackboard {
	return &Blackboard{AgentID: id, Slot: slot, Color: color, Grounded: true}
}

// SetObjective writes the shared current-target slot.
func (b *Blackboard) SetObjective(obj *target.Objective) {
	b.objective = obj
}

// Objective reads the shared current-target slot.
func (b *Blackboard) Objective() *target.Objective {
	return b.objective
}

// ClearObjective empties the slot only if it still holds obj, so a drop for
// a stale commitment cannot erase a newer one.
func (b *Blackboard) ClearObjective(obj *target.Objective) {
	if b.objective == obj {
		b.objective = nil
	}
}

// SetDetour places the avoidance waypoint the evade branch steers to. Each
// activation gets a distinct identity so the mover replans rather than
// following a path to the previous point.
func (b *Blackboard) SetDetour(p world.Vec3) {
	b.detourSeq++
	b.detour = p
	b.hasDetour = true
}

// Detour reports the active avoidance waypoint.
func (b *Blackboard) Detour() (world.Vec3, bool) {
	return b.detour, b.hasDetour
}

// DetourID names the active detour destination in the avoid-position
// category namespace.
func (b *Blackboard) DetourID() string {
	return fmt.Sprintf("%s-%d", target.AvoidPosition, b.detourSeq)
}

// ClearDetour removes the avoidance waypoint.
func (b *Blackboard) ClearDetour() {
	b.detour = world.Vec3{}
	b.hasDetour = false
}

// SetIntent replaces the frame's motion intent.
func (b *Blackboard) SetIntent(i Intent) {
	b.intent = i
}

// MergeInteract latches the interact flag onto the current intent.
func (b *Blackboard) MergeInteract() {
	b.intent.Interact = true
}

// MergeYaw sets the facing on the current intent without touching motion.
func (b *Blackboard) MergeYaw(yaw float64) {
	b.intent.Yaw = yaw
	b.intent.HasYaw = true
}

// Intent reads the frame's motion intent.
func (b *Blackboard) Intent() Intent {
	return b.intent
}

// ClearIntent zeroes the motion intent at the top of a frame.
func (b *Blackboard) ClearIntent() {
	b.intent = Intent{}
}

// NextGeneration mints a fresh path-request generation. Results carrying an
// older generation lose the StorePath race below.
func (b *Blackboard) NextGeneration() uint64 {
	b.gen++
	return b.gen
}

// StorePath publishes a completed path computation. Results are kept only
// if no newer-generation result has landed first; the planner delivers
// unconditionally and this is where stale work dies.
func (b *Blackboard) StorePath(res *nav.Result) {
	if res == nil {
		return
	}
	for {
		cur := b.path.Load()
		if cur != nil && cur.Goal.Generation > res.Goal.Generation {
			return
		}
		if b.path.CompareAndSwap(cur, res) {
			return
		}
	}
}

// Path reads the latest path snapshot, which may be nil or stale; callers
// match it against their commitment with Result.Matches.
func (b *Blackboard) Path() *nav.Result {
	return b.path.Load()
}

// ClearPath drops the snapshot, e.g. on episode reset.
func (b *Blackboard) ClearPath() {
	b.path.Store(nil)
}
