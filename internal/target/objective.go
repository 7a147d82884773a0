// Package target models the arena objectives bots pursue: positions and
// categories, per-agent knowledge of their existence, and the signals holders
// rely on to drop a goal when the world moves on without them.
package target

import (
	"hide-and-hunt/server/internal/world"
)

// Category discriminates what an objective is. Holders branch on the
// category, never on the concrete type of the objective.
type Category string

const (
	// Button is a pressure plate a bot can stand on.
	Button Category = "button"
	// Relic is a collectible scattered through relic arenas.
	Relic Category = "relic"
	// Door is an exit that opens once its barrier drops.
	Door Category = "door"
	// Jail marks where captured teammates wait to be freed.
	Jail Category = "jail"
	// AvoidPosition is an ephemeral detour point placed by hunter avoidance.
	AvoidPosition Category = "avoid_position"
	// RandomPosition is an ephemeral patrol point placed by idle wandering.
	RandomPosition Category = "random_position"
	// Console is a color-gated station only matching bots may use.
	Console Category = "console"
)

// MaxAgents bounds the knowledge bitmask. Agent slots index into it.
const MaxAgents = 64

// Objective is a pursuable goal. The registry owns creation and destruction;
// every other holder keeps a non-owning reference and must consult Valid
// before acting on it.
//
// All methods are called from the simulation goroutine only.
type Objective struct {
	ID       string
	Category Category
	Pos      world.Vec3

	// Color is meaningful only for Console objectives.
	Color world.ConsoleColor

	// Approach fires when an agent closes within announcement range.
	// Reselect fires when holders should drop the objective and pick again.
	Approach Signal
	Reselect Signal

	valid    bool
	known    uint64
	notified map[int]uint64
}

// Valid reports whether the objective can still be pursued. Reference
// identity is not enough: a holder may outlive the game condition that made
// the objective meaningful.
func (o *Objective) Valid() bool {
	return o != nil && o.valid
}

// Invalidate retires the objective and tells every holder to reselect.
// Repeat calls are no-ops so a holder reacting to the signal cannot retrigger
// it.
func (o *Objective) Invalidate(reason Reason) {
	if o == nil || !o.valid {
		return
	}
	o.valid = false
	o.Reselect.Emit(reason)
}

// RequestReselect asks holders to drop the objective without retiring it.
// Avoidance uses this when a path endpoint strays into the hunter's zone.
func (o *Objective) RequestReselect(reason Reason) {
	if o == nil || !o.valid {
		return
	}
	o.Reselect.Emit(reason)
}

// MarkKnown sets the agent's knowledge bit. Bits only ever accumulate within
// an episode; ResetEpisode on the registry clears them all together.
func (o *Objective) MarkKnown(slot int) {
	if o == nil || slot < 0 || slot >= MaxAgents {
		return
	}
	o.known |= 1 << uint(slot)
}

// KnownTo reports whether the agent has learned of this objective.
func (o *Objective) KnownTo(slot int) bool {
	if o == nil || slot < 0 || slot >= MaxAgents {
		return false
	}
	return o.known&(1<<uint(slot)) != 0
}

// Notify marks the objective known to the agent and stamps when it was last
// told about it.
func (o *Objective) Notify(slot int, tick uint64) {
	if o == nil || slot < 0 || slot >= MaxAgents {
		return
	}
	o.MarkKnown(slot)
	if o.notified == nil {
		o.notified = make(map[int]uint64)
	}
	o.notified[slot] = tick
}

// LastNotified reports the tick the agent last heard about the objective.
func (o *Objective) LastNotified(slot int) (uint64, bool) {
	if o == nil || o.notified == nil {
		return 0, false
	}
	tick, ok := o.notified[slot]
	return tick, ok
}

func (o *Objective) resetKnowledge() {
	if o == nil {
		return
	}
	o.known = 0
	o.notified = nil
}
