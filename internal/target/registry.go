package target

import (
	"fmt"

	"hide-and-hunt/server/internal/world"
)

// Registry owns every objective in an arena. It is bound to the simulation
// goroutine; the hub reads snapshots assembled between frames, never the
// registry itself.
type Registry struct {
	objectives map[string]*Objective
	order      []string
	nextID     uint64
}

// NewRegistry constructs an empty objective registry.
func NewRegistry() *Registry {
	return &Registry{objectives: make(map[string]*Objective)}
}

// Spawn creates a valid objective of the given category. Nobody knows about
// it until Notify or MarkKnown is called.
func (r *Registry) Spawn(category Category, pos world.Vec3) *Objective {
	if r == nil {
		return nil
	}
	r.nextID++
	obj := &Objective{
		ID:       fmt.Sprintf("%s-%d", category, r.nextID),
		Category: category,
		Pos:      pos,
		valid:    true,
	}
	r.objectives[obj.ID] = obj
	r.order = append(r.order, obj.ID)
	return obj
}

// SpawnConsole creates a color-gated console objective.
func (r *Registry) SpawnConsole(pos world.Vec3, color world.ConsoleColor) *Objective {
	obj := r.Spawn(Console, pos)
	if obj != nil {
		obj.Color = color
	}
	return obj
}

// Get looks up an objective by ID.
func (r *Registry) Get(id string) (*Objective, bool) {
	if r == nil {
		return nil, false
	}
	obj, ok := r.objectives[id]
	return obj, ok
}

// All visits every live objective in spawn order.
func (r *Registry) All(visit func(*Objective) bool) {
	if r == nil || visit == nil {
		return
	}
	for _, id := range r.order {
		if obj, ok := r.objectives[id]; ok {
			if !visit(obj) {
				return
			}
		}
	}
}

// Candidates lists the valid objectives of a category the agent knows about,
// in spawn order. Console objectives are never returned here; they are
// color-gated and served by ConsoleCandidates.
func (r *Registry) Candidates(category Category, slot int) []*Objective {
	if r == nil || category == Console {
		return nil
	}
	var out []*Objective
	r.All(func(obj *Objective) bool {
		if obj.Category == category && obj.Valid() && obj.KnownTo(slot) {
			out = append(out, obj)
		}
		return true
	})
	return out
}

// ConsoleCandidates lists the valid consoles of the agent's color that it
// knows about, in spawn order.
func (r *Registry) ConsoleCandidates(color world.ConsoleColor, slot int) []*Objective {
	if r == nil || color == world.ColorNone {
		return nil
	}
	var out []*Objective
	r.All(func(obj *Objective) bool {
		if obj.Category == Console && obj.Color == color && obj.Valid() && obj.KnownTo(slot) {
			out = append(out, obj)
		}
		return true
	})
	return out
}

// Invalidate retires an objective by ID, firing Reselect at its holders.
func (r *Registry) Invalidate(id string, reason Reason) bool {
	obj, ok := r.Get(id)
	if !ok || !obj.Valid() {
		return false
	}
	obj.Invalidate(reason)
	return true
}

// Recolor switches a console to a new team color. Holders are told to
// reselect; the console itself stays valid for bots of the new color, and
// knowledge of its location survives the switch.
func (r *Registry) Recolor(id string, color world.ConsoleColor) bool {
	obj, ok := r.Get(id)
	if !ok || obj.Category != Console || !obj.Valid() {
		return false
	}
	if obj.Color == color {
		return false
	}
	obj.Color = color
	obj.Reselect.Emit(ReasonRecolored)
	return true
}

// Remove destroys an objective outright. It is invalidated first so lingering
// holders observe Valid() == false rather than a dangling entry.
func (r *Registry) Remove(id string) {
	if r == nil {
		return
	}
	obj, ok := r.objectives[id]
	if !ok {
		return
	}
	obj.Invalidate(ReasonRemoved)
	delete(r.objectives, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ResetEpisode retires every objective and clears all knowledge bits in one
// sweep. Knowledge is never cleared piecemeal; the bits stay monotonic within
// an episode and vanish together here.
func (r *Registry) ResetEpisode(reason Reason) {
	if r == nil {
		return
	}
	for _, id := range r.order {
		if obj, ok := r.objectives[id]; ok {
			obj.Invalidate(reason)
			obj.resetKnowledge()
		}
	}
	r.objectives = make(map[string]*Objective)
	r.order = nil
}

// ShareKnowledge propagates everything the speaker knows to the listener and
// refreshes the listener's last-notified ticks. It returns the IDs the
// listener had not heard of before, for the knowledge broadcast event.
func (r *Registry) ShareKnowledge(from, to int, tick uint64) []string {
	if r == nil || from == to {
		return nil
	}
	var learned []string
	r.All(func(obj *Objective) bool {
		if !obj.Valid() || !obj.KnownTo(from) {
			return true
		}
		if !obj.KnownTo(to) {
			learned = append(learned, obj.ID)
		}
		obj.Notify(to, tick)
		return true
	})
	return learned
}

// Len reports the number of live objectives.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.objectives)
}
