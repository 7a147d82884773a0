package agent

import (
	"hide-and-hunt/server/internal/avoid"
	"hide-and-hunt/server/internal/bt"
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

// Branch names reported by (*Agent).Branch.
const (
	BranchEvade   = "evade"
	BranchConsole = "console"
	BranchButton  = "button"
	BranchRelic   = "relic"
	BranchJail    = "jail"
	BranchPatrol  = "patrol"
	BranchIdle    = "idle"
)

// Config assembles one bot's decision stack. Mesh, Planner, Registry, Ctx
// and Tuning are required; the hooks are optional observers.
type Config struct {
	ID    string
	Slot  int
	Color world.ConsoleColor

	Mesh     nav.Mesh
	Planner  *nav.Planner
	Registry *target.Registry
	Ctx      *world.Context
	Tuning   *tuning.Config

	// Hooks observe targeting lifecycle, including arrivals.
	Hooks Hooks

	// PathReady and PathFailed observe path results on the tick goroutine.
	PathReady  func(goal nav.Goal, path nav.Path)
	PathFailed func(goal nav.Goal, err error)
}

// Agent is one bot's decision stack: the blackboard, the avoidance zone, and
// the behavior tree that writes a motion intent each authoritative frame.
//
// The selector remembers a Running branch and re-ticks it ahead of its
// higher-priority siblings, so commitments survive until the branch settles.
// Preemption works through failure instead: an active detour makes the
// objective mover fail its tick, which releases the remembered branch and
// lets the same-frame rescan land on the evade branch.
type Agent struct {
	ID    string
	Slot  int
	Color world.ConsoleColor

	BB   *Blackboard
	Zone *avoid.Zone

	root     *bt.Root
	selector *bt.Recurring
	branches []string
	sels     []*selection
	moves    []*MoveLeaf
}

// NewAgent wires the tree for the arena kind in cfg.Ctx.
func NewAgent(cfg Config) *Agent {
	bb := NewBlackboard(cfg.ID, cfg.Slot, cfg.Color)
	a := &Agent{
		ID:    cfg.ID,
		Slot:  cfg.Slot,
		Color: cfg.Color,
		BB:    bb,
		Zone:  avoid.NewZone(cfg.Tuning.Avoidance),
	}

	objectiveMove := NewMoveLeaf(bb, MoveConfig{
		Mesh:    cfg.Mesh,
		Planner: cfg.Planner,
		Tuning:  cfg.Tuning.Movement,
		Dest: func() (world.Vec3, string, bool) {
			obj := bb.Objective()
			if obj == nil || !obj.Valid() {
				return world.Vec3{}, "", false
			}
			return obj.Pos, obj.ID, true
		},
		Yield: func() bool {
			_, has := bb.Detour()
			return has
		},
		Reached: func(id string) {
			if cfg.Hooks.Reached == nil {
				return
			}
			if obj, ok := cfg.Registry.Get(id); ok {
				cfg.Hooks.Reached(obj)
			}
		},
		Unreachable: func(id string) { a.dropByID(id, target.ReasonUnreachable) },
		PathReady:   cfg.PathReady,
		PathFailed:  cfg.PathFailed,
	})
	detourMove := NewMoveLeaf(bb, MoveConfig{
		Mesh:    cfg.Mesh,
		Planner: cfg.Planner,
		Tuning:  cfg.Tuning.Movement,
		Dest: func() (world.Vec3, string, bool) {
			p, ok := bb.Detour()
			if !ok {
				return world.Vec3{}, "", false
			}
			return p, bb.DetourID(), true
		},
		Unreachable: func(string) { bb.ClearDetour() },
		PathReady:   cfg.PathReady,
		PathFailed:  cfg.PathFailed,
	})
	a.moves = []*MoveLeaf{objectiveMove, detourMove}

	objectiveNode := objectiveMove.Node()
	children := []bt.Node{bt.OnSuccess(detourMove.Node(), bb.ClearDetour)}
	names := []string{BranchEvade}
	pursue := func(name string, node bt.Node, sel *selection) {
		children = append(children, bt.Sequence(node, objectiveNode))
		names = append(names, name)
		a.sels = append(a.sels, sel)
	}

	switch cfg.Ctx.Kind {
	case world.ArenaRelic:
		relic := NewRelicLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Hooks)
		pursue(BranchRelic, relic.Node(), &relic.sel)
		jail := NewJailLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Tuning.Behavior.Jail, cfg.Hooks)
		pursue(BranchJail, jail.Node(), &jail.sel)
	case world.ArenaConsole:
		console := NewConsoleLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Hooks)
		pursue(BranchConsole, console.Node(), &console.sel)
	default:
		console := NewConsoleLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Hooks)
		pursue(BranchConsole, console.Node(), &console.sel)
		button := NewButtonLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Hooks)
		pursue(BranchButton, button.Node(), &button.sel)
		jail := NewJailLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Tuning.Behavior.Jail, cfg.Hooks)
		pursue(BranchJail, jail.Node(), &jail.sel)
	}
	patrol := NewPatrolLeaf(bb, cfg.Registry, cfg.Ctx, cfg.Hooks)
	pursue(BranchPatrol, patrol.Node(), &patrol.sel)
	children = append(children, NewIdleLeaf())
	names = append(names, BranchIdle)

	a.selector = bt.NewRecurring(children...)
	a.branches = names

	// The facing pass runs every frame after the selector, whatever its
	// status, so travel direction becomes yaw even mid-branch.
	face := NewFaceTravelLeaf(bb)
	a.root = bt.NewRoot(bt.New(func(kids []bt.Node) (bt.Status, error) {
		status, err := kids[0].Tick()
		if _, ferr := kids[1].Tick(); err == nil {
			err = ferr
		}
		return status, err
	}, a.selector.Node(), face))
	return a
}

// Tick evaluates the tree once.
func (a *Agent) Tick() (bt.Status, error) {
	return a.root.Tick()
}

// Branch names the subtree behind the last non-failure result, or "" when
// the whole tree failed.
func (a *Agent) Branch() string {
	idx := a.selector.Chosen()
	if idx < 0 || idx >= len(a.branches) {
		return ""
	}
	return a.branches[idx]
}

// Committed reports the first held objective across the targeting leaves.
func (a *Agent) Committed() *target.Objective {
	for _, s := range a.sels {
		if obj := s.Committed(); obj != nil {
			return obj
		}
	}
	return nil
}

// dropByID releases every commitment on the given objective.
func (a *Agent) dropByID(id string, reason target.Reason) {
	for _, s := range a.sels {
		if obj := s.Committed(); obj != nil && obj.ID == id {
			s.drop(reason)
		}
	}
}

// Reset clears per-episode decision state. Registry invalidation signals
// normally drop commitments first; this covers the rest.
func (a *Agent) Reset() {
	a.selector.Reset()
	for _, s := range a.sels {
		s.drop(target.ReasonArenaEnded)
	}
	for _, m := range a.moves {
		m.Reset()
	}
	a.BB.ClearDetour()
	a.BB.ClearPath()
	a.BB.ClearIntent()
	a.BB.HasLastGoal = false
	a.Zone.Reset()
}
