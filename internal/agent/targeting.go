package agent

import (
	"math"

	"hide-and-hunt/server/internal/bt"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

// Hooks observe targeting lifecycle for logging and metrics. Nil funcs are
// skipped.
type Hooks struct {
	Committed func(obj *target.Objective)
	Dropped   func(obj *target.Objective, reason target.Reason)
	Reached   func(obj *target.Objective)
}

// selection is the commitment bookkeeping every targeting leaf shares:
// reaffirm-or-select, the two signal subscriptions, and a drop that
// deterministically clears both the leaf and the shared blackboard slot.
type selection struct {
	bb            *Blackboard
	hooks         Hooks
	watchApproach bool

	committed *target.Objective
	reselect  target.Token
	approach  target.Token
}

// reaffirm rewrites the blackboard slot from an existing commitment.
func (s *selection) reaffirm() bool {
	if s.committed == nil {
		return false
	}
	if !s.committed.Valid() {
		// The invalidation signal normally drops us first; this is the
		// safety net for objectives retired without one.
		s.drop(target.ReasonRemoved)
		return false
	}
	s.bb.SetObjective(s.committed)
	return true
}

// commit takes the objective, subscribes the drop triggers, and writes the
// blackboard slot. announce fires the Approach signal first so rival
// holders let go before this leaf starts listening.
func (s *selection) commit(obj *target.Objective, announce bool) {
	if announce {
		obj.Approach.Emit(target.ReasonClaimed)
	}
	s.committed = obj
	s.reselect = obj.Reselect.Subscribe(func(reason target.Reason) {
		s.drop(reason)
	})
	if s.watchApproach {
		s.approach = obj.Approach.Subscribe(func(reason target.Reason) {
			s.drop(reason)
		})
	}
	s.bb.SetObjective(obj)
	s.bb.LastGoalPos = obj.Pos
	s.bb.HasLastGoal = true
	if s.hooks.Committed != nil {
		s.hooks.Committed(obj)
	}
}

// drop releases the commitment: unsubscribe, clear the shared slot if it is
// still ours, and tell the hooks. Safe to call from inside signal dispatch.
func (s *selection) drop(reason target.Reason) {
	obj := s.committed
	if obj == nil {
		return
	}
	s.committed = nil
	obj.Reselect.Unsubscribe(s.reselect)
	if s.watchApproach {
		obj.Approach.Unsubscribe(s.approach)
	}
	s.bb.ClearObjective(obj)
	if s.hooks.Dropped != nil {
		s.hooks.Dropped(obj, reason)
	}
}

// Committed exposes the held objective for tests and the orchestrator.
func (s *selection) Committed() *target.Objective {
	return s.committed
}

// ConsoleLeaf pursues the console matching the agent's color. Selection is
// event-driven: a recolor fires Reselect at the holder and makes the console
// a candidate for the new color's bots.
type ConsoleLeaf struct {
	sel selection
	reg *target.Registry
	ctx *world.Context
}

// NewConsoleLeaf builds the console targeting leaf.
func NewConsoleLeaf(bb *Blackboard, reg *target.Registry, ctx *world.Context, hooks Hooks) *ConsoleLeaf {
	return &ConsoleLeaf{
		sel: selection{bb: bb, hooks: hooks},
		reg: reg,
		ctx: ctx,
	}
}

// Node wraps the leaf for tree composition.
func (l *ConsoleLeaf) Node() bt.Node { return bt.Action(l.tick) }

func (l *ConsoleLeaf) tick() (bt.Status, error) {
	if l.sel.reaffirm() {
		return bt.Success, nil
	}
	candidates := l.reg.ConsoleCandidates(l.sel.bb.Color, l.sel.bb.Slot)
	if len(candidates) == 0 {
		return bt.Failure, nil
	}
	l.sel.commit(candidates[l.ctx.RNG.Intn(len(candidates))], false)
	return bt.Success, nil
}

// ButtonLeaf pursues pressure buttons. Commits are announced on the button's
// Approach signal so at most one bot closes in on a given button; the leaf
// itself drops when a rival announces later.
type ButtonLeaf struct {
	sel selection
	reg *target.Registry
	ctx *world.Context
}

// NewButtonLeaf builds the button targeting leaf.
func NewButtonLeaf(bb *Blackboard, reg *target.Registry, ctx *world.Context, hooks Hooks) *ButtonLeaf {
	return &ButtonLeaf{
		sel: selection{bb: bb, hooks: hooks, watchApproach: true},
		reg: reg,
		ctx: ctx,
	}
}

// Node wraps the leaf for tree composition.
func (l *ButtonLeaf) Node() bt.Node { return bt.Action(l.tick) }

func (l *ButtonLeaf) tick() (bt.Status, error) {
	if l.sel.reaffirm() {
		return bt.Success, nil
	}
	candidates := l.reg.Candidates(target.Button, l.sel.bb.Slot)
	if len(candidates) == 0 {
		return bt.Failure, nil
	}
	l.sel.commit(candidates[l.ctx.RNG.Intn(len(candidates))], true)
	return bt.Success, nil
}

// RelicLeaf pursues a random known relic.
type RelicLeaf struct {
	sel selection
	reg *target.Registry
	ctx *world.Context
}

// NewRelicLeaf builds the relic targeting leaf.
func NewRelicLeaf(bb *Blackboard, reg *target.Registry, ctx *world.Context, hooks Hooks) *RelicLeaf {
	return &RelicLeaf{
		sel: selection{bb: bb, hooks: hooks, watchApproach: true},
		reg: reg,
		ctx: ctx,
	}
}

// Node wraps the leaf for tree composition.
func (l *RelicLeaf) Node() bt.Node { return bt.Action(l.tick) }

func (l *RelicLeaf) tick() (bt.Status, error) {
	if l.sel.reaffirm() {
		return bt.Success, nil
	}
	candidates := l.reg.Candidates(target.Relic, l.sel.bb.Slot)
	if len(candidates) == 0 {
		return bt.Failure, nil
	}
	l.sel.commit(candidates[l.ctx.RNG.Intn(len(candidates))], true)
	return bt.Success, nil
}

// JailLeaf gates jail-break runs behind a probability ramp: rescue becomes
// likely only once the agent is near wherever it was last headed, scaled by
// how many teammates sit jailed. The leaf only evaluates when no
// higher-priority commitment holds, so the gate decides the fresh pick.
type JailLeaf struct {
	sel selection
	reg *target.Registry
	ctx *world.Context
	cfg tuning.JailConfig
}

// NewJailLeaf builds the jail-break targeting leaf.
func NewJailLeaf(bb *Blackboard, reg *target.Registry, ctx *world.Context, cfg tuning.JailConfig, hooks Hooks) *JailLeaf {
	return &JailLeaf{
		sel: selection{bb: bb, hooks: hooks},
		reg: reg,
		ctx: ctx,
		cfg: cfg,
	}
}

// Node wraps the leaf for tree composition.
func (l *JailLeaf) Node() bt.Node { return bt.Action(l.tick) }

func (l *JailLeaf) tick() (bt.Status, error) {
	if l.sel.reaffirm() {
		return bt.Success, nil
	}
	if l.ctx.JailedAgents == 0 {
		return bt.Failure, nil
	}
	candidates := l.reg.Candidates(target.Jail, l.sel.bb.Slot)
	if len(candidates) == 0 {
		return bt.Failure, nil
	}
	dist := 0.0
	if l.sel.bb.HasLastGoal {
		dist = l.sel.bb.Pos.HorizontalDistance(l.sel.bb.LastGoalPos)
	}
	gate := jailGate(l.cfg, dist, l.ctx.JailedAgents, l.ctx.Delta)
	if l.ctx.RNG.Float64() >= gate {
		return bt.Failure, nil
	}
	l.sel.commit(candidates[l.ctx.RNG.Intn(len(candidates))], false)
	return bt.Success, nil
}

// jailGate is the per-frame probability of starting a jail break. The ramp
// saturates as remaining distance drops to the threshold; the result scales
// with the jailed count and the frame delta, so longer frames roll harder.
func jailGate(cfg tuning.JailConfig, dist float64, jailed int, dt float64) float64 {
	ramp := math.Min(math.Pow(cfg.RampBase, dist-cfg.DistanceThreshold), 1)
	return ramp * cfg.BaseProbability * float64(jailed) * dt
}

// PatrolLeaf wanders: it spawns an ephemeral random-position objective
// inside the arena bounds and pursues it. Arrival removes the objective,
// which drops the commitment and rolls a fresh point next frame.
type PatrolLeaf struct {
	sel selection
	reg *target.Registry
	ctx *world.Context
}

// NewPatrolLeaf builds the random patrol leaf.
func NewPatrolLeaf(bb *Blackboard, reg *target.Registry, ctx *world.Context, hooks Hooks) *PatrolLeaf {
	return &PatrolLeaf{
		sel: selection{bb: bb, hooks: hooks},
		reg: reg,
		ctx: ctx,
	}
}

// Node wraps the leaf for tree composition.
func (l *PatrolLeaf) Node() bt.Node { return bt.Action(l.tick) }

func (l *PatrolLeaf) tick() (bt.Status, error) {
	if l.sel.reaffirm() {
		return bt.Success, nil
	}
	if l.ctx.Width <= 0 || l.ctx.Height <= 0 {
		return bt.Failure, nil
	}
	point := world.Vec3{
		X: l.ctx.RNG.Float64() * l.ctx.Width,
		Z: l.ctx.RNG.Float64() * l.ctx.Height,
	}
	obj := l.reg.Spawn(target.RandomPosition, point)
	if obj == nil {
		return bt.Failure, nil
	}
	obj.MarkKnown(l.sel.bb.Slot)
	l.sel.commit(obj, false)
	return bt.Success, nil
}
