package agent

import (
	"context"

	"hide-and-hunt/server/internal/avoid"
	"hide-and-hunt/server/internal/cost"
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/logging"
	"hide-and-hunt/server/logging/behavior"
	"hide-and-hunt/server/logging/navigation"
	"hide-and-hunt/server/tuning"
)

// OrchestratorConfig wires the per-frame decision driver.
type OrchestratorConfig struct {
	Mesh     nav.Mesh
	Planner  *nav.Planner
	Registry *target.Registry
	Ctx      *world.Context
	Tuning   *tuning.Config

	Publisher logging.Publisher
	Metrics   telemetry.Metrics

	// OnReached, when set, receives every objective arrival after the decision
	// core's own handling. Game rules (barrier drops, console claims, jail
	// rescues) hang off this seam.
	OnReached func(agentID string, obj *target.Objective)
}

// Orchestrator runs every bot's decision stack once per authoritative frame
// and the cross-agent systems around it: hunter cost shaping before the
// ticks, avoidance and branch events per agent, knowledge propagation after.
// Everything here runs on the simulation goroutine.
type Orchestrator struct {
	mesh     nav.Mesh
	planner  *nav.Planner
	registry *target.Registry
	ctx      *world.Context
	cfg      *tuning.Config

	engine *avoid.Engine
	shaper *cost.Shaper

	pub       logging.Publisher
	metrics   telemetry.Metrics
	onReached func(string, *target.Objective)

	agents []*Agent
	byID   map[string]*Agent

	branches   map[string]string
	hadDetour  map[string]bool
	lastTable  map[string]*avoid.ArcTable
	jailedPrev int
}

// NewOrchestrator builds the driver. Metrics may be nil.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Orchestrator{
		mesh:      cfg.Mesh,
		planner:   cfg.Planner,
		registry:  cfg.Registry,
		ctx:       cfg.Ctx,
		cfg:       cfg.Tuning,
		engine:    avoid.NewEngine(cfg.Mesh, cfg.Tuning.Avoidance),
		shaper:    cost.NewShaper(cfg.Tuning.Cost),
		pub:       cfg.Publisher,
		metrics:   metrics,
		onReached: cfg.OnReached,
		byID:      make(map[string]*Agent),
		branches:  make(map[string]string),
		hadDetour: make(map[string]bool),
		lastTable: make(map[string]*avoid.ArcTable),
	}
}

// AddAgent assembles a bot for the orchestrator's arena and registers it.
// Slots are handed out in registration order; nil is returned once the
// knowledge mask is full.
func (o *Orchestrator) AddAgent(id string, color world.ConsoleColor) *Agent {
	slot := len(o.agents)
	if slot >= target.MaxAgents {
		return nil
	}
	a := NewAgent(Config{
		ID:       id,
		Slot:     slot,
		Color:    color,
		Mesh:     o.mesh,
		Planner:  o.planner,
		Registry: o.registry,
		Ctx:      o.ctx,
		Tuning:   o.cfg,
		Hooks:    o.hooksFor(id),
		PathReady: func(goal nav.Goal, path nav.Path) {
			navigation.PathReady(context.Background(), o.pub, o.ctx.Tick, logging.AgentRef(id), navigation.PathPayload{
				ObjectiveID: goal.ObjectiveID,
				Waypoints:   len(path.Waypoints),
			}, nil)
			o.metrics.Add("navigation.paths_ready", 1)
		},
		PathFailed: func(goal nav.Goal, err error) {
			navigation.PathFailed(context.Background(), o.pub, o.ctx.Tick, logging.AgentRef(id), navigation.PathPayload{
				ObjectiveID: goal.ObjectiveID,
				Reason:      err.Error(),
			}, nil)
			o.metrics.Add("navigation.paths_failed", 1)
		},
	})
	o.agents = append(o.agents, a)
	o.byID[id] = a
	o.lastTable[id] = a.Zone.Table()
	o.metrics.Store("behavior.agents", uint64(len(o.agents)))
	return a
}

// hooksFor binds the targeting lifecycle of one agent to the event stream
// and the arrival policy.
func (o *Orchestrator) hooksFor(id string) Hooks {
	return Hooks{
		Committed: func(obj *target.Objective) {
			behavior.TargetCommitted(context.Background(), o.pub, o.ctx.Tick, logging.AgentRef(id), logging.ObjectiveRef(obj.ID), behavior.TargetPayload{
				ObjectiveID: obj.ID,
				Category:    string(obj.Category),
			}, nil)
			o.metrics.Add("behavior.targets_committed", 1)
		},
		Dropped: func(obj *target.Objective, reason target.Reason) {
			behavior.TargetDropped(context.Background(), o.pub, o.ctx.Tick, logging.AgentRef(id), logging.ObjectiveRef(obj.ID), behavior.TargetPayload{
				ObjectiveID: obj.ID,
				Category:    string(obj.Category),
				Reason:      string(reason),
			}, nil)
			o.metrics.Add("behavior.targets_dropped", 1)
		},
		Reached: func(obj *target.Objective) {
			if a, ok := o.byID[id]; ok {
				a.BB.MergeInteract()
			}
			behavior.TargetReached(context.Background(), o.pub, o.ctx.Tick, logging.AgentRef(id), logging.ObjectiveRef(obj.ID), behavior.TargetPayload{
				ObjectiveID: obj.ID,
				Category:    string(obj.Category),
			}, nil)
			o.metrics.Add("behavior.targets_reached", 1)
			// Patrol waypoints are single-use; removal drops the holder and
			// rolls a fresh point next frame.
			if obj.Category == target.RandomPosition {
				o.registry.Remove(obj.ID)
			}
			if o.onReached != nil {
				o.onReached(id, obj)
			}
		},
	}
}

// Retune rebuilds the avoidance engine and cost shaper from the current
// tuning values. The old penalty field is cleared first so the fresh shaper
// does not orphan it. Per-agent ring geometry is captured at zone
// construction and refreshes only when agents are rebuilt.
func (o *Orchestrator) Retune() {
	o.engine = avoid.NewEngine(o.mesh, o.cfg.Avoidance)
	o.shaper.Clear(o.mesh)
	o.shaper = cost.NewShaper(o.cfg.Cost)
}

// Agents lists the registered bots in slot order.
func (o *Orchestrator) Agents() []*Agent {
	return o.agents
}

// Agent looks up a bot by ID.
func (o *Orchestrator) Agent(id string) (*Agent, bool) {
	a, ok := o.byID[id]
	return a, ok
}

// Step runs one authoritative frame: cost shaping, then per agent a tree
// tick followed by avoidance, then knowledge propagation. Observer instances
// skip all of it.
func (o *Orchestrator) Step(ctx context.Context) {
	if !o.ctx.Authoritative {
		return
	}

	o.stepCost(ctx)

	for _, a := range o.agents {
		a.BB.ClearIntent()
		if a.BB.Jailed {
			continue
		}
		if _, err := a.Tick(); err != nil {
			o.metrics.Add("behavior.tree_errors", 1)
		}
		o.stepAvoid(ctx, a)
		o.announceBranch(ctx, a)
	}

	o.shareKnowledge(ctx)
	o.watchJail()
	o.metrics.Store("world.jailed_agents", uint64(o.ctx.JailedAgents))
}

// stepCost re-centers the hunter's path penalty field when the hunter moved
// to a different node, and clears it when the hunter is gone.
func (o *Orchestrator) stepCost(ctx context.Context) {
	node := nav.NoNode
	if o.ctx.HasThreat {
		if n, ok := o.mesh.NearestNode(o.ctx.Threat.Pos, nav.Filter{SkipLinks: true}); ok {
			node = n
		}
	}
	pass, changed := o.shaper.Apply(o.mesh, node)
	if !changed {
		return
	}
	navigation.CostPass(ctx, o.pub, o.ctx.Tick, navigation.CostPassPayload{
		Penalized:  pass.Penalized,
		Cleared:    pass.Cleared,
		ThreatNode: int64(pass.ThreatNode),
	}, nil)
	o.metrics.Add("navigation.cost_passes", 1)
}

// stepAvoid runs one avoidance evaluation and applies its outcome: detour
// placement, reselect requests, and the ring bookkeeping events.
func (o *Orchestrator) stepAvoid(ctx context.Context, a *Agent) {
	in := avoid.Input{
		Pos:       a.BB.Pos,
		Node:      nav.NoNode,
		Speed:     o.cfg.Movement.Speed,
		Delta:     o.ctx.Delta,
		Threat:    o.ctx.Threat,
		HasThreat: o.ctx.HasThreat,
	}
	if n, ok := o.mesh.NearestNode(a.BB.Pos, nav.Filter{SkipLinks: true}); ok {
		in.Node = n
	}
	if res := a.BB.Path(); res.Completed() {
		wps := res.Path.Waypoints
		in.PathEnd = wps[len(wps)-1]
		in.HasPathEnd = true
	}
	if obj := a.BB.Objective(); obj != nil && obj.Valid() {
		in.Target = obj.Pos
		in.HasTarget = true
	}

	dec := o.engine.Evaluate(a.Zone, in)

	// A detour cleared during this frame's tick ended on arrival.
	if _, has := a.BB.Detour(); !has && o.hadDetour[a.ID] {
		o.hadDetour[a.ID] = false
		behavior.DetourEnded(ctx, o.pub, o.ctx.Tick, logging.AgentRef(a.ID), behavior.DetourPayload{
			Direction: detourDirection(a.Zone),
			Reason:    "completed",
		}, nil)
	}

	if dec.RequestReselect {
		if obj := a.BB.Objective(); obj != nil && obj.Valid() {
			obj.RequestReselect(target.ReasonThreatNearby)
			o.metrics.Add("behavior.reselects_requested", 1)
		}
	}

	if dec.HasDetour {
		if _, active := a.BB.Detour(); !active {
			a.BB.SetDetour(dec.Detour)
			o.hadDetour[a.ID] = true
			theta := a.Zone.EllipseFor(avoid.RingDetour).AngleOf(dec.Detour.Flat())
			behavior.DetourStarted(ctx, o.pub, o.ctx.Tick, logging.AgentRef(a.ID), behavior.DetourPayload{
				Direction: detourDirection(a.Zone),
				Theta:     theta,
				Reason:    "danger",
			}, nil)
			o.metrics.Add("behavior.detours_started", 1)
		}
	}

	if dec.ScaleChanged {
		o.metrics.Add("avoidance.scale_changes", 1)
	}

	// The replacement arc table publishes from a background build; report it
	// the frame it becomes visible.
	if t := a.Zone.Table(); t != o.lastTable[a.ID] {
		o.lastTable[a.ID] = t
		navigation.ArcTableRebuilt(ctx, o.pub, o.ctx.Tick, logging.AgentRef(a.ID), navigation.ArcTablePayload{
			Samples:       t.Samples(),
			Circumference: t.Circumference(),
		}, nil)
	}
}

// announceBranch reports branch transitions on the event stream.
func (o *Orchestrator) announceBranch(ctx context.Context, a *Agent) {
	branch := a.Branch()
	prev := o.branches[a.ID]
	if branch == prev {
		return
	}
	o.branches[a.ID] = branch
	behavior.Decision(ctx, o.pub, o.ctx.Tick, logging.AgentRef(a.ID), behavior.DecisionPayload{
		Branch:   branch,
		Previous: prev,
	}, nil)
	o.metrics.Add("behavior.branch_changes", 1)
}

// shareKnowledge runs discovery and gossip after all ticks: agents first
// learn valid objectives they stand near, then tell nearby teammates what
// they know. Jailed agents neither speak nor listen.
func (o *Orchestrator) shareKnowledge(ctx context.Context) {
	radius := o.ctx.HearingRadius
	if radius <= 0 {
		return
	}

	for _, a := range o.agents {
		if a.BB.Jailed {
			continue
		}
		bb := a.BB
		o.registry.All(func(obj *target.Objective) bool {
			if !obj.Valid() || obj.Category == target.RandomPosition || obj.KnownTo(bb.Slot) {
				return true
			}
			if bb.Pos.HorizontalDistance(obj.Pos) <= radius {
				obj.MarkKnown(bb.Slot)
			}
			return true
		})
	}

	for _, speaker := range o.agents {
		if speaker.BB.Jailed {
			continue
		}
		for _, listener := range o.agents {
			if speaker == listener || listener.BB.Jailed {
				continue
			}
			if speaker.BB.Pos.HorizontalDistance(listener.BB.Pos) > radius {
				continue
			}
			learned := o.registry.ShareKnowledge(speaker.Slot, listener.Slot, o.ctx.Tick)
			if len(learned) == 0 {
				continue
			}
			behavior.KnowledgeShared(ctx, o.pub, o.ctx.Tick, logging.AgentRef(speaker.ID), logging.AgentRef(listener.ID), behavior.KnowledgeSharedPayload{
				ObjectiveIDs: learned,
			}, nil)
			o.metrics.Add("behavior.knowledge_shared", uint64(len(learned)))
		}
	}
}

// watchJail retires jail objectives for everyone the moment no teammate
// needs rescuing anymore.
func (o *Orchestrator) watchJail() {
	cur := o.ctx.JailedAgents
	if o.jailedPrev > 0 && cur == 0 {
		o.registry.All(func(obj *target.Objective) bool {
			if obj.Category == target.Jail && obj.Valid() {
				obj.RequestReselect(target.ReasonFreed)
			}
			return true
		})
	}
	o.jailedPrev = cur
}

// ResetEpisode retires every objective, clears all knowledge, and resets the
// per-agent decision state for a fresh arena.
func (o *Orchestrator) ResetEpisode() {
	o.registry.ResetEpisode(target.ReasonArenaEnded)
	for _, a := range o.agents {
		a.Reset()
	}
	o.branches = make(map[string]string)
	o.hadDetour = make(map[string]bool)
	o.jailedPrev = 0
}

func detourDirection(z *avoid.Zone) int {
	if z.Clockwise() {
		return -1
	}
	return 1
}
