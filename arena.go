package server

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"hide-and-hunt/server/internal/agent"
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/nav/grid"
	"hide-and-hunt/server/internal/sim"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/logging"
	"hide-and-hunt/server/logging/arena"
	"hide-and-hunt/server/tuning"
)

const (
	defaultBots        = 4
	defaultHunterSpeed = 5.0

	// hunterID names the threat actor in events and snapshots.
	hunterID = "hunter"

	// captureRadius is how close the hunter must be to jail a bot.
	captureRadius = 1.0

	plannerWorkers = 2
	plannerBacklog = 64
)

// ArenaConfig assembles an arena core.
type ArenaConfig struct {
	// Kind selects the layout and the bots' decision branches.
	Kind world.ArenaKind

	// Bots is the number of decision agents, capped at target.MaxAgents.
	Bots int

	// Seed drives every probabilistic decision in the arena.
	Seed int64

	// Tuning is shared with the live-reload watcher; nil loads defaults.
	Tuning *tuning.Config

	// HunterSpeed is the default chase speed until a command overrides it.
	HunterSpeed float64

	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
}

// botBody couples a decision agent with the kinematic state the actuator
// owns: the planar velocity carried through a jump and the spawn point bodies
// return to on episode reset.
type botBody struct {
	agent  *agent.Agent
	airVel world.Vec2
	spawn  world.Vec3
}

// hunterState is the actuator-side threat. Steering persists until the next
// command so the hunter keeps moving between client updates.
type hunterState struct {
	active bool
	pos    world.Vec3
	yaw    float64
	speed  float64
	steer  world.Vec2
}

// Arena is the authoritative game core: the navigation mesh and objective
// registry for one arena kind, the bot orchestrator on top of them, and the
// actuator that turns intents into positions. It implements sim.Core; every
// method except QueueTuning runs on the simulation goroutine.
type Arena struct {
	cfg     ArenaConfig
	tuning  *tuning.Config
	pub     logging.Publisher
	metrics telemetry.Metrics

	mesh     *grid.Mesh
	layout   arenaLayout
	planner  *nav.Planner
	registry *target.Registry
	ctx      *world.Context
	orch     *agent.Orchestrator

	bots []*botBody
	byID map[string]*botBody

	hunter hunterState

	// barrier guards the standard arena's buttons; dropping it retires them
	// and opens the door.
	barrier bool
	doorID  string

	episode uint64

	pendingTuning atomic.Pointer[tuning.Config]
}

// NewArena builds the arena core for cfg and spawns its initial objectives.
func NewArena(cfg ArenaConfig) (*Arena, error) {
	if cfg.Kind == "" {
		cfg.Kind = world.ArenaStandard
	}
	if cfg.Bots <= 0 {
		cfg.Bots = defaultBots
	}
	if cfg.Bots > target.MaxAgents {
		cfg.Bots = target.MaxAgents
	}
	if cfg.HunterSpeed <= 0 {
		cfg.HunterSpeed = defaultHunterSpeed
	}
	if cfg.Tuning == nil {
		def := tuning.Default()
		cfg.Tuning = &def
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}

	mesh, layout, err := buildArena(cfg.Kind)
	if err != nil {
		return nil, err
	}

	ctx := world.NewContext(cfg.Kind, cfg.Seed)
	ctx.SetBounds(float64(layout.cols)*grid.DefaultCellSize, float64(layout.rows)*grid.DefaultCellSize)
	ctx.HearingRadius = cfg.Tuning.Behavior.HearingRadius

	a := &Arena{
		cfg:      cfg,
		tuning:   cfg.Tuning,
		pub:      cfg.Publisher,
		metrics:  cfg.Metrics,
		mesh:     mesh,
		layout:   layout,
		planner:  nav.NewPlanner(mesh, plannerWorkers, plannerBacklog),
		registry: target.NewRegistry(),
		ctx:      ctx,
		byID:     make(map[string]*botBody),
		barrier:  true,
		hunter:   hunterState{pos: layout.hunterSpawn, speed: cfg.HunterSpeed},
	}
	a.orch = agent.NewOrchestrator(agent.OrchestratorConfig{
		Mesh:      mesh,
		Planner:   a.planner,
		Registry:  a.registry,
		Ctx:       ctx,
		Tuning:    cfg.Tuning,
		Publisher: cfg.Publisher,
		Metrics:   cfg.Metrics,
		OnReached: a.handleReached,
	})

	colors := world.Colors()
	for i := 0; i < cfg.Bots; i++ {
		color := world.ColorNone
		if cfg.Kind != world.ArenaRelic {
			color = colors[i%len(colors)]
		}
		ag := a.orch.AddAgent(botID(i), color)
		if ag == nil {
			break
		}
		spawn := layout.spawns[i%len(layout.spawns)]
		ag.BB.Pos = spawn
		ag.BB.Yaw = world.YawTo(spawn, layout.hunterSpawn)
		body := &botBody{agent: ag, spawn: spawn}
		a.bots = append(a.bots, body)
		a.byID[ag.ID] = body
	}

	a.spawnObjectives()
	return a, nil
}

func botID(i int) string {
	return fmt.Sprintf("bot-%d", i+1)
}

// Deps exposes the shared dependencies the loop threads through hooks.
func (a *Arena) Deps() sim.Deps {
	return sim.Deps{
		Logger:  a.cfg.Logger,
		Metrics: a.metrics,
		Clock:   a.cfg.Clock,
		RNG:     a.ctx.RNG,
	}
}

// QueueTuning hands a reloaded config to the simulation goroutine; it takes
// effect at the top of the next frame. Safe to call from any goroutine.
func (a *Arena) QueueTuning(cfg tuning.Config) {
	a.pendingTuning.Store(&cfg)
}

// applyTuning swaps the live tuning values in place so every holder of the
// shared pointer sees them, then rebuilds the systems that captured derived
// state. Zone ring geometry and movement parameters captured at agent
// construction refresh on the next episode reset, not here.
func (a *Arena) applyTuning(cfg tuning.Config) {
	*a.tuning = cfg
	a.ctx.HearingRadius = cfg.Behavior.HearingRadius
	a.orch.Retune()
	arena.TuningApplied(context.Background(), a.pub, a.ctx.Tick, arena.TuningPayload{
		Version: cfg.Version,
	}, nil)
	a.metrics.Add("arena.tuning_applied", 1)
}

// Apply consumes the frame's command batch before Step.
func (a *Arena) Apply(commands []sim.Command) error {
	for i := range commands {
		cmd := &commands[i]
		switch cmd.Type {
		case sim.CommandHunterMove:
			if cmd.HunterMove != nil {
				a.applyHunterMove(*cmd.HunterMove)
			}
		case sim.CommandRecolorConsole:
			if cmd.Recolor != nil {
				a.applyRecolor(*cmd.Recolor)
			}
		case sim.CommandBarrier:
			if cmd.Barrier != nil {
				a.applyBarrier(logging.WorldRef(), *cmd.Barrier)
			}
		case sim.CommandJail:
			if cmd.Jail != nil {
				a.applyJail(*cmd.Jail)
			}
		case sim.CommandEndArena:
			reason := "command"
			if cmd.EndArena != nil && cmd.EndArena.Reason != "" {
				reason = cmd.EndArena.Reason
			}
			a.endEpisode(reason)
		}
	}
	return nil
}

func (a *Arena) applyHunterMove(mv sim.HunterMoveCommand) {
	dir := world.Vec2{X: mv.DX, Y: mv.DZ}
	if dir.LengthSq() > 1 {
		dir = dir.Normalize()
	}
	a.hunter.steer = dir
	a.hunter.active = true
	if mv.Speed > 0 {
		a.hunter.speed = mv.Speed
	}
	// A pure-facing command turns the hunter without moving it.
	if dir.LengthSq() < 1e-9 && mv.Yaw != 0 {
		a.hunter.yaw = world.WrapAngle(mv.Yaw)
	}
}

func (a *Arena) applyRecolor(rc sim.RecolorConsoleCommand) {
	color, ok := consoleColor(rc.Color)
	if !ok {
		a.metrics.Add("arena.commands_ignored", 1)
		return
	}
	if a.registry.Recolor(rc.ConsoleID, color) {
		a.metrics.Add("arena.consoles_recolored", 1)
	}
}

func (a *Arena) applyBarrier(actor logging.EntityRef, bc sim.BarrierCommand) {
	if a.cfg.Kind != world.ArenaStandard {
		a.metrics.Add("arena.commands_ignored", 1)
		return
	}
	if bc.Down {
		if a.barrier {
			a.dropBarrier(actor, bc.ButtonID)
		}
		return
	}
	a.restoreBarrier()
}

func (a *Arena) applyJail(jc sim.JailCommand) {
	body, ok := a.byID[jc.BotID]
	if !ok || !a.layout.hasJail {
		a.metrics.Add("arena.commands_ignored", 1)
		return
	}
	if jc.Jailed {
		if !body.agent.BB.Jailed {
			a.capture(body, logging.WorldRef())
		}
		return
	}
	a.release(body)
}

// consoleColor resolves a wire color name against the assignable palette.
func consoleColor(name string) (world.ConsoleColor, bool) {
	for _, c := range world.Colors() {
		if string(c) == name {
			return c, true
		}
	}
	return world.ColorNone, false
}

// Step advances the arena one frame: pending tuning first, then the hunter,
// then every bot's decision tick, then actuation.
func (a *Arena) Step(tctx sim.TickContext) {
	if cfg := a.pendingTuning.Swap(nil); cfg != nil {
		a.applyTuning(*cfg)
	}

	// The loop owns tick numbering; the context mirrors it for the systems.
	a.ctx.Tick = tctx.Tick
	a.ctx.Delta = tctx.Delta
	a.ctx.Authoritative = tctx.Authoritative
	if !tctx.Authoritative {
		return
	}

	a.stepHunter(tctx.Delta)
	a.orch.Step(context.Background())
	for _, b := range a.bots {
		a.actuate(b, tctx.Delta)
	}
}

// stepHunter integrates the threat actor and publishes its state into the
// frame context before the bots tick. An inactive hunter clears the threat,
// which collapses avoidance zones and lifts the path penalty field.
func (a *Arena) stepHunter(dt float64) {
	if !a.hunter.active {
		a.ctx.ClearThreat()
		return
	}
	h := &a.hunter

	moving := h.steer.LengthSq() > 1e-9
	if moving {
		dir := h.steer.Normalize()
		next := h.pos
		next.X = world.Clamp(next.X+dir.X*h.speed*dt, 0, a.ctx.Width)
		next.Z = world.Clamp(next.Z+dir.Y*h.speed*dt, 0, a.ctx.Height)
		if node, ok := a.mesh.NearestNode(next, nav.Filter{SkipLinks: true}); ok {
			pt := a.mesh.ClosestPoint(node, next)
			if math.Abs(pt.Y-h.pos.Y) <= grid.MaxStepHeight {
				h.pos = pt
			}
		}
		h.yaw = world.ApproachAngle(h.yaw, dir.Angle(), a.tuning.Movement.TurnRate*dt)
	}

	speed := 0.0
	if moving {
		speed = h.speed
	}
	a.ctx.SetThreat(world.ThreatState{Pos: h.pos, Yaw: h.yaw, Speed: speed})

	if !a.layout.hasJail {
		return
	}
	for _, b := range a.bots {
		bb := b.agent.BB
		if bb.Jailed {
			continue
		}
		if h.pos.HorizontalDistance(bb.Pos) <= captureRadius && math.Abs(h.pos.Y-bb.Pos.Y) < 1.0 {
			a.capture(b, logging.HunterRef(hunterID))
		}
	}
}

// actuate applies one bot's motion intent: ground steering with wall and
// ledge clamping, jump launches, and airborne gravity integration.
func (a *Arena) actuate(b *botBody, dt float64) {
	bb := b.agent.BB
	if bb.Jailed {
		bb.LastSpeed = 0
		return
	}
	in := bb.Intent()
	start := bb.Pos

	if bb.Grounded && in.Jump {
		bb.VelY = in.JumpVelocity.Y
		b.airVel = world.Vec2{X: in.JumpVelocity.X, Y: in.JumpVelocity.Z}
		bb.Grounded = false
	} else if bb.Grounded && in.Move.LengthSq() > 1e-9 {
		dir := in.Move.Normalize()
		speed := a.tuning.Movement.Speed
		next := bb.Pos
		next.X = world.Clamp(next.X+dir.X*speed*dt, 0, a.ctx.Width)
		next.Z = world.Clamp(next.Z+dir.Y*speed*dt, 0, a.ctx.Height)
		// The nearest walkable cell clamps the candidate out of blocked
		// space; a floor change beyond step height blocks the move entirely
		// so ledges are only crossed by jumping.
		if node, ok := a.mesh.NearestNode(next, nav.Filter{SkipLinks: true}); ok {
			pt := a.mesh.ClosestPoint(node, next)
			if math.Abs(pt.Y-bb.Pos.Y) <= grid.MaxStepHeight {
				bb.Pos = pt
			}
		}
	}

	if !bb.Grounded {
		bb.VelY -= a.tuning.Movement.Gravity * dt
		bb.Pos.X = world.Clamp(bb.Pos.X+b.airVel.X*dt, 0, a.ctx.Width)
		bb.Pos.Z = world.Clamp(bb.Pos.Z+b.airVel.Y*dt, 0, a.ctx.Height)
		bb.Pos.Y += bb.VelY * dt
		if bb.VelY <= 0 {
			if node, ok := a.mesh.NearestNode(bb.Pos, nav.Filter{SkipLinks: true}); ok {
				floor := a.mesh.ClosestPoint(node, bb.Pos)
				if bb.Pos.Y <= floor.Y {
					bb.Pos = floor
					bb.VelY = 0
					b.airVel = world.Vec2{}
					bb.Grounded = true
				}
			}
		}
	}

	if in.HasYaw {
		bb.Yaw = world.ApproachAngle(bb.Yaw, in.Yaw, a.tuning.Movement.TurnRate*dt)
	}
	if dt > 0 {
		bb.LastSpeed = start.HorizontalDistance(bb.Pos) / dt
	}
}

// handleReached applies the game rule behind an objective arrival. It runs
// inside the orchestrator's per-agent loop, after the decision core's own
// arrival handling.
func (a *Arena) handleReached(agentID string, obj *target.Objective) {
	switch obj.Category {
	case target.Button:
		if a.barrier {
			a.dropBarrier(logging.AgentRef(agentID), obj.ID)
		}
	case target.Console:
		a.claimConsole(agentID, obj)
	case target.Relic:
		a.collectRelic(agentID, obj)
	case target.Jail:
		if a.ctx.JailedAgents > 0 {
			a.freeJailed(agentID)
		}
	}
}

// dropBarrier retires every button, opens the exit door, and tells the
// presser where it is. Teammates learn of the door through gossip.
func (a *Arena) dropBarrier(actor logging.EntityRef, buttonID string) {
	a.barrier = false

	var buttons []string
	a.registry.All(func(obj *target.Objective) bool {
		if obj.Category == target.Button {
			buttons = append(buttons, obj.ID)
		}
		return true
	})
	for _, id := range buttons {
		a.registry.Invalidate(id, target.ReasonBarrierDown)
		a.registry.Remove(id)
	}

	door := a.registry.Spawn(target.Door, a.layout.door)
	a.doorID = door.ID
	if body, ok := a.byID[actor.ID]; ok {
		door.MarkKnown(body.agent.Slot)
	}

	arena.BarrierDropped(context.Background(), a.pub, a.ctx.Tick, actor, arena.BarrierPayload{
		ButtonID: buttonID,
		DoorID:   door.ID,
	}, nil)
	a.metrics.Add("arena.barriers_dropped", 1)
}

// restoreBarrier raises the barrier again: the door disappears and fresh
// buttons spawn, unknown to everyone.
func (a *Arena) restoreBarrier() {
	if a.barrier {
		return
	}
	a.barrier = true
	if a.doorID != "" {
		a.registry.Remove(a.doorID)
		a.doorID = ""
	}
	a.spawnButtons()
}

func (a *Arena) claimConsole(agentID string, obj *target.Objective) {
	arena.ConsoleClaimed(context.Background(), a.pub, a.ctx.Tick, logging.AgentRef(agentID), logging.ObjectiveRef(obj.ID), arena.ConsolePayload{
		ConsoleID: obj.ID,
		Color:     string(obj.Color),
	}, nil)
	a.metrics.Add("arena.consoles_claimed", 1)

	a.registry.Invalidate(obj.ID, target.ReasonConsumed)
	a.registry.Remove(obj.ID)

	if a.cfg.Kind == world.ArenaConsole && a.countValid(target.Console) == 0 {
		a.endEpisode("consoles_cleared")
	}
}

func (a *Arena) collectRelic(agentID string, obj *target.Objective) {
	a.registry.Invalidate(obj.ID, target.ReasonConsumed)
	a.registry.Remove(obj.ID)

	remaining := a.countValid(target.Relic)
	arena.RelicCollected(context.Background(), a.pub, a.ctx.Tick, logging.AgentRef(agentID), logging.ObjectiveRef(obj.ID), arena.RelicPayload{
		RelicID:   obj.ID,
		Remaining: remaining,
	}, nil)
	a.metrics.Add("arena.relics_collected", 1)

	if remaining == 0 {
		a.endEpisode("relics_cleared")
	}
}

func (a *Arena) countValid(category target.Category) int {
	n := 0
	a.registry.All(func(obj *target.Objective) bool {
		if obj.Category == category && obj.Valid() {
			n++
		}
		return true
	})
	return n
}

// capture jails a bot at the jail point. Commitments survive; the reselect
// signals sort them out if the objective world changes while it waits.
func (a *Arena) capture(b *botBody, actor logging.EntityRef) {
	bb := b.agent.BB
	bb.Jailed = true
	bb.Pos = a.layout.jail
	bb.VelY = 0
	bb.Grounded = true
	b.airVel = world.Vec2{}
	bb.ClearDetour()
	bb.ClearPath()
	bb.ClearIntent()

	a.ctx.JailedAgents++
	arena.BotJailed(context.Background(), a.pub, a.ctx.Tick, actor, arena.JailPayload{
		BotID:  b.agent.ID,
		Jailed: a.ctx.JailedAgents,
	}, nil)
	a.metrics.Add("arena.captures", 1)
	a.metrics.Store("arena.jailed", uint64(a.ctx.JailedAgents))
}

// release frees a single bot in place.
func (a *Arena) release(b *botBody) {
	bb := b.agent.BB
	if !bb.Jailed {
		return
	}
	bb.Jailed = false
	if a.ctx.JailedAgents > 0 {
		a.ctx.JailedAgents--
	}
	arena.BotsFreed(context.Background(), a.pub, a.ctx.Tick, logging.WorldRef(), arena.FreedPayload{
		BotIDs: []string{b.agent.ID},
	}, nil)
	a.metrics.Store("arena.jailed", uint64(a.ctx.JailedAgents))
}

// freeJailed releases every jailed bot at once. The orchestrator's jail watch
// retires the rescuers' jail objectives on the same frame, after the agent
// loop finishes.
func (a *Arena) freeJailed(rescuer string) {
	var freed []string
	for _, b := range a.bots {
		bb := b.agent.BB
		if !bb.Jailed {
			continue
		}
		bb.Jailed = false
		freed = append(freed, b.agent.ID)
	}
	if len(freed) == 0 {
		return
	}
	a.ctx.JailedAgents = 0
	arena.BotsFreed(context.Background(), a.pub, a.ctx.Tick, logging.AgentRef(rescuer), arena.FreedPayload{
		BotIDs: freed,
		By:     rescuer,
	}, nil)
	a.metrics.Add("arena.rescues", 1)
	a.metrics.Store("arena.jailed", uint64(0))
}

// endEpisode resets the arena for a fresh round: decision state, objectives,
// and bodies. The hunter keeps its position and steering.
func (a *Arena) endEpisode(reason string) {
	arena.EpisodeEnded(context.Background(), a.pub, a.ctx.Tick, arena.EpisodePayload{
		Reason: reason,
	}, nil)

	a.orch.ResetEpisode()
	a.barrier = true
	a.doorID = ""
	for _, b := range a.bots {
		bb := b.agent.BB
		bb.Pos = b.spawn
		bb.Yaw = world.YawTo(b.spawn, a.layout.hunterSpawn)
		bb.VelY = 0
		bb.Grounded = true
		bb.Jailed = false
		b.airVel = world.Vec2{}
	}
	a.ctx.JailedAgents = 0
	a.spawnObjectives()

	a.episode++
	a.metrics.Add("arena.episodes", 1)
}

// spawnObjectives populates the registry for the arena kind. Bots discover
// objectives by proximity and gossip; only the jail, a fixed landmark, is
// known to everyone from the start.
func (a *Arena) spawnObjectives() {
	switch a.cfg.Kind {
	case world.ArenaRelic:
		for _, p := range a.layout.relics {
			a.registry.Spawn(target.Relic, p)
		}
		a.spawnJail()
	case world.ArenaConsole:
		a.spawnConsoles()
	default:
		a.spawnConsoles()
		a.spawnButtons()
		a.spawnJail()
	}
}

// spawnConsoles places one console per color in use by the roster.
func (a *Arena) spawnConsoles() {
	used := make(map[world.ConsoleColor]bool)
	for _, b := range a.bots {
		if c := b.agent.Color; c != world.ColorNone {
			used[c] = true
		}
	}
	for i, c := range world.Colors() {
		if !used[c] || i >= len(a.layout.consoles) {
			continue
		}
		a.registry.SpawnConsole(a.layout.consoles[i], c)
	}
}

func (a *Arena) spawnButtons() {
	for _, p := range a.layout.buttons {
		a.registry.Spawn(target.Button, p)
	}
}

func (a *Arena) spawnJail() {
	if !a.layout.hasJail {
		return
	}
	obj := a.registry.Spawn(target.Jail, a.layout.jail)
	for _, b := range a.bots {
		obj.MarkKnown(b.agent.Slot)
	}
}

// Snapshot assembles the diagnostic view of the arena. Ephemeral patrol
// points are omitted; they churn every few seconds and carry no diagnostic
// value.
func (a *Arena) Snapshot() sim.Snapshot {
	snap := sim.Snapshot{
		Tick:         a.ctx.Tick,
		Arena:        string(a.cfg.Kind),
		JailedAgents: a.ctx.JailedAgents,
	}

	for _, b := range a.bots {
		bb := b.agent.BB
		state := sim.BotState{
			ID:        b.agent.ID,
			Slot:      b.agent.Slot,
			Color:     string(b.agent.Color),
			X:         bb.Pos.X,
			Y:         bb.Pos.Y,
			Z:         bb.Pos.Z,
			Yaw:       bb.Yaw,
			Grounded:  bb.Grounded,
			Jailed:    bb.Jailed,
			Branch:    b.agent.Branch(),
			ZoneScale: b.agent.Zone.Scale(),
		}
		if obj := b.agent.Committed(); obj != nil {
			state.Objective = obj.ID
		}
		if _, has := bb.Detour(); has {
			state.Detour = true
		}
		snap.Bots = append(snap.Bots, state)
	}

	if a.hunter.active {
		snap.Hunter = &sim.HunterState{
			X:     a.hunter.pos.X,
			Y:     a.hunter.pos.Y,
			Z:     a.hunter.pos.Z,
			Yaw:   a.hunter.yaw,
			Speed: a.hunter.speed,
		}
	}

	a.registry.All(func(obj *target.Objective) bool {
		if obj.Category == target.RandomPosition {
			return true
		}
		snap.Objectives = append(snap.Objectives, sim.ObjectiveState{
			ID:       obj.ID,
			Category: string(obj.Category),
			Color:    string(obj.Color),
			X:        obj.Pos.X,
			Y:        obj.Pos.Y,
			Z:        obj.Pos.Z,
			Valid:    obj.Valid(),
		})
		return true
	})

	return snap
}

// Bounds reports the walkable arena extents.
func (a *Arena) Bounds() (width, height float64) {
	return a.ctx.Width, a.ctx.Height
}

// Close releases the planner workers.
func (a *Arena) Close() {
	a.planner.Close()
}
