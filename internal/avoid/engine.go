package avoid

import (
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

// Input is one agent's view for an avoidance evaluation.
type Input struct {
	Pos   world.Vec3
	Node  nav.NodeRef
	Speed float64
	Delta float64

	Threat    world.ThreatState
	HasThreat bool

	// PathEnd is the endpoint of the committed path, when one exists.
	PathEnd    world.Vec3
	HasPathEnd bool

	// Target is the committed objective position, when one exists.
	Target    world.Vec3
	HasTarget bool
}

// Decision is what one evaluation asks the orchestrator to do.
type Decision struct {
	// RequestReselect is set when the committed path ends inside the
	// warning ring; the objective should be asked to reselect.
	RequestReselect bool

	// Detour, when HasDetour is set, is the waypoint that carries the agent
	// around the danger ring.
	Detour    world.Vec3
	HasDetour bool

	// ScaleChanged reports a ring-scale transition this frame; Scale is the
	// new value.
	ScaleChanged bool
	Scale        float64
}

// Engine evaluates avoidance for agents against a shared mesh. The engine
// itself is stateless; per-agent state lives in each agent's Zone.
type Engine struct {
	mesh nav.Mesh
	cfg  tuning.AvoidanceConfig
}

// NewEngine builds an engine probing line of sight against mesh.
func NewEngine(mesh nav.Mesh, cfg tuning.AvoidanceConfig) *Engine {
	return &Engine{mesh: mesh, cfg: cfg}
}

// Evaluate advances the zone's escalation clock and produces this frame's
// avoidance decision. Runs on the simulation goroutine.
func (e *Engine) Evaluate(z *Zone, in Input) Decision {
	var out Decision
	if in.HasThreat {
		z.Anchor(in.Threat)
	} else {
		z.ClearThreat()
	}

	warning := z.EllipseFor(RingWarning)
	inside := in.HasThreat && warning.Contains(in.Pos.Flat())
	out.ScaleChanged = z.Accumulate(inside, in.Delta)
	out.Scale = z.Scale()

	if !in.HasThreat || z.Collapsed() {
		return out
	}

	if in.HasPathEnd && warning.Contains(in.PathEnd.Flat()) {
		out.RequestReselect = true
	}

	danger := z.EllipseFor(RingDanger)
	detour := z.EllipseFor(RingDetour)
	pos := in.Pos.Flat()

	switch {
	case danger.Contains(pos):
		// Slide along the detour ring from the agent's own angle. The step
		// is one tick of travel, padded because chords undershoot the arc.
		slide := in.Speed * in.Delta * e.cfg.StepPadding
		out.Detour = e.probePoint(z, in, detour, detour.AngleOf(pos), slide)
		out.HasDetour = true
	case in.HasTarget && danger.SegmentIntersects(pos, in.Target.Flat()):
		// Not inside yet, but the straight line to the objective would
		// cross the danger ring. Lead the agent around it by a full
		// second of travel.
		lead := in.Speed * e.cfg.StepPadding
		out.Detour = e.probePoint(z, in, detour, detour.AngleOf(pos), lead)
		out.HasDetour = true
	}
	return out
}

// probePoint steps the arc table to a candidate detour point and probes the
// line toward it. A blocker inside the probe range flips the travel
// direction and takes the opposite candidate.
func (e *Engine) probePoint(z *Zone, in Input, ring Ellipse, startAngle, arc float64) world.Vec3 {
	candidate := world.FromFlat(e.stepPoint(z, ring, startAngle, arc), in.Pos.Y)
	if e.mesh == nil {
		return candidate
	}
	hit, dist := e.mesh.LineOfSight(in.Pos, candidate, in.Node)
	if hit && dist <= e.cfg.ProbeRange {
		z.FlipDirection()
		candidate = world.FromFlat(e.stepPoint(z, ring, startAngle, arc), in.Pos.Y)
	}
	return candidate
}

func (e *Engine) stepPoint(z *Zone, ring Ellipse, startAngle, arc float64) world.Vec2 {
	angle := z.Table().Step(startAngle, arc, z.Clockwise())
	return ring.PointAt(angle)
}
