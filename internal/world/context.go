package world

import "math/rand"

// ThreatState is the per-frame snapshot of the hunter used by avoidance and
// cost shaping. It is copied into the frame context before bots tick so every
// reader inside the frame sees the same values.
type ThreatState struct {
	Pos   Vec3
	Yaw   float64
	Speed float64
}

// Forward returns the hunter's planar facing direction.
func (t ThreatState) Forward() Vec2 { return YawForward(t.Yaw) }

// Context carries the shared frame state every decision system reads.
// Exactly one instance exists per arena; the simulation loop mutates it at
// the top of each frame and the systems treat it as read-only afterwards.
type Context struct {
	Kind ArenaKind

	// Tick and Delta describe the frame being evaluated.
	Tick  uint64
	Delta float64

	// Authoritative is false on observer instances, which must not run
	// decision logic.
	Authoritative bool

	// RNG is the seeded source for every probabilistic decision in the
	// arena. Deterministic replays depend on nothing else drawing from it.
	RNG *rand.Rand

	Threat    ThreatState
	HasThreat bool

	// JailedAgents scales the jail-break urgency gate.
	JailedAgents int

	// HearingRadius bounds knowledge propagation between nearby agents.
	HearingRadius float64

	// Width and Height are the walkable arena extents, for patrol points.
	Width  float64
	Height float64
}

// NewContext seeds a frame context for an arena kind.
func NewContext(kind ArenaKind, seed int64) *Context {
	return &Context{
		Kind:          kind,
		Authoritative: true,
		RNG:           rand.New(rand.NewSource(seed)),
		HearingRadius: 12,
	}
}

// SetBounds records the walkable arena extents.
func (c *Context) SetBounds(width, height float64) {
	if c == nil {
		return
	}
	c.Width = width
	c.Height = height
}

// BeginFrame advances the context to the next tick.
func (c *Context) BeginFrame(delta float64) {
	if c == nil {
		return
	}
	c.Tick++
	c.Delta = delta
}

// SetThreat records the hunter snapshot for the current frame.
func (c *Context) SetThreat(state ThreatState) {
	if c == nil {
		return
	}
	c.Threat = state
	c.HasThreat = true
}

// ClearThreat removes the hunter from the frame, collapsing avoidance.
func (c *Context) ClearThreat() {
	if c == nil {
		return
	}
	c.Threat = ThreatState{}
	c.HasThreat = false
}
