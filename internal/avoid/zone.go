package avoid

import (
	"math"
	"sync/atomic"

	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

// Ring identifies one of the three nested ellipses.
type Ring int

const (
	// RingDanger is the inner ellipse the bot must never stand in.
	RingDanger Ring = iota
	// RingDetour is the middle ellipse detour waypoints are placed on.
	RingDetour
	// RingWarning is the outer early-warning ellipse.
	RingWarning
)

// Zone is one agent's avoidance state: the ring scale escalation clock, the
// detour travel direction, and the published arc table. All methods except
// the background table build run on the simulation goroutine.
type Zone struct {
	cfg       tuning.AvoidanceConfig
	threat    world.ThreatState
	hasThreat bool

	exposure float64
	away     float64
	scale    float64

	clockwise bool

	// scaleBits mirrors scale for the builder goroutine.
	scaleBits atomic.Uint64
	building  atomic.Bool
	table     atomic.Pointer[ArcTable]
}

// NewZone builds a zone at full ring size with its table ready.
func NewZone(cfg tuning.AvoidanceConfig) *Zone {
	z := &Zone{cfg: cfg, scale: 1}
	z.scaleBits.Store(math.Float64bits(1))
	z.table.Store(BuildArcTable(cfg.Detour.Forward, cfg.Detour.Side, cfg.ArcSamples))
	return z
}

// Anchor pins the rings to the hunter's current position and facing.
func (z *Zone) Anchor(threat world.ThreatState) {
	z.threat = threat
	z.hasThreat = true
}

// ClearThreat detaches the rings; every ring test reports outside until the
// next Anchor.
func (z *Zone) ClearThreat() {
	z.hasThreat = false
}

// EllipseFor returns the named ring at the current scale. Without a threat
// anchor, or after collapse, the ring is collapsed.
func (z *Zone) EllipseFor(ring Ring) Ellipse {
	if !z.hasThreat {
		return Ellipse{}
	}
	var axes tuning.RingConfig
	switch ring {
	case RingDanger:
		axes = z.cfg.Danger
	case RingDetour:
		axes = z.cfg.Detour
	default:
		axes = z.cfg.Warning
	}
	return Ellipse{
		Center: z.threat.Pos.Flat(),
		Yaw:    z.threat.Yaw,
		A:      axes.Forward * z.scale,
		B:      axes.Side * z.scale,
	}
}

// Scale reports the current ring scale in [0, 1].
func (z *Zone) Scale() float64 {
	return z.scale
}

// Collapsed reports whether escalation has disabled avoidance.
func (z *Zone) Collapsed() bool {
	return z.scale <= 0
}

// Exposure reports the accumulated seconds inside the warning ring.
func (z *Zone) Exposure() float64 {
	return z.exposure
}

// Clockwise reports the current detour travel direction.
func (z *Zone) Clockwise() bool {
	return z.clockwise
}

// FlipDirection reverses the detour travel direction.
func (z *Zone) FlipDirection() {
	z.clockwise = !z.clockwise
}

// Reset restores the zone for a fresh episode: full rings, cleared clocks,
// no threat anchor.
func (z *Zone) Reset() {
	z.hasThreat = false
	z.exposure = 0
	z.away = 0
	z.clockwise = false
	z.applyScale(1)
}

// Accumulate advances the escalation clock by dt with the agent inside or
// outside the warning ring, and reports whether the ring scale changed.
// Lingering shrinks the rings in configured stages down to collapse; staying
// away long enough restores them.
func (z *Zone) Accumulate(insideWarning bool, dt float64) bool {
	if insideWarning {
		z.exposure += dt
		z.away = 0
	} else {
		z.away += dt
		if z.away >= z.cfg.Shrink.AwayReset && (z.exposure > 0 || z.scale != 1) {
			z.exposure = 0
			z.away = 0
			return z.applyScale(1)
		}
	}
	shrink := z.cfg.Shrink
	switch {
	case z.exposure >= shrink.CollapseAfter:
		return z.applyScale(0)
	case z.exposure >= shrink.HardAfter:
		return z.applyScale(shrink.HardScale)
	case z.exposure >= shrink.SoftAfter:
		return z.applyScale(shrink.SoftScale)
	}
	return false
}

func (z *Zone) applyScale(scale float64) bool {
	if z.scale == scale {
		return false
	}
	z.scale = scale
	z.scaleBits.Store(math.Float64bits(scale))
	z.rebuildTable()
	return true
}

// Table returns the current arc table. The pointer stays valid even while a
// replacement is being built.
func (z *Zone) Table() *ArcTable {
	return z.table.Load()
}

// rebuildTable rebuilds the arc table off the simulation goroutine and
// publishes it whole. If the scale moves again mid-build the builder goes
// around once more, so the published table always matches the latest scale.
func (z *Zone) rebuildTable() {
	if !z.building.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer z.building.Store(false)
		for {
			scale := math.Float64frombits(z.scaleBits.Load())
			table := BuildArcTable(
				z.cfg.Detour.Forward*scale,
				z.cfg.Detour.Side*scale,
				z.cfg.ArcSamples,
			)
			z.table.Store(table)
			if math.Float64frombits(z.scaleBits.Load()) == scale {
				return
			}
		}
	}()
}
