package avoid

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

func testAvoidance() tuning.AvoidanceConfig {
	return tuning.Default().Avoidance
}

func TestZoneShrinkStages(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)
	require.Equal(t, 1.0, z.Scale())

	// Linger inside the warning ring. Stages fire as exposure crosses each
	// threshold, each exactly once.
	const dt = 0.5
	transitions := 0
	for elapsed := 0.0; elapsed < cfg.Shrink.CollapseAfter+1; elapsed += dt {
		if z.Accumulate(true, dt) {
			transitions++
		}
	}
	assert.Equal(t, 3, transitions, "soft, hard, collapse")
	assert.True(t, z.Collapsed())
	assert.Equal(t, 0.0, z.Scale())
}

func TestZoneShrinkScalesRings(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)
	z.Anchor(world.ThreatState{Pos: world.Vec3{}, Yaw: 0})

	full := z.EllipseFor(RingDanger)
	assert.Equal(t, cfg.Danger.Forward, full.A)

	changed := z.Accumulate(true, cfg.Shrink.SoftAfter)
	require.True(t, changed)
	soft := z.EllipseFor(RingDanger)
	assert.InDelta(t, cfg.Danger.Forward*cfg.Shrink.SoftScale, soft.A, 1e-9)
	assert.InDelta(t, cfg.Danger.Side*cfg.Shrink.SoftScale, soft.B, 1e-9)
}

func TestZoneAwayReset(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)

	require.True(t, z.Accumulate(true, cfg.Shrink.SoftAfter))
	require.Equal(t, cfg.Shrink.SoftScale, z.Scale())

	// Drifting out briefly does not reset.
	assert.False(t, z.Accumulate(false, cfg.Shrink.AwayReset/2))
	assert.Equal(t, cfg.Shrink.SoftScale, z.Scale())

	// Staying away long enough restores full size and zeroes the clock.
	assert.True(t, z.Accumulate(false, cfg.Shrink.AwayReset))
	assert.Equal(t, 1.0, z.Scale())
	assert.Equal(t, 0.0, z.Exposure())
}

func TestZoneReturnVisitRestartsClock(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)

	z.Accumulate(true, cfg.Shrink.SoftAfter)
	z.Accumulate(false, cfg.Shrink.AwayReset)
	require.Equal(t, 1.0, z.Scale())

	// A fresh visit needs the full soft threshold again.
	assert.False(t, z.Accumulate(true, cfg.Shrink.SoftAfter/2))
	assert.Equal(t, 1.0, z.Scale())
}

func TestZoneTableRepublishedOnScaleChange(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)

	before := z.Table()
	require.NotNil(t, before)
	fullLap := before.Circumference()

	require.True(t, z.Accumulate(true, cfg.Shrink.SoftAfter))

	require.Eventually(t, func() bool {
		return z.Table() != before
	}, time.Second, time.Millisecond, "background rebuild must publish a new table")

	scaled := z.Table().Circumference()
	assert.InEpsilon(t, fullLap*cfg.Shrink.SoftScale, scaled, 1e-6,
		"chord lengths scale linearly with the rings")
}

func TestZoneAnchorOrientsRings(t *testing.T) {
	cfg := testAvoidance()
	z := NewZone(cfg)
	z.Anchor(world.ThreatState{Pos: world.Vec3{X: 20, Z: 10}, Yaw: math.Pi / 2})

	danger := z.EllipseFor(RingDanger)
	assert.Equal(t, world.Vec2{X: 20, Y: 10}, danger.Center)

	// Facing +Z: the long axis runs along Z now.
	ahead := world.Vec2{X: 20, Y: 10 + cfg.Danger.Forward*0.9}
	beside := world.Vec2{X: 20 + cfg.Danger.Forward*0.9, Y: 10}
	assert.True(t, danger.Contains(ahead))
	assert.False(t, danger.Contains(beside))
}

func TestZoneWithoutThreat(t *testing.T) {
	z := NewZone(testAvoidance())
	assert.True(t, z.EllipseFor(RingWarning).Collapsed())

	z.Anchor(world.ThreatState{Pos: world.Vec3{X: 1}})
	assert.False(t, z.EllipseFor(RingWarning).Collapsed())

	z.ClearThreat()
	assert.True(t, z.EllipseFor(RingWarning).Collapsed())
}

func TestZoneDirectionFlip(t *testing.T) {
	z := NewZone(testAvoidance())
	assert.False(t, z.Clockwise())
	z.FlipDirection()
	assert.True(t, z.Clockwise())
	z.FlipDirection()
	assert.False(t, z.Clockwise())
}
