package avoid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hide-and-hunt/server/internal/world"
)

func TestEllipseContains(t *testing.T) {
	e := Ellipse{Center: world.Vec2{X: 10, Y: 5}, Yaw: 0, A: 4, B: 2}

	assert.True(t, e.Contains(world.Vec2{X: 10, Y: 5}), "center")
	assert.True(t, e.Contains(world.Vec2{X: 13.9, Y: 5}), "inside along major axis")
	assert.False(t, e.Contains(world.Vec2{X: 14.1, Y: 5}), "beyond major axis")
	assert.True(t, e.Contains(world.Vec2{X: 10, Y: 6.9}), "inside along minor axis")
	assert.False(t, e.Contains(world.Vec2{X: 10, Y: 7.1}), "beyond minor axis")
}

func TestEllipseContainsRotated(t *testing.T) {
	// Quarter turn: the long axis now runs along world Y.
	e := Ellipse{Center: world.Vec2{}, Yaw: math.Pi / 2, A: 4, B: 2}

	assert.True(t, e.Contains(world.Vec2{X: 0, Y: 3.9}))
	assert.False(t, e.Contains(world.Vec2{X: 3.9, Y: 0}))
	assert.True(t, e.Contains(world.Vec2{X: 1.9, Y: 0}))
}

func TestEllipseCollapsed(t *testing.T) {
	e := Ellipse{A: 0, B: 2}
	assert.True(t, e.Collapsed())
	assert.False(t, e.Contains(world.Vec2{}), "collapsed ellipse contains nothing")
	assert.False(t, e.SegmentIntersects(world.Vec2{X: -1}, world.Vec2{X: 1}))
}

func TestEllipsePointAtAngleOfRoundTrip(t *testing.T) {
	e := Ellipse{Center: world.Vec2{X: 3, Y: -2}, Yaw: 0.7, A: 5, B: 2.5}

	for i := 0; i < 16; i++ {
		angle := float64(i) * math.Pi / 8
		p := e.PointAt(angle)
		got := e.AngleOf(p)
		diff := math.Abs(math.Mod(got-angle+3*math.Pi, 2*math.Pi) - math.Pi)
		assert.InDeltaf(t, 0, diff, 1e-9, "angle %d round trip", i)

		// Boundary points satisfy the implicit equation.
		local := p.Sub(e.Center).Rotate(-e.Yaw)
		nx := local.X / e.A
		ny := local.Y / e.B
		assert.InDelta(t, 1, nx*nx+ny*ny, 1e-9)
	}
}

func TestEllipseSegmentIntersects(t *testing.T) {
	e := Ellipse{Center: world.Vec2{}, Yaw: 0, A: 4, B: 2}

	cases := []struct {
		name string
		p, q world.Vec2
		want bool
	}{
		{"through the center", world.Vec2{X: -10}, world.Vec2{X: 10}, true},
		{"clear miss above", world.Vec2{X: -10, Y: 3}, world.Vec2{X: 10, Y: 3}, false},
		{"stops short", world.Vec2{X: -10}, world.Vec2{X: -5}, false},
		{"starts inside", world.Vec2{X: 1}, world.Vec2{X: 10}, true},
		{"entirely inside", world.Vec2{X: -1}, world.Vec2{X: 1}, true},
		{"grazes the side", world.Vec2{X: -10, Y: 1.9}, world.Vec2{X: 10, Y: 1.9}, true},
		{"degenerate point outside", world.Vec2{X: 5}, world.Vec2{X: 5}, false},
		{"degenerate point inside", world.Vec2{X: 1, Y: 0.5}, world.Vec2{X: 1, Y: 0.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.SegmentIntersects(tc.p, tc.q))
		})
	}
}

func TestEllipseSegmentIntersectsRotated(t *testing.T) {
	// Same ellipse turned a quarter: a horizontal ray at Y=3 now crosses it.
	e := Ellipse{Center: world.Vec2{}, Yaw: math.Pi / 2, A: 4, B: 2}
	require.True(t, e.SegmentIntersects(world.Vec2{X: -10, Y: 3}, world.Vec2{X: 10, Y: 3}))
	require.False(t, e.SegmentIntersects(world.Vec2{X: 3, Y: -10}, world.Vec2{X: 3, Y: 10}))
}

func TestEllipseScaled(t *testing.T) {
	e := Ellipse{Center: world.Vec2{X: 1, Y: 1}, Yaw: 0.3, A: 4, B: 2}
	s := e.Scaled(0.5)
	assert.Equal(t, 2.0, s.A)
	assert.Equal(t, 1.0, s.B)
	assert.Equal(t, e.Center, s.Center)
	assert.True(t, e.Scaled(0).Collapsed())
}
