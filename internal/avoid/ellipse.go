// Package avoid keeps bots out of the hunter's reach. Three nested ellipses
// ride on the hunter's position and facing; the engine turns ring tests into
// detour waypoints and reselection requests, and a per-agent zone escalates
// by shrinking the rings as exposure time accumulates.
package avoid

import (
	"math"

	"hide-and-hunt/server/internal/world"
)

// Ellipse is a rotated ellipse on the ground plane. A is the semi-axis along
// the facing direction, B the semi-axis across it. A non-positive semi-axis
// is a collapsed ellipse that contains nothing.
type Ellipse struct {
	Center world.Vec2
	Yaw    float64
	A      float64
	B      float64
}

// Collapsed reports whether the ellipse has no interior.
func (e Ellipse) Collapsed() bool {
	return e.A <= 0 || e.B <= 0
}

// toLocal maps a world point into the ellipse frame: origin at the center,
// x along the facing.
func (e Ellipse) toLocal(p world.Vec2) world.Vec2 {
	return p.Sub(e.Center).Rotate(-e.Yaw)
}

// Contains reports whether the point lies inside or on the boundary.
func (e Ellipse) Contains(p world.Vec2) bool {
	if e.Collapsed() {
		return false
	}
	local := e.toLocal(p)
	nx := local.X / e.A
	ny := local.Y / e.B
	return nx*nx+ny*ny <= 1
}

// AngleOf returns the parametric angle of the ray from the center through p,
// in [0, 2*pi). The parametric angle is what PointAt and the arc table use;
// it equals the geometric angle only on a circle.
func (e Ellipse) AngleOf(p world.Vec2) float64 {
	if e.Collapsed() {
		return 0
	}
	local := e.toLocal(p)
	angle := math.Atan2(local.Y/e.B, local.X/e.A)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// PointAt returns the boundary point at the parametric angle.
func (e Ellipse) PointAt(angle float64) world.Vec2 {
	sin, cos := math.Sincos(angle)
	local := world.Vec2{X: e.A * cos, Y: e.B * sin}
	return local.Rotate(e.Yaw).Add(e.Center)
}

// SegmentIntersects reports whether the segment pq touches the interior.
// Endpoints inside count as an intersection.
func (e Ellipse) SegmentIntersects(p, q world.Vec2) bool {
	if e.Collapsed() {
		return false
	}
	// Map to the unit-circle frame and intersect the segment with it.
	lp := e.toLocal(p)
	lq := e.toLocal(q)
	u := world.Vec2{X: lp.X / e.A, Y: lp.Y / e.B}
	v := world.Vec2{X: lq.X / e.A, Y: lq.Y / e.B}
	d := v.Sub(u)
	a := d.Dot(d)
	if a < 1e-12 {
		return u.LengthSq() <= 1
	}
	b := 2 * u.Dot(d)
	c := u.LengthSq() - 1
	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	sqrt := math.Sqrt(disc)
	t1 := (-b - sqrt) / (2 * a)
	t2 := (-b + sqrt) / (2 * a)
	return t1 <= 1 && t2 >= 0
}

// Scaled returns the ellipse with both semi-axes multiplied by s.
func (e Ellipse) Scaled(s float64) Ellipse {
	return Ellipse{Center: e.Center, Yaw: e.Yaw, A: e.A * s, B: e.B * s}
}
