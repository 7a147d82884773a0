package world

import "math"

// Vec2 is a point or direction on the horizontal (X,Z) plane.
type Vec2 struct {
	X float64
	Y float64
}

// Vec3 is a world-space position. Y is up.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec2) LengthSq() float64 { return v.X*v.X + v.Y*v.Y }

func (v Vec2) Distance(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

// Angle returns the direction of v in radians, atan2 convention.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Normalize returns a unit vector, or the zero vector when v is degenerate.
func (v Vec2) Normalize() Vec2 {
	length := v.Length()
	if length < 1e-9 {
		return Vec2{}
	}
	return Vec2{v.X / length, v.Y / length}
}

// Rotate rotates v counter-clockwise by the given angle in radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// Flat projects the position onto the horizontal plane.
func (v Vec3) Flat() Vec2 { return Vec2{v.X, v.Z} }

// WithY returns a copy of v with its height replaced.
func (v Vec3) WithY(y float64) Vec3 { return Vec3{v.X, y, v.Z} }

// HorizontalDistance ignores the height difference between the points.
func (v Vec3) HorizontalDistance(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// FromFlat lifts a planar point back into world space at the given height.
func FromFlat(p Vec2, y float64) Vec3 { return Vec3{p.X, y, p.Y} }

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// YawTo returns the heading from one position toward another on the
// horizontal plane.
func YawTo(from, to Vec3) float64 {
	return math.Atan2(to.Z-from.Z, to.X-from.X)
}

// YawForward returns the unit direction for a heading.
func YawForward(yaw float64) Vec2 {
	sin, cos := math.Sincos(yaw)
	return Vec2{cos, sin}
}

// WrapAngle maps an angle into (-pi, pi].
func WrapAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// ApproachAngle moves current toward target by at most maxDelta radians,
// taking the shortest way around.
func ApproachAngle(current, target, maxDelta float64) float64 {
	diff := WrapAngle(target - current)
	if math.Abs(diff) <= maxDelta {
		return target
	}
	if diff > 0 {
		return WrapAngle(current + maxDelta)
	}
	return WrapAngle(current - maxDelta)
}
