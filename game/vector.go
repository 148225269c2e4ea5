package game

import "math"

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// WorldUp is the global up axis used when building orientation bases.
var WorldUp = Vec3{0, 1, 0}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the right-handed cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector in the direction of v.
// The zero vector normalizes to itself.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Distance calculates distance between two points
func Distance(a, b Vec3) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Lerp interpolates between a and b by t in [0,1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// RotateAround rotates v around the unit axis by angle radians
// using Rodrigues' rotation formula.
func RotateAround(v, axis Vec3, angle float64) Vec3 {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	term1 := v.Scale(cos)
	term2 := axis.Cross(v).Scale(sin)
	term3 := axis.Scale(axis.Dot(v) * (1 - cos))
	return term1.Add(term2).Add(term3)
}

// RotateToward turns the unit direction current toward the unit direction
// target by at most maxAngle radians. Passing a maxAngle at or above the
// full separation snaps directly onto target.
func RotateToward(current, target Vec3, maxAngle float64) Vec3 {
	cur := current.Normalize()
	tgt := target.Normalize()
	if cur.IsZero() || tgt.IsZero() {
		return cur
	}

	cos := Clamp(cur.Dot(tgt), -1, 1)
	angle := math.Acos(cos)
	if angle <= maxAngle {
		return tgt
	}

	axis := cur.Cross(tgt)
	if axis.Length() < 1e-9 {
		// Directly opposed; pick any perpendicular axis to turn around.
		axis = cur.Cross(WorldUp)
		if axis.Length() < 1e-9 {
			axis = cur.Cross(Vec3{1, 0, 0})
		}
	}
	return RotateAround(cur, axis.Normalize(), maxAngle).Normalize()
}

// Basis derives a right-handed orientation frame from a forward direction.
// Up degenerates onto the X axis when forward is parallel to WorldUp.
func Basis(forward Vec3) (fwd, up, right Vec3) {
	fwd = forward.Normalize()
	if fwd.IsZero() {
		fwd = Vec3{0, 0, 1}
	}
	up = WorldUp
	if math.Abs(fwd.Dot(up)) > 0.999 {
		up = Vec3{1, 0, 0}
	}
	right = fwd.Cross(up).Normalize()
	up = right.Cross(fwd).Normalize()
	return fwd, up, right
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to the unit interval.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
