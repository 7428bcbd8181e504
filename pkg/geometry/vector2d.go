package geometry

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used by Eq and by the zero-length checks.
const Epsilon = 1e-9

// Vector2D is a point or displacement in world space.
// Fields are exported so callers can use literals: Vector2D{X: 1, Y: 2}.
type Vector2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zero is the null vector.
var Zero = Vector2D{}

// NewVector creates a new Vector2D.
func NewVector(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// NewVectorPolar builds a vector of the given length pointing at theta radians.
// Components smaller than Epsilon are snapped to zero.
func NewVectorPolar(radius, theta float64) Vector2D {
	x := radius * math.Cos(theta)
	y := radius * math.Sin(theta)
	if math.Abs(x) < Epsilon {
		x = 0
	}
	if math.Abs(y) < Epsilon {
		y = 0
	}
	return Vector2D{X: x, Y: y}
}

// String implements fmt.Stringer.
func (v Vector2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

// Add returns v + other.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{v.X - other.X, v.Y - other.Y}
}

// Mul scales v by scalar.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{v.X * scalar, v.Y * scalar}
}

// LenSqr returns the squared length. Prefer it for range comparisons.
func (v Vector2D) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Len returns the Euclidean length.
func (v Vector2D) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsZero reports whether v is too short to carry a direction.
func (v Vector2D) IsZero() bool {
	return v.Len() < Epsilon
}

// Normalize returns the unit vector of v, or Zero when v has no direction.
func (v Vector2D) Normalize() Vector2D {
	l := v.Len()
	if l < Epsilon {
		return Zero
	}
	return v.Mul(1 / l)
}

// WithLen rescales v to length l keeping its direction.
// ok is false when v has no direction; the result is then Zero.
func (v Vector2D) WithLen(l float64) (res Vector2D, ok bool) {
	cur := v.Len()
	if cur < Epsilon {
		return Zero, false
	}
	return v.Mul(l / cur), true
}

// DistanceTo returns the distance between the two points.
func (v Vector2D) DistanceTo(other Vector2D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo returns the squared distance between the two points.
func (v Vector2D) DistanceSquaredTo(other Vector2D) float64 {
	return v.Sub(other).LenSqr()
}

// Angle returns the heading of v in radians, in [-Pi, Pi].
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Lerp moves from v toward target by fraction t.
func (v Vector2D) Lerp(target Vector2D, t float64) Vector2D {
	return v.Add(target.Sub(v).Mul(t))
}

// Clamp limits each component to the box [lo, hi].
func (v Vector2D) Clamp(lo, hi Vector2D) Vector2D {
	return Vector2D{
		X: math.Min(math.Max(v.X, lo.X), hi.X),
		Y: math.Min(math.Max(v.Y, lo.Y), hi.Y),
	}
}

// Eq compares with an Epsilon tolerance per component.
func (v Vector2D) Eq(other Vector2D) bool {
	return v.EqWithin(other, Epsilon)
}

// EqWithin compares with a caller supplied tolerance per component.
func (v Vector2D) EqWithin(other Vector2D, tol float64) bool {
	return math.Abs(v.X-other.X) <= tol && math.Abs(v.Y-other.Y) <= tol
}
