// Package geom holds the small 2D math types shared across the simulation:
// vectors, colors, and the symbolic direction tokens catalog entries use.
package geom

import (
	"math"
	"strings"
)

// Vec2 is a 2D vector. Y points up.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Normalize returns the unit vector, or the zero vector unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Vec2) float64 {
	return a.Sub(b).Len()
}

// AngleDeg returns the vector's angle in degrees, counterclockwise from +X.
func AngleDeg(v Vec2) float64 {
	return math.Atan2(v.Y, v.X) * 180 / math.Pi
}

// FromAngleDeg returns the unit vector at the given angle in degrees.
func FromAngleDeg(deg float64) Vec2 {
	rad := deg * math.Pi / 180
	return Vec2{X: math.Cos(rad), Y: math.Sin(rad)}
}

// DirectionFromToken maps a symbolic direction token to a unit vector.
// Tokens are matched case-insensitively.
func DirectionFromToken(token string) (Vec2, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "left":
		return Vec2{X: -1}, true
	case "right":
		return Vec2{X: 1}, true
	case "up":
		return Vec2{Y: 1}, true
	case "down":
		return Vec2{Y: -1}, true
	}
	return Vec2{}, false
}
