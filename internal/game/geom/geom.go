// Package geom provides the small amount of 2D vector and axis-aligned bounds
// math the simulation needs in place of an engine transform/collider layer.
package geom

import "math"

// Vec2 is a 2D point or direction in world units.
type Vec2 struct {
	X float64
	Y float64
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalized returns v scaled to unit length.
//
// Postcondition: Returns the zero vector when v has zero length.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Lerp linearly interpolates from v toward o by t in [0, 1].
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Near reports whether v and o are within eps of each other.
func (v Vec2) Near(o Vec2, eps float64) bool { return v.Dist(o) < eps }

// Bounds is an axis-aligned rectangle.
//
// Invariant: Min.X <= Max.X and Min.Y <= Max.Y when built with NewBounds.
type Bounds struct {
	Min Vec2
	Max Vec2
}

// NewBounds builds the rectangle spanned by two arbitrary corners.
//
// Postcondition: Returned Min is component-wise <= Max.
func NewBounds(a, b Vec2) Bounds {
	return Bounds{
		Min: Vec2{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Vec2{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// BoxAround returns a rectangle of the given size centred on c.
func BoxAround(c Vec2, size Vec2) Bounds {
	half := size.Scale(0.5)
	return NewBounds(c.Sub(half), c.Add(half))
}

// Contains reports whether p lies inside b, edges inclusive.
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Overlaps reports whether b and o share any point.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X && b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Center returns the midpoint of b.
func (b Bounds) Center() Vec2 { return b.Min.Lerp(b.Max, 0.5) }

// Size returns the width and height of b.
func (b Bounds) Size() Vec2 { return b.Max.Sub(b.Min) }

// Empty reports whether b has zero area.
func (b Bounds) Empty() bool {
	s := b.Size()
	return s.X <= 0 || s.Y <= 0
}

// Translate returns b moved by v.
func (b Bounds) Translate(v Vec2) Bounds { return Bounds{Min: b.Min.Add(v), Max: b.Max.Add(v)} }
