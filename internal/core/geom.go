// Package core provides unit conversions and plane geometry shared by the
// mission assembler and the report renderers. It has no external dependencies.
package core

import "math"

// Point is a position on the theatre map in metres.
// X runs along the lane axis; Y is the cross-lane axis.
type Point struct {
	X, Y float64
}

// Offset returns the point translated by (dx, dy).
func (p Point) Offset(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Dist returns the Euclidean distance to another point.
func (p Point) Dist(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Rect is an axis-aligned bounding box in map metres.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// BoundsOf returns the smallest Rect containing every point.
// An empty slice yields the zero Rect.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{MinX: r.MinX - margin, MinY: r.MinY - margin, MaxX: r.MaxX + margin, MaxY: r.MaxY + margin}
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Intersects returns true if this rectangle overlaps with another.
// Touching edges do not count as overlap.
func (r Rect) Intersects(other Rect) bool {
	if r.MinX >= other.MaxX || other.MinX >= r.MaxX {
		return false
	}
	if r.MinY >= other.MaxY || other.MinY >= r.MaxY {
		return false
	}
	return true
}

// ClampF restricts a float64 value to be within [min, max].
func ClampF(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
