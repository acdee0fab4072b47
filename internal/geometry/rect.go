package geometry

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Point is a 2D coordinate. Depending on context it is in chart (content) space or screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the size has zero or negative area.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// r2 returns the closed interval form of r. Rects without area map to the empty rect.
func (r Rect) r2() r2.Rect {
	if r.IsEmpty() {
		return r2.EmptyRect()
	}
	return r2.Rect{
		X: r1.Interval{Lo: r.X, Hi: r.MaxX()},
		Y: r1.Interval{Lo: r.Y, Hi: r.MaxY()},
	}
}

func fromR2(b r2.Rect) Rect {
	if b.IsEmpty() {
		return Rect{}
	}
	lo, size := b.Lo(), b.Size()
	return Rect{X: lo.X, Y: lo.Y, Width: size.X, Height: size.Y}
}

// RectFromCircle returns the bounding box of a circle.
func RectFromCircle(center Point, radius float64) Rect {
	return Rect{X: center.X - radius, Y: center.Y - radius, Width: 2 * radius, Height: 2 * radius}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Size returns the rect's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Contains checks if a point is inside the rect, edges included.
func (r Rect) Contains(p Point) bool {
	return r.r2().ContainsPoint(r2.Point{X: p.X, Y: p.Y})
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return fromR2(r.r2().Union(other.r2()))
}

// Intersects reports whether the two rects overlap. Touching edges count as overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.r2().Intersects(other.r2())
}

// Intersect returns the overlapping area, or an empty rect when there is none.
func (r Rect) Intersect(other Rect) Rect {
	return fromR2(r.r2().Intersection(other.r2()))
}

// Pad grows the rect by d on every side. Negative d shrinks it.
func (r Rect) Pad(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Translate moves the rect by the given offset.
func (r Rect) Translate(by Point) Rect {
	return Rect{X: r.X + by.X, Y: r.Y + by.Y, Width: r.Width, Height: r.Height}
}

// ContentBounds returns the union bounding box of the stage and every section.
// Empty rects are ignored, so a layout without a stage is framed by its sections alone.
func ContentBounds(stage Rect, sections ...Rect) Rect {
	bounds := stage
	for _, s := range sections {
		bounds = bounds.Union(s)
	}
	return bounds
}
