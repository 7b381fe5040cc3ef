package quadtree

import (
	"strconv"
)

// Point is a location in the plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Equal reports whether both coordinates are exactly equal. No epsilon is
// applied.
func (p Point) Equal(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

func (p Point) String() string {
	return "(" + formatFloat(p.X) + ", " + formatFloat(p.Y) + ")"
}

// Rectangle is an axis aligned rectangle with its origin at (X, Y). Its right
// and bottom edges are at X+Width and Y+Height.
//
// Negative sizes are neither rejected nor normalized.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NewRectangle(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func (r Rectangle) Equal(o Rectangle) bool {
	return r.X == o.X &&
		r.Y == o.Y &&
		r.Width == o.Width &&
		r.Height == o.Height
}

// String returns the rectangle as its two corners: (x, y, x+width, y+height).
func (r Rectangle) String() string {
	return "(" + formatFloat(r.X) +
		", " + formatFloat(r.Y) +
		", " + formatFloat(r.X+r.Width) +
		", " + formatFloat(r.Y+r.Height) + ")"
}

// Contains reports whether p lies within r. All four edges are inclusive.
func Contains(p Point, r Rectangle) bool {
	return p.X >= r.X &&
		p.X <= r.X+r.Width &&
		p.Y >= r.Y &&
		p.Y <= r.Y+r.Height
}

// Intersects reports whether rng overlaps bounds. Unlike Contains the test is
// strict: rectangles that only share an edge do not intersect.
func Intersects(rng Rectangle, bounds Rectangle) bool {
	return rng.X < bounds.X+bounds.Width &&
		rng.X+rng.Width > bounds.X &&
		rng.Y < bounds.Y+bounds.Height &&
		rng.Y+rng.Height > bounds.Y
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
