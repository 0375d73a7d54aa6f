// Package images provides the lightweight geometry types shared by the model
// decoders.
package images

import "github.com/chewxy/math32"

// Rect is an axis-aligned box in pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the covered area in pixels.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Intersection returns the overlapping region of r and b. Boxes that do not
// overlap yield a zero-area Rect.
func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X+r.Width, b.X+b.Width)
	y2 := min(r.Y+r.Height, b.Y+b.Height)
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// IOU (Intersection over Union) measures the extent of overlap between two
// boxes, from 0 (disjoint) to 1 (identical). It is the suppression criterion
// used by Non-Maximum Suppression.
func (r Rect) IOU(b Rect) float32 {
	intersection := r.Intersection(b).Area()
	return float32(intersection) / float32(r.Area()+b.Area()-intersection)
}

// Center returns the midpoint of the box.
func (r Rect) Center() Point {
	return Point{
		X: r.X + r.Width/2,
		Y: r.Y + r.Height/2,
	}
}

// Point is an integer pixel location.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Keypoint is a located keypoint in frame coordinates. A keypoint the network
// could not place confidently is the sentinel (-1, -1).
type Keypoint struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Located reports whether the keypoint carries a confident location.
func (k Keypoint) Located() bool {
	return k.X != -1 || k.Y != -1
}

// Distance returns the euclidean distance to b.
func (k Keypoint) Distance(b Keypoint) float32 {
	return math32.Sqrt((k.X-b.X)*(k.X-b.X) + (k.Y-b.Y)*(k.Y-b.Y))
}
