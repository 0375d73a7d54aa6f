package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRectIOU validates the IoU computation against hand-computed overlaps.
func TestRectIOU(t *testing.T) {
	tests := []struct {
		name     string
		a        Rect
		b        Rect
		expected float32
	}{
		{
			name:     "identical boxes",
			a:        Rect{X: 0, Y: 0, Width: 100, Height: 100},
			b:        Rect{X: 0, Y: 0, Width: 100, Height: 100},
			expected: 1.0,
		},
		{
			name:     "disjoint boxes",
			a:        Rect{X: 0, Y: 0, Width: 100, Height: 100},
			b:        Rect{X: 200, Y: 200, Width: 100, Height: 100},
			expected: 0.0,
		},
		{
			name:     "touching edges",
			a:        Rect{X: 0, Y: 0, Width: 100, Height: 100},
			b:        Rect{X: 100, Y: 0, Width: 100, Height: 100},
			expected: 0.0,
		},
		{
			name: "half horizontal overlap",
			a:    Rect{X: 0, Y: 0, Width: 100, Height: 100},
			b:    Rect{X: 50, Y: 0, Width: 100, Height: 100},
			// intersection=5000, union=15000
			expected: 1.0 / 3.0,
		},
		{
			name: "one inside the other",
			a:    Rect{X: 0, Y: 0, Width: 100, Height: 100},
			b:    Rect{X: 25, Y: 25, Width: 50, Height: 50},
			expected: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.a.IOU(tt.b), 0.001)
			assert.InDelta(t, tt.expected, tt.b.IOU(tt.a), 0.001,
				"IoU should be symmetric")
		})
	}
}

// TestRectIntersection verifies the clamping of non-overlapping boxes to a
// zero-area rectangle.
func TestRectIntersection(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 20, Width: 10, Height: 10}

	inter := a.Intersection(b)
	assert.Equal(t, 0, inter.Area())

	c := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	assert.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, a.Intersection(c))
}

func TestRectCenter(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 40, Height: 60}
	assert.Equal(t, Point{X: 30, Y: 50}, r.Center())
}

// TestKeypointLocated verifies that only the (-1, -1) sentinel counts as an
// unlocated keypoint.
func TestKeypointLocated(t *testing.T) {
	tests := []struct {
		name     string
		kp       Keypoint
		expected bool
	}{
		{name: "sentinel", kp: Keypoint{X: -1, Y: -1}, expected: false},
		{name: "origin", kp: Keypoint{X: 0, Y: 0}, expected: true},
		{name: "negative x only", kp: Keypoint{X: -1, Y: 5}, expected: true},
		{name: "regular point", kp: Keypoint{X: 12.5, Y: 30}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kp.Located())
		})
	}
}

func TestKeypointDistance(t *testing.T) {
	a := Keypoint{X: 0, Y: 0}
	b := Keypoint{X: 3, Y: 4}
	assert.InDelta(t, 5.0, a.Distance(b), 0.0001)
	assert.InDelta(t, 0.0, a.Distance(a), 0.0001)
}
