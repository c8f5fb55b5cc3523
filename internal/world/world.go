// Package world holds the static obstacle set for one planning episode and
// answers the collision queries the planner and controller depend on. All
// queries are pure; a World is safe for concurrent readers once built.
package world

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// World is a bounded rectangle [0, width] x [0, height] containing static
// obstacles. The inflation margin widens every obstacle and shrinks the
// usable border so point and segment queries can treat the vehicle as a
// point.
type World struct {
	width, height float64
	margin        float64
	obstacles     []Obstacle
	index         *rtreego.Rtree
}

// New creates a world with the given bounds and obstacle set. The margin
// starts at zero; call Inflate before planning.
func New(width, height float64, obstacles []Obstacle) (*World, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("world: bounds must be positive, got %vx%v", width, height)
	}

	w := &World{
		width:     width,
		height:    height,
		obstacles: append([]Obstacle(nil), obstacles...),
	}
	w.rebuildIndex()
	return w, nil
}

// Inflate sets the vehicle-footprint safety margin applied around every
// obstacle and along the world border. It replaces any previous margin.
func (w *World) Inflate(margin float64) {
	if margin < 0 {
		margin = 0
	}
	w.margin = margin
	w.rebuildIndex()
}

// Width returns the world width.
func (w *World) Width() float64 { return w.width }

// Height returns the world height.
func (w *World) Height() float64 { return w.height }

// Margin returns the current inflation margin.
func (w *World) Margin() float64 { return w.margin }

// Obstacles returns the obstacle set. Callers must not mutate it.
func (w *World) Obstacles() []Obstacle { return w.obstacles }

// IsPointFree reports whether p lies inside the margin-shrunk bounds and
// outside every inflated obstacle.
func (w *World) IsPointFree(p orb.Point) bool {
	if !w.inBounds(p) {
		return false
	}

	for _, obs := range w.search(pointBound(p)) {
		if obs.HitsPoint(p, w.margin) {
			return false
		}
	}
	return true
}

// IsSegmentFree reports whether the straight segment a-b stays inside the
// margin-shrunk bounds and clear of every inflated obstacle. The test is
// exact, not sampled.
func (w *World) IsSegmentFree(a, b orb.Point) bool {
	// The valid region is a rectangle, so in-bounds endpoints imply an
	// in-bounds segment.
	if !w.inBounds(a) || !w.inBounds(b) {
		return false
	}

	for _, obs := range w.search(segmentBound(a, b, w.margin)) {
		if obs.HitsSegment(a, b, w.margin) {
			return false
		}
	}
	return true
}

// FootprintFree checks the exact vehicle outline against the un-inflated
// obstacle set and the hard world border. Used at follow time, where the
// pose is known and the point approximation would be too conservative.
func (w *World) FootprintFree(corners []orb.Point) bool {
	n := len(corners)
	for _, c := range corners {
		if c.X() < 0 || c.X() > w.width || c.Y() < 0 || c.Y() > w.height {
			return false
		}
	}

	for i := 0; i < n; i++ {
		a := corners[i]
		b := corners[(i+1)%n]
		for _, obs := range w.search(segmentBound(a, b, 0)) {
			if obs.HitsSegment(a, b, 0) {
				return false
			}
		}
	}
	return true
}

func (w *World) inBounds(p orb.Point) bool {
	return p.X() >= w.margin && p.X() <= w.width-w.margin &&
		p.Y() >= w.margin && p.Y() <= w.height-w.margin
}

func (w *World) rebuildIndex() {
	w.index = buildIndex(w.obstacles, w.margin)
}

func pointBound(p orb.Point) orb.Bound {
	return orb.Bound{Min: p, Max: p}
}

func segmentBound(a, b orb.Point, pad float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(a.X(), b.X()) - pad, math.Min(a.Y(), b.Y()) - pad},
		Max: orb.Point{math.Max(a.X(), b.X()) + pad, math.Max(a.Y(), b.Y()) + pad},
	}
}
