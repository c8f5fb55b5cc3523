package world

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"autonav/internal/geom"
)

// Obstacle is an immutable shape in world coordinates. The margin argument
// on the hit tests is the inflation applied around the shape, so callers
// can treat the vehicle as a point.
type Obstacle interface {
	// Bound returns the axis-aligned bounding box of the shape.
	Bound() orb.Bound

	// HitsPoint reports whether p lies inside the shape inflated by margin.
	HitsPoint(p orb.Point, margin float64) bool

	// HitsSegment reports whether segment a-b passes through the shape
	// inflated by margin.
	HitsSegment(a, b orb.Point, margin float64) bool
}

// Circle is a circular obstacle.
type Circle struct {
	Center orb.Point
	Radius float64
}

// NewCircle creates a circular obstacle at (x, y).
func NewCircle(x, y, radius float64) Circle {
	return Circle{Center: orb.Point{x, y}, Radius: radius}
}

func (c Circle) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.Center.X() - c.Radius, c.Center.Y() - c.Radius},
		Max: orb.Point{c.Center.X() + c.Radius, c.Center.Y() + c.Radius},
	}
}

func (c Circle) HitsPoint(p orb.Point, margin float64) bool {
	return planar.Distance(p, c.Center) <= c.Radius+margin
}

func (c Circle) HitsSegment(a, b orb.Point, margin float64) bool {
	return geom.PointSegmentDistance(c.Center, a, b) <= c.Radius+margin
}

// Polygon is a polygonal obstacle described by its outer ring. The ring
// does not need to repeat its first vertex.
type Polygon struct {
	Ring orb.Ring
}

// NewPolygon creates a polygonal obstacle from its vertices.
func NewPolygon(vertices ...orb.Point) Polygon {
	ring := make(orb.Ring, len(vertices))
	copy(ring, vertices)
	return Polygon{Ring: ring}
}

// NewRect creates an axis-aligned rectangular obstacle with top-left
// corner (x, y).
func NewRect(x, y, width, height float64) Polygon {
	return NewPolygon(
		orb.Point{x, y},
		orb.Point{x + width, y},
		orb.Point{x + width, y + height},
		orb.Point{x, y + height},
	)
}

func (pg Polygon) Bound() orb.Bound {
	return pg.Ring.Bound()
}

func (pg Polygon) HitsPoint(p orb.Point, margin float64) bool {
	if geom.RingContains(pg.Ring, p) {
		return true
	}
	if margin <= 0 {
		return false
	}
	return pg.edgeDistance(p) <= margin
}

func (pg Polygon) HitsSegment(a, b orb.Point, margin float64) bool {
	n := len(pg.Ring)
	if n == 0 {
		return false
	}

	for i := 0; i < n; i++ {
		e1 := pg.Ring[i]
		e2 := pg.Ring[(i+1)%n]
		if geom.SegmentDistance(a, b, e1, e2) <= margin {
			return true
		}
	}

	// No edge is close; the segment either misses entirely or lies fully
	// inside the ring.
	return geom.RingContains(pg.Ring, a) ||
		geom.RingContains(pg.Ring, b) ||
		geom.RingContains(pg.Ring, geom.Midpoint(a, b))
}

func (pg Polygon) edgeDistance(p orb.Point) float64 {
	min := math.MaxFloat64
	n := len(pg.Ring)
	for i := 0; i < n; i++ {
		d := geom.PointSegmentDistance(p, pg.Ring[i], pg.Ring[(i+1)%n])
		if d < min {
			min = d
		}
	}
	return min
}
