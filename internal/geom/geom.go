// Package geom provides the planar primitives shared by the collision
// layer, the planner and the controller: segment intersection and distance
// tests over orb points, plus angle normalization.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SegmentsIntersect reports whether segments p1-p2 and q1-q2 intersect,
// including touching and collinear-overlap cases.
func SegmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := direction(q1, q2, p1)
	d2 := direction(q1, q2, p2)
	d3 := direction(p1, p2, q1)
	d4 := direction(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear cases
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}

	return false
}

// direction calculates the cross product to determine orientation
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3.X()-p1.X())*(p2.Y()-p1.Y()) - (p2.X()-p1.X())*(p3.Y()-p1.Y())
}

// onSegment checks if point q lies on segment pr, assuming collinearity
func onSegment(p, r, q orb.Point) bool {
	return q.X() <= math.Max(p.X(), r.X()) && q.X() >= math.Min(p.X(), r.X()) &&
		q.Y() <= math.Max(p.Y(), r.Y()) && q.Y() >= math.Min(p.Y(), r.Y())
}

// PointSegmentDistance returns the distance from p to the closest point on
// segment a-b.
func PointSegmentDistance(p, a, b orb.Point) float64 {
	_, d := ClosestOnSegment(p, a, b)
	return d
}

// ClosestOnSegment returns the closest point on segment a-b to p, and the
// distance to it.
func ClosestOnSegment(p, a, b orb.Point) (orb.Point, float64) {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()
	len2 := dx*dx + dy*dy
	if len2 == 0 {
		return a, planar.Distance(p, a)
	}

	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / len2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := orb.Point{a.X() + t*dx, a.Y() + t*dy}
	return closest, planar.Distance(p, closest)
}

// SegmentDistance returns the minimum distance between segments a1-a2 and
// b1-b2; zero if they intersect.
func SegmentDistance(a1, a2, b1, b2 orb.Point) float64 {
	if SegmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	d := PointSegmentDistance(a1, b1, b2)
	d = math.Min(d, PointSegmentDistance(a2, b1, b2))
	d = math.Min(d, PointSegmentDistance(b1, a1, a2))
	d = math.Min(d, PointSegmentDistance(b2, a1, a2))
	return d
}

// RingContains reports whether p lies inside the ring using ray casting.
// The ring does not need to be explicitly closed.
func RingContains(ring orb.Ring, p orb.Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	count := 0
	for i := 0; i < n; i++ {
		v1 := ring[i]
		v2 := ring[(i+1)%n]

		if (v1.Y() > p.Y()) != (v2.Y() > p.Y()) {
			slope := (p.X()-v1.X())*(v2.Y()-v1.Y()) - (v2.X()-v1.X())*(p.Y()-v1.Y())
			if v2.Y() > v1.Y() {
				if slope > 0 {
					count++
				}
			} else {
				if slope < 0 {
					count++
				}
			}
		}
	}

	return count%2 == 1
}

// NormalizeHeading wraps an angle in radians into (-pi, pi].
func NormalizeHeading(theta float64) float64 {
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta <= 0 {
		theta += 2 * math.Pi
	}
	return theta - math.Pi
}

// Midpoint returns the midpoint of segment a-b.
func Midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a.X() + b.X()) / 2, (a.Y() + b.Y()) / 2}
}
