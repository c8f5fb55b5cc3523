// Package spline fits a cubic B-spline through planner waypoints and
// exposes the smooth curve by parameter and by arc length. The fit
// interpolates: the curve passes through every waypoint, so the path
// endpoints are preserved exactly.
//
// Obstacle clearance is not re-checked here. If the smoothing cuts a corner
// into an obstacle, the follow-time footprint check catches it.
package spline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned for fewer than two distinct waypoints.
var ErrDegenerate = errors.New("need at least two distinct waypoints")

// samplesPerWaypoint controls the arc-length table density.
const samplesPerWaypoint = 5

// Curve is an immutable parametric B-spline over t in [0, 1].
type Curve struct {
	degree int
	knots  []float64
	ctrl   []orb.Point

	samples []orb.Point // dense polyline for arc-length queries
	cum     []float64   // cumulative arc length per sample
}

// Fit builds an interpolating B-spline through the waypoints. Two
// waypoints degenerate to a straight segment (degree 1); three use a
// quadratic; four or more a cubic.
func Fit(waypoints []orb.Point) (*Curve, error) {
	waypoints = dropRepeats(waypoints)
	n := len(waypoints)
	if n < 2 {
		return nil, fmt.Errorf("spline: got %d distinct waypoints: %w", n, ErrDegenerate)
	}

	params, err := chordParams(waypoints)
	if err != nil {
		return nil, err
	}

	degree := 3
	if n-1 < degree {
		degree = n - 1
	}

	knots := averagedKnots(params, degree)
	ctrl, err := solveControlPoints(waypoints, params, knots, degree)
	if err != nil {
		return nil, fmt.Errorf("spline: fit failed: %w", err)
	}

	c := &Curve{degree: degree, knots: knots, ctrl: ctrl}
	c.buildArcTable(samplesPerWaypoint * n)
	return c, nil
}

// At evaluates the curve position at parameter t, clamped to [0, 1].
func (c *Curve) At(t float64) orb.Point {
	if t <= 0 {
		return c.ctrl[0]
	}
	if t >= 1 {
		return c.ctrl[len(c.ctrl)-1]
	}

	var x, y float64
	for j := range c.ctrl {
		b := basis(c.knots, j, c.degree, t)
		x += b * c.ctrl[j].X()
		y += b * c.ctrl[j].Y()
	}
	return orb.Point{x, y}
}

// Heading returns the tangent direction at parameter t, in radians.
func (c *Curve) Heading(t float64) float64 {
	const h = 1e-4
	lo := math.Max(0, t-h)
	hi := math.Min(1, t+h)
	a := c.At(lo)
	b := c.At(hi)
	return math.Atan2(b.Y()-a.Y(), b.X()-a.X())
}

// Length returns the total arc length of the curve.
func (c *Curve) Length() float64 {
	return c.cum[len(c.cum)-1]
}

// AtLength returns the curve position at arc length s, clamped to the
// curve extent.
func (c *Curve) AtLength(s float64) orb.Point {
	if s <= 0 {
		return c.samples[0]
	}
	if s >= c.Length() {
		return c.samples[len(c.samples)-1]
	}

	i := sort.SearchFloat64s(c.cum, s)
	// cum[i-1] < s <= cum[i]
	seg := c.cum[i] - c.cum[i-1]
	if seg == 0 {
		return c.samples[i]
	}
	f := (s - c.cum[i-1]) / seg
	a, b := c.samples[i-1], c.samples[i]
	return orb.Point{
		a.X() + (b.X()-a.X())*f,
		a.Y() + (b.Y()-a.Y())*f,
	}
}

// HeadingAtLength returns the tangent direction at arc length s.
func (c *Curve) HeadingAtLength(s float64) float64 {
	if s <= 0 {
		return headingOf(c.samples[0], c.samples[1])
	}
	if s >= c.Length() {
		n := len(c.samples)
		return headingOf(c.samples[n-2], c.samples[n-1])
	}
	i := sort.SearchFloat64s(c.cum, s)
	return headingOf(c.samples[i-1], c.samples[i])
}

// NearestLength returns the arc length of the sample closest to p, looking
// only at or after arc length `from`. It never returns less than `from`,
// which keeps follower progress monotonic.
func (c *Curve) NearestLength(p orb.Point, from float64) float64 {
	start := sort.SearchFloat64s(c.cum, from)
	if start >= len(c.samples) {
		return c.Length()
	}

	best := start
	bestDist := planar.Distance(p, c.samples[start])
	for i := start + 1; i < len(c.samples); i++ {
		if d := planar.Distance(p, c.samples[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}

	if c.cum[best] < from {
		return from
	}
	return c.cum[best]
}

// Start returns the curve start point.
func (c *Curve) Start() orb.Point { return c.samples[0] }

// End returns the curve end point.
func (c *Curve) End() orb.Point { return c.samples[len(c.samples)-1] }

// Samples returns a copy of the dense polyline, for path rendering.
func (c *Curve) Samples() []orb.Point {
	out := make([]orb.Point, len(c.samples))
	copy(out, c.samples)
	return out
}

func (c *Curve) buildArcTable(count int) {
	if count < 8 {
		count = 8
	}

	c.samples = make([]orb.Point, count)
	for i := 0; i < count; i++ {
		c.samples[i] = c.At(float64(i) / float64(count-1))
	}

	incs := make([]float64, count)
	for i := 1; i < count; i++ {
		incs[i] = planar.Distance(c.samples[i-1], c.samples[i])
	}
	c.cum = floats.CumSum(make([]float64, count), incs)
}

// dropRepeats removes consecutive duplicate waypoints, which would give
// the interpolation system two identical rows and make it singular.
func dropRepeats(waypoints []orb.Point) []orb.Point {
	if len(waypoints) < 2 {
		return waypoints
	}
	out := make([]orb.Point, 1, len(waypoints))
	out[0] = waypoints[0]
	for _, p := range waypoints[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// chordParams assigns each waypoint a parameter in [0, 1] proportional to
// cumulative chord length.
func chordParams(waypoints []orb.Point) ([]float64, error) {
	n := len(waypoints)
	params := make([]float64, n)
	total := 0.0
	for i := 1; i < n; i++ {
		total += planar.Distance(waypoints[i-1], waypoints[i])
		params[i] = total
	}
	if total == 0 {
		return nil, fmt.Errorf("spline: zero-length waypoint sequence: %w", ErrDegenerate)
	}
	for i := range params {
		params[i] /= total
	}
	return params, nil
}

// averagedKnots builds a clamped knot vector with internal knots averaged
// from the parameters, which keeps the interpolation system nonsingular.
func averagedKnots(params []float64, degree int) []float64 {
	n := len(params)
	knots := make([]float64, n+degree+1)
	for i := 0; i <= degree; i++ {
		knots[i] = 0
		knots[len(knots)-1-i] = 1
	}
	for j := 1; j <= n-degree-1; j++ {
		sum := 0.0
		for i := j; i < j+degree; i++ {
			sum += params[i]
		}
		knots[j+degree] = sum / float64(degree)
	}
	return knots
}

// solveControlPoints solves the global interpolation system N * P = Q,
// where N is the basis collocation matrix at the chord parameters.
func solveControlPoints(waypoints []orb.Point, params, knots []float64, degree int) ([]orb.Point, error) {
	n := len(waypoints)

	a := mat.NewDense(n, n, nil)
	for row, t := range params {
		if t >= 1 {
			// Right endpoint: only the last basis function is nonzero.
			a.Set(row, n-1, 1)
			continue
		}
		for col := 0; col < n; col++ {
			a.Set(row, col, basis(knots, col, degree, t))
		}
	}

	q := mat.NewDense(n, 2, nil)
	for i, wp := range waypoints {
		q.Set(i, 0, wp.X())
		q.Set(i, 1, wp.Y())
	}

	var sol mat.Dense
	if err := sol.Solve(a, q); err != nil {
		return nil, err
	}

	ctrl := make([]orb.Point, n)
	for i := range ctrl {
		ctrl[i] = orb.Point{sol.At(i, 0), sol.At(i, 1)}
	}
	return ctrl, nil
}

func basis(knots []float64, i, k int, u float64) float64 {
	if k == 0 {
		if knots[i] <= u && u < knots[i+1] {
			return 1
		}
		return 0
	}

	var left, right float64
	if d := knots[i+k] - knots[i]; d > 0 {
		left = (u - knots[i]) / d * basis(knots, i, k-1, u)
	}
	if d := knots[i+k+1] - knots[i+1]; d > 0 {
		right = (knots[i+k+1] - u) / d * basis(knots, i+1, k-1, u)
	}
	return left + right
}

func headingOf(a, b orb.Point) float64 {
	return math.Atan2(b.Y()-a.Y(), b.X()-a.X())
}
