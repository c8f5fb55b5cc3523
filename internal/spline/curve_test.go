package spline

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitDegenerate(t *testing.T) {
	t.Parallel()

	_, err := Fit(nil)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit([]orb.Point{{5, 5}})
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit([]orb.Point{{5, 5}, {5, 5}})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestFitDropsRepeatedWaypoints(t *testing.T) {
	t.Parallel()

	t.Run("repeated endpoint", func(t *testing.T) {
		t.Parallel()
		// A duplicated waypoint would put two identical rows into the
		// interpolation system; the fit must survive it.
		waypoints := []orb.Point{{0, 0}, {50, 20}, {100, 0}, {100, 0}}
		c, err := Fit(waypoints)
		require.NoError(t, err)
		assert.Equal(t, orb.Point{0, 0}, c.Start())
		assert.Equal(t, orb.Point{100, 0}, c.End())
	})

	t.Run("repeated interior waypoint", func(t *testing.T) {
		t.Parallel()
		c, err := Fit([]orb.Point{{0, 0}, {40, 30}, {40, 30}, {90, 10}, {150, 60}})
		require.NoError(t, err)
		assert.Equal(t, orb.Point{150, 60}, c.End())
	})

	t.Run("input slice is left alone", func(t *testing.T) {
		t.Parallel()
		waypoints := []orb.Point{{0, 0}, {0, 0}, {50, 20}, {100, 0}}
		_, err := Fit(waypoints)
		require.NoError(t, err)
		assert.Equal(t, []orb.Point{{0, 0}, {0, 0}, {50, 20}, {100, 0}}, waypoints)
	})

	t.Run("all identical collapses to degenerate", func(t *testing.T) {
		t.Parallel()
		_, err := Fit([]orb.Point{{5, 5}, {5, 5}, {5, 5}})
		assert.ErrorIs(t, err, ErrDegenerate)
	})
}

func TestFitTwoWaypointsIsStraight(t *testing.T) {
	t.Parallel()

	c, err := Fit([]orb.Point{{0, 0}, {100, 0}})
	require.NoError(t, err)

	assert.Equal(t, orb.Point{0, 0}, c.Start())
	assert.Equal(t, orb.Point{100, 0}, c.End())
	assert.InDelta(t, 100, c.Length(), 1e-9)

	mid := c.At(0.5)
	assert.InDelta(t, 50, mid.X(), 1e-9)
	assert.InDelta(t, 0, mid.Y(), 1e-9)

	assert.InDelta(t, 0, c.Heading(0.5), 1e-9)
	assert.InDelta(t, 0, c.HeadingAtLength(50), 1e-9)
}

func TestFitInterpolatesWaypoints(t *testing.T) {
	t.Parallel()

	waypoints := []orb.Point{
		{0, 0}, {50, 30}, {120, 20}, {180, 80}, {250, 60}, {300, 100},
	}
	c, err := Fit(waypoints)
	require.NoError(t, err)

	// The fit is interpolating: evaluating at each waypoint's chord
	// parameter must land back on the waypoint.
	params := make([]float64, len(waypoints))
	total := 0.0
	for i := 1; i < len(waypoints); i++ {
		total += planar.Distance(waypoints[i-1], waypoints[i])
		params[i] = total
	}
	for i := range params {
		params[i] /= total
	}

	for i, wp := range waypoints {
		got := c.At(params[i])
		assert.InDelta(t, wp.X(), got.X(), 1e-6, "waypoint %d x", i)
		assert.InDelta(t, wp.Y(), got.Y(), 1e-6, "waypoint %d y", i)
	}
}

func TestEndpointsPreserved(t *testing.T) {
	t.Parallel()

	waypoints := []orb.Point{{10, 20}, {40, 80}, {90, 30}, {150, 90}}
	c, err := Fit(waypoints)
	require.NoError(t, err)

	assert.Equal(t, waypoints[0], c.At(0))
	assert.Equal(t, waypoints[len(waypoints)-1], c.At(1))
	assert.Equal(t, waypoints[0], c.AtLength(-5))
	assert.Equal(t, waypoints[len(waypoints)-1], c.AtLength(c.Length()+5))
}

func TestArcLengthMonotone(t *testing.T) {
	t.Parallel()

	c, err := Fit([]orb.Point{{0, 0}, {60, 40}, {130, 10}, {200, 70}})
	require.NoError(t, err)

	// Arc length can never beat the straight-line distance.
	chord := planar.Distance(c.Start(), c.End())
	assert.GreaterOrEqual(t, c.Length(), chord)

	prev := c.AtLength(0)
	walked := 0.0
	for s := 5.0; s <= c.Length(); s += 5 {
		cur := c.AtLength(s)
		step := planar.Distance(prev, cur)
		assert.LessOrEqual(t, step, 5.0+1e-6, "at s=%v", s)
		walked += step
		prev = cur
	}
	assert.InDelta(t, c.Length(), walked+planar.Distance(prev, c.End()), c.Length()*0.05)
}

func TestNearestLengthMonotonic(t *testing.T) {
	t.Parallel()

	c, err := Fit([]orb.Point{{0, 0}, {100, 0}, {200, 0}})
	require.NoError(t, err)

	t.Run("finds the closest sample", func(t *testing.T) {
		t.Parallel()
		s := c.NearestLength(orb.Point{50, 10}, 0)
		assert.InDelta(t, 50, s, 15)
	})

	t.Run("never moves backward", func(t *testing.T) {
		t.Parallel()
		// The query point sits behind the progress cursor.
		s := c.NearestLength(orb.Point{50, 10}, 120)
		assert.GreaterOrEqual(t, s, 120.0)
	})

	t.Run("saturates at the end", func(t *testing.T) {
		t.Parallel()
		s := c.NearestLength(orb.Point{500, 0}, c.Length())
		assert.InDelta(t, c.Length(), s, 1e-9)
	})
}

func TestSamplesAreACopy(t *testing.T) {
	t.Parallel()

	c, err := Fit([]orb.Point{{0, 0}, {50, 50}, {100, 0}})
	require.NoError(t, err)

	samples := c.Samples()
	require.NotEmpty(t, samples)
	samples[0] = orb.Point{-1, -1}
	assert.NotEqual(t, samples[0], c.Samples()[0])
}

func TestHeadingAlongQuarterTurn(t *testing.T) {
	t.Parallel()

	// Waypoints bending from +x travel toward +y travel.
	c, err := Fit([]orb.Point{{0, 0}, {80, 5}, {150, 40}, {170, 110}, {175, 190}})
	require.NoError(t, err)

	start := c.HeadingAtLength(0)
	end := c.HeadingAtLength(c.Length())
	assert.InDelta(t, 0, start, 0.3)
	assert.InDelta(t, math.Pi/2, end, 0.3)
}
