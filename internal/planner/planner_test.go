package planner

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonav/internal/world"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 1
	return cfg
}

func mustWorld(t *testing.T, obstacles []world.Obstacle) *world.World {
	t.Helper()
	w, err := world.New(1000, 800, obstacles)
	require.NoError(t, err)
	return w
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero step size", func(c *Config) { c.StepSize = 0 }},
		{"negative goal sample rate", func(c *Config) { c.GoalSampleRate = -0.1 }},
		{"goal sample rate above one", func(c *Config) { c.GoalSampleRate = 1.5 }},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"zero goal tolerance", func(c *Config) { c.GoalTolerance = 0 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := New(mustWorld(t, nil), cfg)
			assert.Error(t, err)
		})
	}
}

func TestPlanOpenField(t *testing.T) {
	t.Parallel()

	p, err := New(mustWorld(t, nil), testConfig())
	require.NoError(t, err)

	start := orb.Point{100, 400}
	goal := orb.Point{900, 400}
	path, err := p.Plan(context.Background(), start, goal)
	require.NoError(t, err)

	assert.Equal(t, Succeeded, p.Status())
	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])

	// A straight shot should not need anywhere near the full budget.
	assert.Less(t, p.Iterations(), 1000)
}

func TestPlanShortHopToGoal(t *testing.T) {
	t.Parallel()

	// Goal within a single step of the start: the first goal-biased sample
	// steers exactly onto the goal, which must not be emitted twice.
	for seed := int64(0); seed < 5; seed++ {
		cfg := testConfig()
		cfg.Seed = seed
		p, err := New(mustWorld(t, nil), cfg)
		require.NoError(t, err)

		start := orb.Point{700, 450}
		goal := orb.Point{715, 450}
		path, err := p.Plan(context.Background(), start, goal)
		require.NoError(t, err, "seed %d", seed)

		assert.Equal(t, start, path[0])
		assert.Equal(t, goal, path[len(path)-1])
		for i := 1; i < len(path); i++ {
			assert.Positive(t, planar.Distance(path[i-1], path[i]),
				"seed %d: waypoints %d and %d coincide", seed, i-1, i)
		}
	}
}

func TestPlanPathSegmentsAreCollisionFree(t *testing.T) {
	t.Parallel()

	w := mustWorld(t, []world.Obstacle{
		world.NewRect(400, 200, 100, 400),
		world.NewCircle(700, 300, 60),
	})
	w.Inflate(15)

	p, err := New(w, testConfig())
	require.NoError(t, err)

	path, err := p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{900, 500})
	require.NoError(t, err)

	for i := 1; i < len(path); i++ {
		assert.True(t, w.IsSegmentFree(path[i-1], path[i]),
			"segment %d is not collision free", i)
	}
	for i, wp := range path {
		assert.True(t, w.IsPointFree(wp), "waypoint %d inside an inflated obstacle", i)
	}
}

func TestPlanDetoursAroundWall(t *testing.T) {
	t.Parallel()

	// A wall straight between start and goal.
	w := mustWorld(t, []world.Obstacle{world.NewRect(450, 200, 100, 400)})
	w.Inflate(15)

	p, err := New(w, testConfig())
	require.NoError(t, err)

	path, err := p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{900, 400})
	require.NoError(t, err)
	require.NotEmpty(t, path)

	// The inflated wall spans y in [185, 615]; a free waypoint inside the
	// wall's x band must sit outside that range.
	detoured := false
	for _, wp := range path {
		if wp.Y() < 185 || wp.Y() > 615 {
			detoured = true
		}
	}
	assert.True(t, detoured, "expected the path to swing around the wall")
}

func TestPlanEnclosedGoalFails(t *testing.T) {
	t.Parallel()

	// A closed box of walls around the goal with no gap.
	w := mustWorld(t, []world.Obstacle{
		world.NewRect(400, 300, 200, 20),
		world.NewRect(400, 480, 200, 20),
		world.NewRect(400, 300, 20, 200),
		world.NewRect(580, 300, 20, 200),
	})

	cfg := testConfig()
	cfg.MaxIterations = 300
	cfg.GoalTolerance = 20
	p, err := New(w, cfg)
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{500, 400})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, Failed, p.Status())
	assert.Equal(t, cfg.MaxIterations, p.Iterations())
}

func TestPlanRejectsBlockedEndpoints(t *testing.T) {
	t.Parallel()

	w := mustWorld(t, []world.Obstacle{world.NewCircle(500, 400, 50)})
	w.Inflate(20)

	p, err := New(w, testConfig())
	require.NoError(t, err)

	t.Run("blocked start", func(t *testing.T) {
		_, err := p.Plan(context.Background(), orb.Point{510, 400}, orb.Point{900, 400})
		assert.ErrorIs(t, err, ErrInvalidStart)
		assert.Zero(t, p.Iterations(), "no iterations may run for a blocked start")
	})

	t.Run("start inside inflation margin only", func(t *testing.T) {
		// 60 from center: outside the circle, inside the inflated shape.
		_, err := p.Plan(context.Background(), orb.Point{560, 400}, orb.Point{900, 400})
		assert.ErrorIs(t, err, ErrInvalidStart)
	})

	t.Run("blocked goal", func(t *testing.T) {
		_, err := p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{500, 410})
		assert.ErrorIs(t, err, ErrInvalidGoal)
		assert.Zero(t, p.Iterations())
	})
}

func TestPlanReproducibleWithSeed(t *testing.T) {
	t.Parallel()

	w := mustWorld(t, []world.Obstacle{world.NewRect(450, 200, 100, 400)})

	run := func() Path {
		p, err := New(w, testConfig())
		require.NoError(t, err)
		path, err := p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{900, 400})
		require.NoError(t, err)
		return path
	}

	assert.Equal(t, run(), run())
}

func TestPlanCancellation(t *testing.T) {
	t.Parallel()

	p, err := New(mustWorld(t, nil), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Plan(ctx, orb.Point{100, 400}, orb.Point{900, 400})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, p.Status())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	t.Parallel()

	p, err := New(mustWorld(t, nil), testConfig())
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), orb.Point{100, 400}, orb.Point{900, 400})
	require.NoError(t, err)

	snap := p.Snapshot()
	require.NotEmpty(t, snap)

	// Tree invariant: every non-root parent chain terminates at the root
	// within tree-size steps.
	for i, n := range snap {
		if i == 0 {
			assert.Equal(t, -1, n.Parent)
			continue
		}
		steps := 0
		for j := i; j != -1; j = snap[j].Parent {
			steps++
			require.LessOrEqual(t, steps, len(snap), "parent chain cycle at node %d", i)
		}
		assert.GreaterOrEqual(t, n.Cost, snap[n.Parent].Cost)
	}

	snap[0].Point = orb.Point{-1, -1}
	assert.NotEqual(t, snap[0].Point, p.Snapshot()[0].Point)
}

func TestPathLength(t *testing.T) {
	t.Parallel()

	path := Path{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11, path.Length(), 1e-12)
	assert.InDelta(t, 5, planar.Distance(path[0], path[1]), 1e-12)
}
