// Package planner grows a goal-biased RRT (Rapidly-exploring Random Tree)
// through the free space of a world. Planning is probabilistically
// complete, not optimal: the first collision-free connection to the goal
// wins.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"

	"autonav/internal/world"
)

// Planning failures are values, never panics. ErrNoPath means the iteration
// budget ran out without a goal connection; the caller may re-invoke with
// adjusted parameters but the planner never retries on its own.
var (
	ErrInvalidStart = errors.New("start position is not in free space")
	ErrInvalidGoal  = errors.New("goal position is not in free space")
	ErrNoPath       = errors.New("no path found")
)

// Status is the planner state machine.
type Status int

const (
	Idle Status = iota
	Growing
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Growing:
		return "growing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Node is one vertex of the tree. Parent is an index into the node arena
// (-1 for the root), never a live reference, so snapshots are cheap copies.
type Node struct {
	Point  orb.Point `json:"point"`
	Parent int       `json:"parent"`
	Cost   float64   `json:"cost"`
}

// Path is an ordered start-to-goal waypoint sequence. Consecutive waypoints
// are mutually reachable under the planner's step and collision constraints.
type Path []orb.Point

// Length returns the total polyline length of the path.
func (p Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += planar.Distance(p[i-1], p[i])
	}
	return total
}

// Config holds the externally tuned planning parameters. Seed makes the
// random sampling reproducible; Logger defaults to a no-op.
type Config struct {
	StepSize       float64 `json:"stepSize" mapstructure:"stepSize"`
	GoalSampleRate float64 `json:"goalSampleRate" mapstructure:"goalSampleRate"`
	MaxIterations  int     `json:"maxIterations" mapstructure:"maxIterations"`
	GoalTolerance  float64 `json:"goalTolerance" mapstructure:"goalTolerance"`
	Seed           int64   `json:"seed" mapstructure:"seed"`

	Logger zerolog.Logger `json:"-" mapstructure:"-"`
}

// DefaultConfig returns parameters tuned for dense obstacle fields.
func DefaultConfig() Config {
	return Config{
		StepSize:       25,
		GoalSampleRate: 0.20,
		MaxIterations:  5000,
		GoalTolerance:  35,
		Logger:         zerolog.Nop(),
	}
}

// Validate rejects malformed planning parameters.
func (c Config) Validate() error {
	switch {
	case c.StepSize <= 0:
		return fmt.Errorf("planner: step size must be positive, got %v", c.StepSize)
	case c.GoalSampleRate < 0 || c.GoalSampleRate > 1:
		return fmt.Errorf("planner: goal sample rate must be in [0,1], got %v", c.GoalSampleRate)
	case c.MaxIterations <= 0:
		return fmt.Errorf("planner: max iterations must be positive, got %d", c.MaxIterations)
	case c.GoalTolerance <= 0:
		return fmt.Errorf("planner: goal tolerance must be positive, got %v", c.GoalTolerance)
	}
	return nil
}

// Planner owns the tree for the current episode. It is not safe for
// concurrent use; the visualization consumer reads copies via Snapshot.
type Planner struct {
	world *world.World
	cfg   Config
	rng   *rand.Rand
	log   zerolog.Logger

	nodes      []Node
	status     Status
	iterations int
}

// New creates a planner over the given world.
func New(w *world.World, cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Planner{
		world:  w,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		log:    cfg.Logger,
		status: Idle,
	}, nil
}

// Status returns the planner state.
func (p *Planner) Status() Status { return p.status }

// Iterations returns how many iterations the last Plan call ran.
func (p *Planner) Iterations() int { return p.iterations }

// Snapshot returns a copy of the tree for read-only visualization.
func (p *Planner) Snapshot() []Node {
	out := make([]Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Reset discards the tree and returns the planner to Idle.
func (p *Planner) Reset() {
	p.nodes = nil
	p.iterations = 0
	p.status = Idle
}

// Plan grows the tree from start until the goal is connected or the
// iteration budget runs out. Cancellation through ctx is cooperative,
// checked once per iteration.
func (p *Planner) Plan(ctx context.Context, start, goal orb.Point) (Path, error) {
	p.iterations = 0

	if !p.world.IsPointFree(start) {
		p.status = Failed
		return nil, fmt.Errorf("planner: start (%.1f, %.1f): %w", start.X(), start.Y(), ErrInvalidStart)
	}
	if !p.world.IsPointFree(goal) {
		p.status = Failed
		return nil, fmt.Errorf("planner: goal (%.1f, %.1f): %w", goal.X(), goal.Y(), ErrInvalidGoal)
	}

	p.nodes = []Node{{Point: start, Parent: -1}}
	p.status = Growing

	p.log.Info().
		Float64("startX", start.X()).Float64("startY", start.Y()).
		Float64("goalX", goal.X()).Float64("goalY", goal.Y()).
		Msg("planning path")

	rejected := 0
	for i := 0; i < p.cfg.MaxIterations; i++ {
		p.iterations = i + 1

		if err := ctx.Err(); err != nil {
			p.status = Failed
			return nil, fmt.Errorf("planner: canceled after %d iterations: %w", p.iterations, err)
		}

		sample := p.sample(goal)
		nearestIdx := p.nearest(sample)
		candidate, ok := p.steer(p.nodes[nearestIdx].Point, sample)
		if !ok {
			continue
		}

		if !p.world.IsSegmentFree(p.nodes[nearestIdx].Point, candidate) {
			rejected++
			continue
		}

		stepCost := planar.Distance(p.nodes[nearestIdx].Point, candidate)
		p.nodes = append(p.nodes, Node{
			Point:  candidate,
			Parent: nearestIdx,
			Cost:   p.nodes[nearestIdx].Cost + stepCost,
		})
		candidateIdx := len(p.nodes) - 1

		if d := planar.Distance(candidate, goal); d <= p.cfg.GoalTolerance &&
			p.world.IsSegmentFree(candidate, goal) {
			// A goal-biased sample within step range lands exactly on the
			// goal; appending a separate goal node would duplicate it.
			goalIdx := candidateIdx
			if d > 0 {
				p.nodes = append(p.nodes, Node{
					Point:  goal,
					Parent: candidateIdx,
					Cost:   p.nodes[candidateIdx].Cost + d,
				})
				goalIdx = len(p.nodes) - 1
			}
			p.status = Succeeded

			path := p.backtrace(goalIdx)
			p.log.Info().
				Int("iterations", p.iterations).
				Int("nodes", len(p.nodes)).
				Int("rejected", rejected).
				Int("waypoints", len(path)).
				Msg("path found")
			return path, nil
		}
	}

	p.status = Failed
	p.log.Warn().
		Int("iterations", p.iterations).
		Int("nodes", len(p.nodes)).
		Int("rejected", rejected).
		Msg("planning failed")
	return nil, fmt.Errorf("planner: exhausted %d iterations: %w", p.cfg.MaxIterations, ErrNoPath)
}

// sample draws the goal with probability GoalSampleRate, otherwise a
// uniform point over the world bounds.
func (p *Planner) sample(goal orb.Point) orb.Point {
	if p.rng.Float64() < p.cfg.GoalSampleRate {
		return goal
	}
	return orb.Point{
		p.rng.Float64() * p.world.Width(),
		p.rng.Float64() * p.world.Height(),
	}
}

// nearest returns the index of the tree node closest to the sample.
// Linear scan; ties go to the first node found.
func (p *Planner) nearest(sample orb.Point) int {
	best := 0
	bestDist := planar.Distance(p.nodes[0].Point, sample)
	for i := 1; i < len(p.nodes); i++ {
		if d := planar.Distance(p.nodes[i].Point, sample); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// steer returns a point at most StepSize away from `from` toward `to`.
// A target within StepSize is returned as-is, so a reachable sample is
// hit exactly rather than approximated.
func (p *Planner) steer(from, to orb.Point) (orb.Point, bool) {
	dist := planar.Distance(from, to)
	if dist == 0 {
		return orb.Point{}, false
	}
	if dist <= p.cfg.StepSize {
		return to, true
	}
	return orb.Point{
		from.X() + (to.X()-from.X())/dist*p.cfg.StepSize,
		from.Y() + (to.Y()-from.Y())/dist*p.cfg.StepSize,
	}, true
}

// backtrace walks the parent chain from the given node to the root and
// reverses it into start-to-goal order.
func (p *Planner) backtrace(idx int) Path {
	var path Path
	for i := idx; i != -1; i = p.nodes[i].Parent {
		path = append(path, p.nodes[i].Point)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}
