// Package sim is the simulation driver: it owns the vehicle pose, the
// current plan and the follower, and advances everything one tick at a
// time. Components never call each other behind its back, and a replan
// replaces the published path and curve wholesale.
package sim

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"autonav/internal/planner"
	"autonav/internal/pursuit"
	"autonav/internal/spline"
	"autonav/internal/vehicle"
	"autonav/internal/world"
)

// Config aggregates the per-episode tuning. DT is the fixed control tick.
type Config struct {
	WorldWidth  float64 `json:"worldWidth" mapstructure:"worldWidth"`
	WorldHeight float64 `json:"worldHeight" mapstructure:"worldHeight"`
	DT          float64 `json:"dt" mapstructure:"dt"`

	Vehicle    vehicle.Config `json:"vehicle" mapstructure:"vehicle"`
	Planner    planner.Config `json:"planner" mapstructure:"planner"`
	Controller pursuit.Config `json:"controller" mapstructure:"controller"`
}

// DefaultConfig returns a frame-based (dt = 1) setup on a 1500x900 world.
func DefaultConfig() Config {
	return Config{
		WorldWidth:  1500,
		WorldHeight: 900,
		DT:          1,
		Vehicle:     vehicle.DefaultConfig(),
		Planner:     planner.DefaultConfig(),
		Controller:  pursuit.DefaultConfig(),
	}
}

// Simulation drives one plan-and-follow episode. It is single-threaded:
// one Tick per control period, no background work.
type Simulation struct {
	cfg   Config
	log   zerolog.Logger
	model *vehicle.Model
	world *world.World
	plan  *planner.Planner
	ctrl  *pursuit.Controller

	pose  vehicle.Pose
	path  planner.Path
	curve *spline.Curve
	traj  []vehicle.Pose
	ticks int
}

// New builds the full pipeline over the obstacle set. The world is
// inflated by the vehicle safety radius so the planner can treat the
// vehicle as a point.
func New(cfg Config, obstacles []world.Obstacle, start vehicle.Pose, log zerolog.Logger) (*Simulation, error) {
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("sim: dt must be positive, got %v", cfg.DT)
	}

	model, err := vehicle.NewModel(cfg.Vehicle)
	if err != nil {
		return nil, err
	}

	w, err := world.New(cfg.WorldWidth, cfg.WorldHeight, obstacles)
	if err != nil {
		return nil, err
	}
	w.Inflate(model.SafetyRadius())

	plannerCfg := cfg.Planner
	plannerCfg.Logger = log
	pl, err := planner.New(w, plannerCfg)
	if err != nil {
		return nil, err
	}

	ctrl, err := pursuit.New(model.Wheelbase(), cfg.Vehicle.MaxSteering, cfg.Controller)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		cfg:   cfg,
		log:   log,
		model: model,
		world: w,
		plan:  pl,
		ctrl:  ctrl,
		pose:  start,
		traj:  []vehicle.Pose{start},
	}, nil
}

// PlanTo plans from the current pose to goal, smooths the result and hands
// the curve to the follower. On failure the previous path is kept.
func (s *Simulation) PlanTo(ctx context.Context, goal orb.Point) error {
	path, err := s.plan.Plan(ctx, s.pose.Position(), goal)
	if err != nil {
		return err
	}

	curve, err := spline.Fit(path)
	if err != nil {
		return err
	}

	s.path = path
	s.curve = curve
	s.ctrl.SetCurve(curve)

	s.log.Info().
		Int("waypoints", len(path)).
		Float64("pathLength", path.Length()).
		Float64("curveLength", curve.Length()).
		Msg("following new path")
	return nil
}

// Tick advances the episode by one control period: follower step, actuator
// ramping, kinematic integration, footprint collision check.
func (s *Simulation) Tick() {
	dt := s.cfg.DT

	if s.ctrl.Status() == pursuit.Following {
		steerTarget, speedTarget := s.ctrl.Step(s.pose)

		// Actuators ramp toward the commands instead of jumping.
		steerCmd := approach(s.pose.Steering, steerTarget, s.cfg.Vehicle.SteerRate*dt)
		accelCmd := 0.0
		if s.pose.Speed < speedTarget {
			accelCmd = s.cfg.Vehicle.Acceleration
		} else if s.pose.Speed > speedTarget {
			accelCmd = -s.cfg.Vehicle.Deceleration
		}

		s.pose = s.model.Integrate(s.pose, steerCmd, accelCmd, dt)

		if !s.world.FootprintFree(s.model.Footprint(s.pose)) {
			s.ctrl.Abort()
			s.pose.Speed = 0
			s.log.Warn().
				Float64("x", s.pose.X).Float64("y", s.pose.Y).
				Msg("collision during following, aborted")
		}

		if s.ctrl.Status() == pursuit.GoalReached {
			s.pose.Speed = 0
			s.log.Info().Int("ticks", s.ticks).Msg("goal reached")
		}
	}

	s.ticks++
	s.traj = append(s.traj, s.pose)
}

// ClearPath drops the current path, curve and follower state, and resets
// the planner tree.
func (s *Simulation) ClearPath() {
	s.path = nil
	s.curve = nil
	s.ctrl.Clear()
	s.plan.Reset()
}

// AbortFollowing cancels following without clearing the plan.
func (s *Simulation) AbortFollowing() {
	s.ctrl.Abort()
}

// Pose returns the current vehicle pose.
func (s *Simulation) Pose() vehicle.Pose { return s.pose }

// Path returns the raw planned waypoints.
func (s *Simulation) Path() planner.Path { return s.path }

// CurveSamples returns the smoothed path geometry for drawing, or nil when
// no plan is active.
func (s *Simulation) CurveSamples() []orb.Point {
	if s.curve == nil {
		return nil
	}
	return s.curve.Samples()
}

// PlannerSnapshot returns a read-only copy of the planner tree.
func (s *Simulation) PlannerSnapshot() []planner.Node { return s.plan.Snapshot() }

// PlannerStatus returns the planner state.
func (s *Simulation) PlannerStatus() planner.Status { return s.plan.Status() }

// PlannerIterations returns the iteration count of the last plan.
func (s *Simulation) PlannerIterations() int { return s.plan.Iterations() }

// ControllerStatus returns the follower state.
func (s *Simulation) ControllerStatus() pursuit.Status { return s.ctrl.Status() }

// Ticks returns the number of control periods elapsed.
func (s *Simulation) Ticks() int { return s.ticks }

// Trajectory returns the recorded pose history, one entry per tick plus
// the initial pose.
func (s *Simulation) Trajectory() []vehicle.Pose {
	out := make([]vehicle.Pose, len(s.traj))
	copy(out, s.traj)
	return out
}

// approach moves current toward target by at most maxDelta.
func approach(current, target, maxDelta float64) float64 {
	if d := target - current; d > maxDelta {
		return current + maxDelta
	} else if d < -maxDelta {
		return current - maxDelta
	}
	return target
}
