// Package pursuit implements the Pure Pursuit path-following control law:
// steer toward a point a fixed lookahead distance ahead on the reference
// curve, slow down for sharp steering and on final approach.
package pursuit

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/planar"

	"autonav/internal/geom"
	"autonav/internal/spline"
	"autonav/internal/vehicle"
)

// Status is the follower state machine.
type Status int

const (
	Inactive Status = iota
	Following
	GoalReached
	Aborted
)

func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Following:
		return "following"
	case GoalReached:
		return "goal_reached"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Config holds the follower tuning. Distances are in world units.
type Config struct {
	Lookahead      float64 `json:"lookahead" mapstructure:"lookahead"`
	BaseSpeed      float64 `json:"baseSpeed" mapstructure:"baseSpeed"`
	GoalTolerance  float64 `json:"goalTolerance" mapstructure:"goalTolerance"`
	SlowdownRadius float64 `json:"slowdownRadius" mapstructure:"slowdownRadius"`
}

// DefaultConfig returns the follower tuning matched to the default vehicle.
func DefaultConfig() Config {
	return Config{
		Lookahead:      40,
		BaseSpeed:      2.5,
		GoalTolerance:  50,
		SlowdownRadius: 100,
	}
}

// Validate rejects malformed follower parameters.
func (c Config) Validate() error {
	switch {
	case c.Lookahead <= 0:
		return fmt.Errorf("pursuit: lookahead must be positive, got %v", c.Lookahead)
	case c.BaseSpeed <= 0:
		return fmt.Errorf("pursuit: base speed must be positive, got %v", c.BaseSpeed)
	case c.GoalTolerance <= 0:
		return fmt.Errorf("pursuit: goal tolerance must be positive, got %v", c.GoalTolerance)
	case c.SlowdownRadius <= 0:
		return fmt.Errorf("pursuit: slowdown radius must be positive, got %v", c.SlowdownRadius)
	}
	return nil
}

// Controller tracks progress along one curve. Progress is an arc-length
// pointer that never recedes; replacing the curve resets it.
type Controller struct {
	cfg         Config
	wheelbase   float64
	maxSteering float64

	curve    *spline.Curve
	progress float64
	status   Status
}

// New creates a controller for a vehicle with the given wheelbase and
// steering limit.
func New(wheelbase, maxSteering float64, cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if wheelbase <= 0 {
		return nil, fmt.Errorf("pursuit: wheelbase must be positive, got %v", wheelbase)
	}
	if maxSteering <= 0 {
		return nil, fmt.Errorf("pursuit: max steering must be positive, got %v", maxSteering)
	}
	return &Controller{
		cfg:         cfg,
		wheelbase:   wheelbase,
		maxSteering: maxSteering,
		status:      Inactive,
	}, nil
}

// SetCurve replaces the reference curve wholesale and starts following.
func (c *Controller) SetCurve(curve *spline.Curve) {
	c.curve = curve
	c.progress = 0
	c.status = Following
}

// Clear drops the curve and returns to Inactive.
func (c *Controller) Clear() {
	c.curve = nil
	c.progress = 0
	c.status = Inactive
}

// Abort stops following, keeping the curve for inspection. Used when a
// collision risk is detected or following is canceled externally.
func (c *Controller) Abort() {
	if c.status == Following {
		c.status = Aborted
	}
}

// Status returns the follower state.
func (c *Controller) Status() Status { return c.status }

// Progress returns the arc-length progress pointer.
func (c *Controller) Progress() float64 { return c.progress }

// Step computes one control tick: a steering command (wheel angle, clamped
// to the steering limit) and a speed command. Outside Following both are
// zero.
func (c *Controller) Step(pose vehicle.Pose) (steerCmd, speedCmd float64) {
	if c.status != Following || c.curve == nil {
		return 0, 0
	}

	pos := pose.Position()

	distToGoal := planar.Distance(pos, c.curve.End())
	if distToGoal <= c.cfg.GoalTolerance {
		c.status = GoalReached
		return 0, 0
	}

	// Advance the progress pointer to the closest curve point at or past
	// the current one, then look ahead along the arc.
	c.progress = c.curve.NearestLength(pos, c.progress)
	target := c.curve.AtLength(c.progress + c.cfg.Lookahead)

	// Angle to the target in the vehicle frame.
	alpha := geom.NormalizeHeading(
		math.Atan2(target.Y()-pose.Y, target.X()-pose.X) - pose.Heading)

	steerCmd = math.Atan2(2*c.wheelbase*math.Sin(alpha), c.cfg.Lookahead)
	if steerCmd > c.maxSteering {
		steerCmd = c.maxSteering
	} else if steerCmd < -c.maxSteering {
		steerCmd = -c.maxSteering
	}

	// Sharper steering commands lower speed; the final approach tapers it
	// to zero at the goal.
	angleFactor := 1 - 0.5*math.Abs(steerCmd)/c.maxSteering
	speedCmd = c.cfg.BaseSpeed * angleFactor
	if distToGoal < c.cfg.SlowdownRadius {
		approach := c.cfg.BaseSpeed * math.Min(0.5, distToGoal/c.cfg.SlowdownRadius)
		if approach < speedCmd {
			speedCmd = approach
		}
	}

	return steerCmd, speedCmd
}
