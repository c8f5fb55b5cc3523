// Package vehicle models an Ackermann-steered car with a single-track
// (bicycle) kinematic approximation. The model is the single source of
// truth for reachability: the planner uses its step limits and the
// controller simulates forward through it.
package vehicle

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"autonav/internal/geom"
)

// Pose is the full vehicle state. Heading is in radians, normalized to
// (-pi, pi]. Speed and Steering carry the current actuator state.
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Heading  float64 `json:"heading"`
	Speed    float64 `json:"speed"`
	Steering float64 `json:"steering"`
}

// Position returns the pose location as a point.
func (p Pose) Position() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Config holds the vehicle geometry and actuator limits. Distances and
// speeds are in world units; angles in radians.
type Config struct {
	Wheelbase    float64 `json:"wheelbase" mapstructure:"wheelbase"`
	Width        float64 `json:"width" mapstructure:"width"`
	Length       float64 `json:"length" mapstructure:"length"`
	MaxSpeed     float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	MaxSteering  float64 `json:"maxSteering" mapstructure:"maxSteering"`
	Acceleration float64 `json:"acceleration" mapstructure:"acceleration"`
	Deceleration float64 `json:"deceleration" mapstructure:"deceleration"`
	SteerRate    float64 `json:"steerRate" mapstructure:"steerRate"`
	Clearance    float64 `json:"clearance" mapstructure:"clearance"`
}

// DefaultConfig returns the reference car used by the simulator.
func DefaultConfig() Config {
	return Config{
		Wheelbase:    24.5, // 0.7 * length
		Width:        20,
		Length:       35,
		MaxSpeed:     2.5,
		MaxSteering:  45 * math.Pi / 180,
		Acceleration: 0.2,
		Deceleration: 0.6,
		SteerRate:    3 * math.Pi / 180,
		Clearance:    5,
	}
}

// Validate rejects malformed configuration. A bad vehicle config is the
// one unrecoverable error in the pipeline, so it fails at construction.
func (c Config) Validate() error {
	switch {
	case c.Wheelbase <= 0:
		return fmt.Errorf("vehicle: wheelbase must be positive, got %v", c.Wheelbase)
	case c.Width <= 0 || c.Length <= 0:
		return fmt.Errorf("vehicle: dimensions must be positive, got %vx%v", c.Width, c.Length)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("vehicle: max speed must be positive, got %v", c.MaxSpeed)
	case c.MaxSteering <= 0 || c.MaxSteering >= math.Pi/2:
		return fmt.Errorf("vehicle: max steering must be in (0, pi/2), got %v", c.MaxSteering)
	case c.Acceleration <= 0 || c.Deceleration <= 0:
		return fmt.Errorf("vehicle: acceleration rates must be positive")
	case c.SteerRate <= 0:
		return fmt.Errorf("vehicle: steer rate must be positive, got %v", c.SteerRate)
	case c.Clearance < 0:
		return fmt.Errorf("vehicle: clearance must not be negative, got %v", c.Clearance)
	}
	return nil
}

// Model integrates poses under the bicycle kinematics. It is stateless and
// deterministic: the same inputs always produce the same pose.
type Model struct {
	cfg Config
}

// NewModel validates the config and returns a model.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Config returns the vehicle configuration.
func (m *Model) Config() Config { return m.cfg }

// Wheelbase returns the front-to-rear axle distance.
func (m *Model) Wheelbase() float64 { return m.cfg.Wheelbase }

// SafetyRadius is the footprint margin used to inflate obstacles so the
// planner can treat the vehicle as a point.
func (m *Model) SafetyRadius() float64 {
	return math.Max(m.cfg.Width, m.cfg.Length)/2 + m.cfg.Clearance
}

// Integrate advances the pose by dt under a steering command (target wheel
// angle) and an acceleration command. Motion uses the pre-update speed and
// steering; the commands take effect on the returned pose.
//
//	heading' = heading + (speed / wheelbase) * tan(steering) * dt
//	x'       = x + speed * cos(heading) * dt
//	y'       = y + speed * sin(heading) * dt
func (m *Model) Integrate(p Pose, steerCmd, accelCmd, dt float64) Pose {
	next := p

	next.Heading = geom.NormalizeHeading(
		p.Heading + (p.Speed/m.cfg.Wheelbase)*math.Tan(p.Steering)*dt)
	next.X = p.X + p.Speed*math.Cos(p.Heading)*dt
	next.Y = p.Y + p.Speed*math.Sin(p.Heading)*dt

	next.Speed = clamp(p.Speed+accelCmd*dt, -m.cfg.MaxSpeed, m.cfg.MaxSpeed)
	next.Steering = clamp(steerCmd, -m.cfg.MaxSteering, m.cfg.MaxSteering)

	return next
}

// Footprint returns the four body corners of the vehicle at the given pose,
// in rear-left, rear-right, front-right, front-left order.
func (m *Model) Footprint(p Pose) []orb.Point {
	halfL := m.cfg.Length / 2
	halfW := m.cfg.Width / 2

	local := [4][2]float64{
		{-halfL, -halfW},
		{-halfL, halfW},
		{halfL, halfW},
		{halfL, -halfW},
	}

	sin, cos := math.Sincos(p.Heading)
	corners := make([]orb.Point, 0, 4)
	for _, c := range local {
		corners = append(corners, orb.Point{
			p.X + c[0]*cos - c[1]*sin,
			p.Y + c[0]*sin + c[1]*cos,
		})
	}
	return corners
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
