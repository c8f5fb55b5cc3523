// Package scenario loads episode descriptions (world size, obstacles,
// start pose, goal) from JSON files and writes trajectory results back
// out. Malformed obstacle entries are skipped with a warning rather than
// failing the whole file.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"autonav/internal/vehicle"
	"autonav/internal/world"
)

// ObstacleSpec is the JSON form of one obstacle, discriminated by Type:
// "circle" (x, y, radius), "rect" (x, y, width, height) or "polygon"
// (vertices).
type ObstacleSpec struct {
	Type     string       `json:"type"`
	X        float64      `json:"x,omitempty"`
	Y        float64      `json:"y,omitempty"`
	Width    float64      `json:"width,omitempty"`
	Height   float64      `json:"height,omitempty"`
	Radius   float64      `json:"radius,omitempty"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
}

// Scenario is one planning episode as stored on disk.
type Scenario struct {
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Start     vehicle.Pose   `json:"start"`
	GoalX     float64        `json:"goalX"`
	GoalY     float64        `json:"goalY"`
	Obstacles []ObstacleSpec `json:"obstacles"`
}

// Goal returns the goal position as a point.
func (s *Scenario) Goal() orb.Point {
	return orb.Point{s.GoalX, s.GoalY}
}

// Load reads a scenario JSON file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	return &s, nil
}

// BuildObstacles converts the specs into world obstacles, skipping entries
// that cannot be interpreted.
func BuildObstacles(specs []ObstacleSpec, log zerolog.Logger) []world.Obstacle {
	obstacles := make([]world.Obstacle, 0, len(specs))
	for i, spec := range specs {
		obs, err := spec.build()
		if err != nil {
			log.Warn().Int("index", i).Err(err).Msg("skipping obstacle")
			continue
		}
		obstacles = append(obstacles, obs)
	}
	return obstacles
}

func (o ObstacleSpec) build() (world.Obstacle, error) {
	switch o.Type {
	case "circle":
		if o.Radius <= 0 {
			return nil, fmt.Errorf("circle needs a positive radius, got %v", o.Radius)
		}
		return world.NewCircle(o.X, o.Y, o.Radius), nil

	case "rect":
		if o.Width <= 0 || o.Height <= 0 {
			return nil, fmt.Errorf("rect needs positive dimensions, got %vx%v", o.Width, o.Height)
		}
		return world.NewRect(o.X, o.Y, o.Width, o.Height), nil

	case "polygon":
		if len(o.Vertices) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(o.Vertices))
		}
		pts := make([]orb.Point, len(o.Vertices))
		for i, v := range o.Vertices {
			pts[i] = orb.Point{v[0], v[1]}
		}
		return world.NewPolygon(pts...), nil

	default:
		return nil, fmt.Errorf("unknown obstacle type %q", o.Type)
	}
}

// Result is the trajectory output written after an episode.
type Result struct {
	ControllerStatus string         `json:"controllerStatus"`
	PlannerStatus    string         `json:"plannerStatus"`
	Iterations       int            `json:"iterations"`
	Ticks            int            `json:"ticks"`
	Path             [][2]float64   `json:"path,omitempty"`
	Trajectory       []vehicle.Pose `json:"trajectory"`
}

// SaveResult writes the episode result as indented JSON.
func SaveResult(path string, r Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("scenario: marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("scenario: write %s: %w", path, err)
	}
	return nil
}
