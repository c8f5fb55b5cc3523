// navserver exposes the planning pipeline over HTTP: POST /plan runs the
// planner and smoother for a submitted scenario, POST /simulate runs a
// full plan-and-follow episode, GET /health reports liveness.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"autonav/internal/planner"
	"autonav/internal/pursuit"
	"autonav/internal/scenario"
	"autonav/internal/sim"
	"autonav/internal/vehicle"
)

const planTimeout = 30 * time.Second

type planRequest struct {
	Width     float64                 `json:"width"`
	Height    float64                 `json:"height"`
	Start     vehicle.Pose            `json:"start"`
	GoalX     float64                 `json:"goalX"`
	GoalY     float64                 `json:"goalY"`
	Obstacles []scenario.ObstacleSpec `json:"obstacles"`
	Seed      int64                   `json:"seed"`
}

type planResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	Status     string       `json:"status"`
	Iterations int          `json:"iterations"`
	Path       [][2]float64 `json:"path,omitempty"`
	Smoothed   [][2]float64 `json:"smoothed,omitempty"`
	PathLength float64      `json:"pathLength,omitempty"`
}

type simulateRequest struct {
	planRequest
	MaxTicks int `json:"maxTicks"`
}

type simulateResponse struct {
	planResponse
	ControllerStatus string         `json:"controllerStatus"`
	Ticks            int            `json:"ticks"`
	FinalPose        vehicle.Pose   `json:"finalPose"`
	Trajectory       []vehicle.Pose `json:"trajectory,omitempty"`
}

type server struct {
	log zerolog.Logger
}

// corsMiddleware adds CORS headers so a browser frontend can call the API.
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *server) buildConfig(req planRequest) sim.Config {
	cfg := sim.DefaultConfig()
	if req.Width > 0 {
		cfg.WorldWidth = req.Width
	}
	if req.Height > 0 {
		cfg.WorldHeight = req.Height
	}
	cfg.Planner.Seed = req.Seed
	return cfg
}

func (s *server) runEpisode(ctx context.Context, req planRequest, maxTicks int) (*sim.Simulation, planResponse) {
	cfg := s.buildConfig(req)
	obstacles := scenario.BuildObstacles(req.Obstacles, s.log)

	episode, err := sim.New(cfg, obstacles, req.Start, s.log)
	if err != nil {
		return nil, planResponse{Message: err.Error(), Status: planner.Idle.String()}
	}

	if err := episode.PlanTo(ctx, orb.Point{req.GoalX, req.GoalY}); err != nil {
		resp := planResponse{
			Message:    planMessage(err),
			Status:     episode.PlannerStatus().String(),
			Iterations: episode.PlannerIterations(),
		}
		return episode, resp
	}

	resp := planResponse{
		Success:    true,
		Status:     episode.PlannerStatus().String(),
		Iterations: episode.PlannerIterations(),
		Path:       toPairs(episode.Path()),
		Smoothed:   toPairs(episode.CurveSamples()),
		PathLength: episode.Path().Length(),
	}

	for tick := 0; tick < maxTicks; tick++ {
		status := episode.ControllerStatus()
		if status == pursuit.GoalReached || status == pursuit.Aborted {
			break
		}
		episode.Tick()
	}

	return episode, resp
}

func (s *server) planHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.log.Info().
		Float64("startX", req.Start.X).Float64("startY", req.Start.Y).
		Float64("goalX", req.GoalX).Float64("goalY", req.GoalY).
		Int("obstacles", len(req.Obstacles)).
		Msg("plan request")

	ctx, cancel := context.WithTimeout(r.Context(), planTimeout)
	defer cancel()

	_, resp := s.runEpisode(ctx, req, 0)
	writeJSON(w, resp)
}

func (s *server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxTicks <= 0 {
		req.MaxTicks = 10000
	}

	s.log.Info().
		Float64("goalX", req.GoalX).Float64("goalY", req.GoalY).
		Int("maxTicks", req.MaxTicks).
		Msg("simulate request")

	ctx, cancel := context.WithTimeout(r.Context(), planTimeout)
	defer cancel()

	episode, resp := s.runEpisode(ctx, req.planRequest, req.MaxTicks)

	out := simulateResponse{planResponse: resp}
	if episode != nil {
		out.ControllerStatus = episode.ControllerStatus().String()
		out.Ticks = episode.Ticks()
		out.FinalPose = episode.Pose()
		out.Trajectory = episode.Trajectory()
	}
	writeJSON(w, out)
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ready"})
}

// planMessage maps planner errors onto stable API messages.
func planMessage(err error) string {
	switch {
	case errors.Is(err, planner.ErrInvalidStart):
		return "start position is blocked"
	case errors.Is(err, planner.ErrInvalidGoal):
		return "goal position is blocked"
	case errors.Is(err, planner.ErrNoPath):
		return "no path found within the iteration budget"
	default:
		return err.Error()
	}
}

func toPairs(points []orb.Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64(p)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	addr := ":8080"
	if v := os.Getenv("NAVSERVER_ADDR"); v != "" {
		addr = v
	}

	s := &server{log: log}
	http.HandleFunc("/plan", corsMiddleware(s.planHandler))
	http.HandleFunc("/simulate", corsMiddleware(s.simulateHandler))
	http.HandleFunc("/health", corsMiddleware(s.healthHandler))

	log.Info().Str("addr", addr).Msg("navserver listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
