// navsim runs one plan-and-follow episode from a scenario file and writes
// the resulting trajectory as JSON.
//
// Usage: navsim <scenario.json>
//
// Tuning comes from viper: defaults below, optionally overridden by a
// navsim.cfg.json in the working directory.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"autonav/internal/pursuit"
	"autonav/internal/scenario"
	"autonav/internal/sim"
)

func loadConfig() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("out", "trajectory.json")
	viper.SetDefault("maxTicks", 20000)
	viper.SetDefault("planTimeout", "30s")
	viper.SetDefault("dt", 1.0)

	viper.SetDefault("planner.stepSize", 25.0)
	viper.SetDefault("planner.goalSampleRate", 0.20)
	viper.SetDefault("planner.maxIterations", 5000)
	viper.SetDefault("planner.goalTolerance", 35.0)
	viper.SetDefault("planner.seed", time.Now().UnixNano())

	viper.SetDefault("controller.lookahead", 40.0)
	viper.SetDefault("controller.baseSpeed", 2.5)
	viper.SetDefault("controller.goalTolerance", 50.0)
	viper.SetDefault("controller.slowdownRadius", 100.0)

	viper.SetConfigName("navsim.cfg.json")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")

	// A missing config file is fine; the defaults stand.
	_ = viper.ReadInConfig()
}

func main() {
	loadConfig()

	level, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: navsim <scenario.json>")
	}

	sc, err := scenario.Load(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("loading scenario")
	}

	cfg := sim.DefaultConfig()
	cfg.WorldWidth = sc.Width
	cfg.WorldHeight = sc.Height
	cfg.DT = viper.GetFloat64("dt")
	cfg.Planner.StepSize = viper.GetFloat64("planner.stepSize")
	cfg.Planner.GoalSampleRate = viper.GetFloat64("planner.goalSampleRate")
	cfg.Planner.MaxIterations = viper.GetInt("planner.maxIterations")
	cfg.Planner.GoalTolerance = viper.GetFloat64("planner.goalTolerance")
	cfg.Planner.Seed = viper.GetInt64("planner.seed")
	cfg.Controller.Lookahead = viper.GetFloat64("controller.lookahead")
	cfg.Controller.BaseSpeed = viper.GetFloat64("controller.baseSpeed")
	cfg.Controller.GoalTolerance = viper.GetFloat64("controller.goalTolerance")
	cfg.Controller.SlowdownRadius = viper.GetFloat64("controller.slowdownRadius")

	obstacles := scenario.BuildObstacles(sc.Obstacles, log)
	log.Info().
		Int("obstacles", len(obstacles)).
		Float64("width", cfg.WorldWidth).Float64("height", cfg.WorldHeight).
		Msg("scenario loaded")

	episode, err := sim.New(cfg, obstacles, sc.Start, log)
	if err != nil {
		log.Fatal().Err(err).Msg("building simulation")
	}

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("planTimeout"))
	defer cancel()

	if err := episode.PlanTo(ctx, sc.Goal()); err != nil {
		writeResult(episode, log)
		log.Fatal().Err(err).Msg("planning failed")
	}

	maxTicks := viper.GetInt("maxTicks")
	for tick := 0; tick < maxTicks; tick++ {
		status := episode.ControllerStatus()
		if status == pursuit.GoalReached || status == pursuit.Aborted {
			break
		}
		episode.Tick()
	}

	log.Info().
		Str("controller", episode.ControllerStatus().String()).
		Int("ticks", episode.Ticks()).
		Float64("x", episode.Pose().X).Float64("y", episode.Pose().Y).
		Msg("episode finished")

	writeResult(episode, log)
}

func writeResult(episode *sim.Simulation, log zerolog.Logger) {
	path := make([][2]float64, len(episode.Path()))
	for i, p := range episode.Path() {
		path[i] = [2]float64(p)
	}

	result := scenario.Result{
		ControllerStatus: episode.ControllerStatus().String(),
		PlannerStatus:    episode.PlannerStatus().String(),
		Iterations:       episode.PlannerIterations(),
		Ticks:            episode.Ticks(),
		Path:             path,
		Trajectory:       episode.Trajectory(),
	}

	out := viper.GetString("out")
	if err := scenario.SaveResult(out, result); err != nil {
		log.Error().Err(err).Msg("writing result")
		return
	}
	log.Info().Str("file", out).Msg("result written")
}
