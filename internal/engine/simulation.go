package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/logging"
	"github.com/talgya/conjunction/internal/world"
)

// State is the lifecycle stage of a Simulation.
type State int32

const (
	StateConfigured State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Store records snapshots outside the output files.
type Store interface {
	SaveSnapshot(runID string, generation, order int, w *world.World) error
}

// Status is a point-in-time view of a run.
type Status struct {
	RunID           string  `json:"run_id"`
	State           string  `json:"state"`
	Generation      int     `json:"generation"`
	Generations     int     `json:"generations"`
	Dimension       int     `json:"dimension"`
	Demes           int     `json:"demes"`
	Population      int     `json:"population"`
	MeanHybridIndex float64 `json:"mean_hybrid_index"`
	Snapshots       int     `json:"snapshots"`
}

// Simulation owns one World and runs it for the configured generations.
type Simulation struct {
	Settings config.Settings
	World    *world.World
	Store    Store // optional
	RunID    string
	Stdout   io.Writer // summaries and the raspberrypi stream

	// OnGeneration is called after every generation.
	OnGeneration func(Status)

	state      atomic.Int32
	generation int
	snapshots  int
}

// New creates a simulation of validated settings.
func New(s config.Settings, rng *entropy.Stream) *Simulation {
	s.Normalize()
	return &Simulation{
		Settings: s,
		World:    world.New(s, rng),
		RunID:    uuid.NewString(),
		Stdout:   os.Stdout,
	}
}

// State returns the current lifecycle stage. Safe for concurrent use.
func (sim *Simulation) State() State { return State(sim.state.Load()) }

// Run rebuilds the world and runs every generation: migration, breeding and
// a snapshot when the schedule says so. A failed save or a cancelled
// context aborts the run.
func (sim *Simulation) Run(ctx context.Context) error {
	s := sim.Settings
	sched := NewSchedule(s.Generations, s.Delay, s.Saves)
	sim.state.Store(int32(StateRunning))
	sim.generation, sim.snapshots = 0, 0

	if s.Saves > 0 && s.TypeOfSave.WritesFile() {
		slog.Info("output",
			"file", FileName(s.Output, s.Saves, 1),
			"type", s.TypeOfSave,
			"files", s.Saves,
			"every", sched.Modulo(),
		)
	}

	if err := sim.World.Restart(); err != nil {
		return sim.fail(fmt.Errorf("restart world: %w", err))
	}
	slog.Info("world is reset", "world", sim.World.String())

	started := time.Now()
	for i := 0; i < s.Generations; i++ {
		if err := ctx.Err(); err != nil {
			return sim.fail(err)
		}

		t := time.Now()
		rep, err := sim.World.Migrate()
		if err != nil {
			return sim.fail(fmt.Errorf("generation %d: migrate: %w", i+1, err))
		}
		if err := sim.World.Breed(ctx); err != nil {
			return sim.fail(fmt.Errorf("generation %d: breed: %w", i+1, err))
		}
		sim.generation = i + 1

		slog.Debug("generation done",
			"generation", i+1,
			"took", time.Since(t),
			"population", humanize.Comma(int64(sim.World.Population())),
			"migrants", rep.Migrants,
		)
		if rep.GrownLeft > 0 || rep.GrownRight > 0 {
			slog.Info("grid grew",
				"generation", i+1,
				"left", rep.GrownLeft,
				"right", rep.GrownRight,
				"demes", sim.World.DemeCount(),
			)
		}

		if order, ok := sched.Order(i); ok {
			if err := sim.snapshot(i+1, order); err != nil {
				return sim.fail(err)
			}
		}

		if sim.OnGeneration != nil {
			sim.OnGeneration(sim.Status())
		}
	}

	if s.TypeOfSave != config.OutputRaspberryPi && sim.Stdout != nil {
		if err := sim.World.Summary(sim.Stdout); err != nil {
			return sim.fail(fmt.Errorf("final summary: %w", err))
		}
	}
	slog.Info("simulation finished",
		"generations", s.Generations,
		"snapshots", sim.snapshots,
		"took", time.Since(started).Round(time.Millisecond),
	)

	sim.World.Clear()
	sim.state.Store(int32(StateCompleted))
	if sim.OnGeneration != nil {
		sim.OnGeneration(sim.Status())
	}
	return nil
}

// snapshot writes the summary to stdout and the configured output.
func (sim *Simulation) snapshot(generation, order int) error {
	s := sim.Settings
	kind := s.TypeOfSave

	if kind != config.OutputRaspberryPi && sim.Stdout != nil {
		if err := sim.World.Summary(sim.Stdout); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
	}

	switch {
	case kind.WritesFile():
		name := FileName(s.Output, s.Saves, order)
		slog.Info("saving output", "file", name, "generation", generation)
		if err := sim.World.Save(kind, name, sim.Stdout); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	case kind == config.OutputRaspberryPi:
		if err := sim.World.Save(kind, "", sim.Stdout); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	if slog.Default().Enabled(context.Background(), logging.LevelTrace) {
		for _, st := range sim.World.Stats() {
			slog.Log(context.Background(), logging.LevelTrace, "deme",
				"generation", generation,
				"x", st.X, "y", st.Y,
				"size", st.Size,
				"mean_hi", st.MeanHI,
				"ld", st.LD,
			)
		}
	}

	if sim.Store != nil {
		if err := sim.Store.SaveSnapshot(sim.RunID, generation, order, sim.World); err != nil {
			return fmt.Errorf("store snapshot %d: %w", order, err)
		}
	}
	sim.snapshots++
	return nil
}

func (sim *Simulation) fail(err error) error {
	sim.state.Store(int32(StateFailed))
	slog.Error("simulation failed", "generation", sim.generation, "error", err)
	return err
}

// Status returns the current view of the run. Call it from the goroutine
// running the simulation, e.g. inside OnGeneration.
func (sim *Simulation) Status() Status {
	return Status{
		RunID:           sim.RunID,
		State:           sim.State().String(),
		Generation:      sim.generation,
		Generations:     sim.Settings.Generations,
		Dimension:       sim.Settings.Dimension,
		Demes:           sim.World.DemeCount(),
		Population:      sim.World.Population(),
		MeanHybridIndex: sim.World.MeanHybridIndex(),
		Snapshots:       sim.snapshots,
	}
}
