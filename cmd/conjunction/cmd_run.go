package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/conjunction/internal/api"
	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/engine"
	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/logging"
	"github.com/talgya/conjunction/internal/persistence"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation and write the configured snapshots.

Summaries and the raspberrypi stream go to stdout; diagnostics go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}

			slog.SetDefault(logging.NewLogger(s.LogLevel, cmd.ErrOrStderr()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rng := entropy.New(s.Seed)
			sim := engine.New(s, rng)
			sim.Stdout = cmd.OutOrStdout()

			slog.Info("conjunction secondary contact simulation",
				"version", version,
				"run", sim.RunID,
				"seed", rng.Seed(),
				"dimension", s.Dimension,
				"generations", s.Generations,
				"deme_size", s.DemeSize,
				"edges", s.LeftRightEdges,
			)

			// ── Database ──────────────────────────────────────────────────────
			var db *persistence.DB
			if s.Database != "" {
				db, err = persistence.Open(s.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := recordRun(db, sim.RunID, s, rng.Seed()); err != nil {
					return err
				}
				sim.Store = db
				slog.Info("database opened", "path", s.Database)
			}

			// ── HTTP API ──────────────────────────────────────────────────────
			if s.Listen != "" {
				srv := &api.Server{Addr: s.Listen, DB: db}
				srv.Publish(sim.Status())
				srv.Start(ctx)
				sim.OnGeneration = srv.Publish
			}

			runErr := sim.Run(ctx)
			if db != nil {
				if err := db.FinishRun(sim.RunID, sim.State().String()); err != nil {
					slog.Error("failed to record run end", "error", err)
				}
			}
			return runErr
		},
	}
	addSettingsFlags(cmd)
	return cmd
}

// recordRun stores the run with its settings, the seed actually used and
// the binary version.
func recordRun(db *persistence.DB, runID string, s config.Settings, seed uint64) error {
	if err := db.BeginRun(runID, s); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	meta := map[string]string{
		"seed":    strconv.FormatUint(seed, 10),
		"version": version,
	}
	for key, value := range meta {
		if err := db.SaveMeta(runID, key, value); err != nil {
			return fmt.Errorf("record run %s: %w", key, err)
		}
	}
	return nil
}
