// Package config holds the simulation settings: defaults, YAML file loading,
// environment overrides, command-line flag binding and validation.
// Order of precedence: defaults -> YAML file -> environment -> flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/talgya/conjunction/internal/logging"
)

// ErrInvalid marks every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// MaxSaves keeps snapshot file numbers at two digits.
const MaxSaves = 99

// AllSelected is the selected_loci value meaning "every locus is selected".
const AllSelected = -1

// Settings contains everything needed to run one simulation.
type Settings struct {
	// Run
	Generations int   `yaml:"generations"`
	Saves       int   `yaml:"saves"`
	Delay       int   `yaml:"delay"`
	Seed        int64 `yaml:"seed"` // 0 = random

	// Space
	Dimension      int          `yaml:"dimension"` // 0, 1 or 2
	LeftRightDemes int          `yaml:"left_right_demes"`
	UpDownDemes    int          `yaml:"up_down_demes"`
	LeftRightEdges EdgeKind     `yaml:"type_of_leftright_edges"`
	UpDownEdges    VerticalKind `yaml:"type_of_updown_edges"`
	EdgesPerDeme   int          `yaml:"edges_per_deme"` // 0 disables migration

	// Genome and selection
	DemeSize     int     `yaml:"deme_size"`
	Chromosomes  int     `yaml:"chromosomes"`
	Loci         int     `yaml:"loci"`
	SelectedLoci int     `yaml:"selected_loci"` // -1 = all loci
	Selection    float64 `yaml:"selection"`
	Beta         float64 `yaml:"beta"`
	Lambda       float64 `yaml:"lambda"` // expected junctions per chromosome per meiosis

	// Output
	Output     string     `yaml:"output"` // file base name, ".tsv" and numbering are appended
	TypeOfSave OutputKind `yaml:"type_of_save"`
	Database   string     `yaml:"database,omitempty"` // SQLite path; empty = no store

	// Runtime
	Workers  int    `yaml:"workers"`          // breeding workers; 0 = one per CPU
	Listen   string `yaml:"listen,omitempty"` // status API address, e.g. ":8080"
	LogLevel string `yaml:"log_level"`
}

// Default returns the settings of a small one-dimensional hybrid zone.
func Default() Settings {
	return Settings{
		Generations:    10,
		Saves:          1,
		Delay:          0,
		Seed:           0,
		Dimension:      1,
		LeftRightDemes: 10,
		UpDownDemes:    1,
		LeftRightEdges: EdgeExtending,
		UpDownEdges:    VerticalReflexive,
		EdgesPerDeme:   2,
		DemeSize:       128,
		Chromosomes:    1,
		Loci:           64,
		SelectedLoci:   AllSelected,
		Selection:      0.5,
		Beta:           1,
		Lambda:         1,
		Output:         "out",
		TypeOfSave:     OutputSummary,
		Workers:        0,
		LogLevel:       "info",
	}
}

// LoadFromFile loads settings from a YAML file on top of the defaults.
func LoadFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading config file: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing config file: %w", err)
	}
	return s, nil
}

// Marshal renders the settings as YAML. The run store keeps this text.
func (s Settings) Marshal() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(out), nil
}

// ApplyEnv applies CONJUNCTION_* environment variable overrides.
func ApplyEnv(s *Settings) {
	if v := os.Getenv("CONJUNCTION_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.Seed = n
		}
	}
	if v := os.Getenv("CONJUNCTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Workers = n
		}
	}
	if v := os.Getenv("CONJUNCTION_DATABASE"); v != "" {
		s.Database = v
	}
	if v := os.Getenv("CONJUNCTION_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

// BindFlags registers one flag per setting, writing into s.
func BindFlags(fs *pflag.FlagSet, s *Settings) {
	fs.IntVar(&s.Generations, "generations", s.Generations, "number of generations to simulate")
	fs.IntVar(&s.Saves, "saves", s.Saves, "number of snapshots to write (last one at the final generation)")
	fs.IntVar(&s.Delay, "delay", s.Delay, "generations to run before the snapshot schedule starts")
	fs.Int64Var(&s.Seed, "seed", s.Seed, "random seed (0 = random)")

	fs.IntVar(&s.Dimension, "dimension", s.Dimension, "spatial dimension: 0 (no space), 1 or 2")
	fs.IntVar(&s.LeftRightDemes, "left-right-demes", s.LeftRightDemes, "number of deme columns")
	fs.IntVar(&s.UpDownDemes, "up-down-demes", s.UpDownDemes, "number of demes per column (2D only)")
	fs.Var(&s.LeftRightEdges, "leftright-edges", "left-right boundary: reflexive, wrapping, extending, infinite")
	fs.Var(&s.UpDownEdges, "updown-edges", "up-down boundary: reflexive, wrapping")
	fs.IntVar(&s.EdgesPerDeme, "edges-per-deme", s.EdgesPerDeme, "migration fan-out per deme (0 disables migration)")

	fs.IntVar(&s.DemeSize, "deme-size", s.DemeSize, "individuals per deme (0D: migrants per generation)")
	fs.IntVar(&s.Chromosomes, "chromosomes", s.Chromosomes, "chromosome pairs per individual")
	fs.IntVar(&s.Loci, "loci", s.Loci, "loci per chromosome")
	fs.IntVar(&s.SelectedLoci, "selected-loci", s.SelectedLoci, "selected loci per chromosome (-1 = all)")
	fs.Float64Var(&s.Selection, "selection", s.Selection, "selection pressure against hybrids")
	fs.Float64Var(&s.Beta, "beta", s.Beta, "shape of the fitness function")
	fs.Float64Var(&s.Lambda, "lambda", s.Lambda, "expected junctions per chromosome per meiosis")

	fs.StringVarP(&s.Output, "output", "o", s.Output, "output file base name")
	fs.VarP(&s.TypeOfSave, "type-of-save", "t", "snapshot type: summary, blocks, hybridIndices, hybridIndicesJunctions, complete, backtrace, raspberrypi, sqlite")
	fs.StringVar(&s.Database, "database", s.Database, "SQLite file recording every snapshot")

	fs.IntVar(&s.Workers, "workers", s.Workers, "parallel breeding workers (0 = one per CPU)")
	fs.StringVar(&s.Listen, "listen", s.Listen, "serve run status over HTTP on this address")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "log level: error, warn, info, debug, trace")
}

// Normalize fills derived values that do not depend on the user.
// One-dimensional worlds always have a single deme per column.
func (s *Settings) Normalize() {
	if s.Dimension == 1 {
		s.UpDownDemes = 1
	}
	if s.SelectedLoci == AllSelected {
		s.SelectedLoci = s.Loci
	}
}

// Validate checks that the settings describe a runnable simulation.
func (s Settings) Validate() error {
	if s.Dimension < 0 || s.Dimension > 2 {
		return fmt.Errorf("%w: dimension must be 0, 1 or 2, got %d", ErrInvalid, s.Dimension)
	}
	if s.Generations < 1 {
		return fmt.Errorf("%w: generations must be positive, got %d", ErrInvalid, s.Generations)
	}
	if s.Delay < 0 || s.Delay >= s.Generations {
		return fmt.Errorf("%w: delay must be in [0, generations), got %d", ErrInvalid, s.Delay)
	}
	if s.Saves < 0 || s.Saves > s.Generations-s.Delay {
		return fmt.Errorf("%w: saves must be in [0, %d], got %d", ErrInvalid, s.Generations-s.Delay, s.Saves)
	}
	if s.Saves > MaxSaves {
		return fmt.Errorf("%w: saves must be at most %d, got %d", ErrInvalid, MaxSaves, s.Saves)
	}
	if s.DemeSize < 1 {
		return fmt.Errorf("%w: deme_size must be positive, got %d", ErrInvalid, s.DemeSize)
	}
	if s.Chromosomes < 1 || s.Loci < 1 {
		return fmt.Errorf("%w: need at least one chromosome and one locus", ErrInvalid)
	}
	if s.SelectedLoci != AllSelected && (s.SelectedLoci < 1 || s.SelectedLoci > s.Loci) {
		return fmt.Errorf("%w: selected_loci must be -1 or in [1, %d], got %d", ErrInvalid, s.Loci, s.SelectedLoci)
	}
	if s.Selection < 0 || s.Beta <= 0 || s.Lambda < 0 {
		return fmt.Errorf("%w: need selection >= 0, beta > 0 and lambda >= 0", ErrInvalid)
	}
	if s.Dimension > 0 {
		if s.LeftRightDemes < 1 || s.UpDownDemes < 1 {
			return fmt.Errorf("%w: grid must have at least one deme in each direction", ErrInvalid)
		}
		if s.EdgesPerDeme < 0 {
			return fmt.Errorf("%w: edges_per_deme must be non-negative, got %d", ErrInvalid, s.EdgesPerDeme)
		}
	}
	if s.Dimension == 0 && s.TypeOfSave == OutputBacktrace {
		return fmt.Errorf("%w: backtrace output is not available for 0D simulations", ErrInvalid)
	}
	if s.TypeOfSave == OutputSQLite && s.Database == "" {
		return fmt.Errorf("%w: sqlite output needs a database path", ErrInvalid)
	}
	if s.TypeOfSave.WritesFile() && s.Saves > 0 && s.Output == "" {
		return fmt.Errorf("%w: output base name is empty", ErrInvalid)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalid, s.Workers)
	}
	if !logging.ValidLevel(s.LogLevel) {
		return fmt.Errorf("%w: log level %q", ErrInvalid, s.LogLevel)
	}
	return nil
}
