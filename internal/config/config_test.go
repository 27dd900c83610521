package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
	if s.LeftRightEdges != EdgeExtending {
		t.Errorf("expected extending edges, got %v", s.LeftRightEdges)
	}
	if s.TypeOfSave != OutputSummary {
		t.Errorf("expected summary output, got %v", s.TypeOfSave)
	}
	if s.SelectedLoci != AllSelected {
		t.Errorf("expected all loci selected, got %d", s.SelectedLoci)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := `
generations: 50
saves: 5
dimension: 2
left_right_demes: 5
up_down_demes: 3
type_of_leftright_edges: wrapping
type_of_updown_edges: wrapping
edges_per_deme: 4
type_of_save: hybridIndicesJunctions
lambda: 2.5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if s.Generations != 50 || s.Saves != 5 || s.Dimension != 2 {
		t.Errorf("unexpected run settings: %+v", s)
	}
	if s.LeftRightEdges != EdgeWrapping || s.UpDownEdges != VerticalWrapping {
		t.Errorf("unexpected edges: %v / %v", s.LeftRightEdges, s.UpDownEdges)
	}
	if s.TypeOfSave != OutputHybridIndicesJunctions {
		t.Errorf("unexpected output kind: %v", s.TypeOfSave)
	}
	if s.Lambda != 2.5 {
		t.Errorf("expected lambda 2.5, got %v", s.Lambda)
	}
	// Untouched keys keep their defaults.
	if s.DemeSize != Default().DemeSize {
		t.Errorf("expected default deme size, got %d", s.DemeSize)
	}
}

func TestLoadFromFileRejectsUnknownEdges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("type_of_leftright_edges: sideways\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected error for unknown edge kind")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s := Default()
	s.TypeOfSave = OutputBlocks
	s.LeftRightEdges = EdgeInfinite
	text, err := s.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	path := filepath.Join(t.TempDir(), "round.yaml")
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back != s {
		t.Errorf("round trip changed settings:\n got %+v\nwant %+v", back, s)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CONJUNCTION_SEED", "42")
	t.Setenv("CONJUNCTION_WORKERS", "3")
	t.Setenv("CONJUNCTION_LOG_LEVEL", "debug")
	t.Setenv("CONJUNCTION_DATABASE", "runs.db")

	s := Default()
	ApplyEnv(&s)
	if s.Seed != 42 || s.Workers != 3 || s.LogLevel != "debug" || s.Database != "runs.db" {
		t.Errorf("env overrides not applied: %+v", s)
	}
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("CONJUNCTION_SEED", "forty-two")
	s := Default()
	ApplyEnv(&s)
	if s.Seed != 0 {
		t.Errorf("expected seed to stay 0, got %d", s.Seed)
	}
}

func TestBindFlags(t *testing.T) {
	s := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, &s)

	args := []string{"--dimension=2", "--leftright-edges=infinite", "--updown-edges=wrapping",
		"-t", "blocks", "--deme-size=64", "--selection=0"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Dimension != 2 || s.DemeSize != 64 || s.Selection != 0 {
		t.Errorf("numeric flags not bound: %+v", s)
	}
	if s.LeftRightEdges != EdgeInfinite || s.UpDownEdges != VerticalWrapping || s.TypeOfSave != OutputBlocks {
		t.Errorf("enum flags not bound: %v %v %v", s.LeftRightEdges, s.UpDownEdges, s.TypeOfSave)
	}

	if err := fs.Parse([]string{"--type-of-save=pdf"}); err == nil {
		t.Error("expected error for unknown output type")
	}
}

func TestNormalize(t *testing.T) {
	s := Default()
	s.Dimension = 1
	s.UpDownDemes = 7
	s.Loci = 20
	s.Normalize()
	if s.UpDownDemes != 1 {
		t.Errorf("1D worlds have one deme per column, got %d", s.UpDownDemes)
	}
	if s.SelectedLoci != 20 {
		t.Errorf("expected all 20 loci selected, got %d", s.SelectedLoci)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"bad dimension", func(s *Settings) { s.Dimension = 3 }},
		{"no generations", func(s *Settings) { s.Generations = 0 }},
		{"delay too large", func(s *Settings) { s.Delay = s.Generations }},
		{"too many saves", func(s *Settings) { s.Generations = 5; s.Saves = 6 }},
		{"three-digit saves", func(s *Settings) { s.Generations = 200; s.Saves = 100 }},
		{"empty deme", func(s *Settings) { s.DemeSize = 0 }},
		{"no loci", func(s *Settings) { s.Loci = 0 }},
		{"selected above loci", func(s *Settings) { s.SelectedLoci = s.Loci + 1 }},
		{"negative lambda", func(s *Settings) { s.Lambda = -1 }},
		{"zero beta", func(s *Settings) { s.Beta = 0 }},
		{"negative edges", func(s *Settings) { s.EdgesPerDeme = -1 }},
		{"backtrace in 0D", func(s *Settings) { s.Dimension = 0; s.TypeOfSave = OutputBacktrace }},
		{"sqlite without database", func(s *Settings) { s.TypeOfSave = OutputSQLite }},
		{"unknown log level", func(s *Settings) { s.LogLevel = "chatty" }},
		{"negative workers", func(s *Settings) { s.Workers = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	if k, err := ParseEdgeKind("Wrapping"); err != nil || k != EdgeWrapping {
		t.Errorf("ParseEdgeKind(Wrapping) = %v, %v", k, err)
	}
	if _, err := ParseVerticalKind("extending"); err == nil {
		t.Error("extending is not a valid up-down boundary")
	}
	if k, err := ParseOutputKind("RASPBERRYPI"); err != nil || k != OutputRaspberryPi {
		t.Errorf("ParseOutputKind(RASPBERRYPI) = %v, %v", k, err)
	}
	if OutputSQLite.WritesFile() || OutputRaspberryPi.WritesFile() || !OutputComplete.WritesFile() {
		t.Error("WritesFile mismatch")
	}
}
