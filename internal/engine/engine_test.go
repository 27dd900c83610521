package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/world"
)

func TestScheduleTakesExactlySaves(t *testing.T) {
	tests := []struct {
		generations, delay, saves int
	}{
		{10, 0, 1},
		{10, 0, 3},
		{10, 0, 7},
		{10, 0, 10},
		{25, 5, 4},
		{100, 0, 11},
		{7, 6, 1},
	}
	for _, tt := range tests {
		s := NewSchedule(tt.generations, tt.delay, tt.saves)
		var ticks []int
		for i := 0; i < tt.generations; i++ {
			order, ok := s.Order(i)
			if !ok {
				continue
			}
			if order != len(ticks)+1 {
				t.Fatalf("%+v: tick %d has order %d", tt, i, order)
			}
			if i < tt.delay {
				t.Fatalf("%+v: snapshot at %d inside the delay", tt, i)
			}
			ticks = append(ticks, i)
		}
		if len(ticks) != tt.saves {
			t.Fatalf("%+v: %d snapshots, want %d", tt, len(ticks), tt.saves)
		}
		if last := ticks[len(ticks)-1]; last != tt.generations-1 {
			t.Fatalf("%+v: last snapshot at tick %d", tt, last)
		}
	}
}

func TestScheduleMatchesEvenCadence(t *testing.T) {
	s := NewSchedule(10, 0, 5)
	if s.Modulo() != 2 {
		t.Fatalf("Modulo = %d, want 2", s.Modulo())
	}
	for i := 0; i < 10; i++ {
		_, ok := s.Order(i)
		if want := i%2 == 1; ok != want {
			t.Errorf("tick %d snapshot=%v, want %v", i, ok, want)
		}
	}
}

func TestScheduleWithoutSaves(t *testing.T) {
	if n := NewSchedule(10, 0, 0).Len(); n != 0 {
		t.Fatalf("Len = %d, want 0", n)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		saves, order int
		want         string
	}{
		{1, 1, "out.tsv"},
		{0, 1, "out.tsv"},
		{5, 3, "out_3.tsv"},
		{10, 3, "out_03.tsv"},
		{10, 10, "out_10.tsv"},
		{99, 7, "out_07.tsv"},
	}
	for _, tt := range tests {
		if got := FileName("out", tt.saves, tt.order); got != tt.want {
			t.Errorf("FileName(out, %d, %d) = %q, want %q", tt.saves, tt.order, got, tt.want)
		}
	}
}

type recordingStore struct {
	generations []int
	fail        bool
}

func (r *recordingStore) SaveSnapshot(runID string, generation, order int, w *world.World) error {
	if r.fail {
		return errors.New("disk full")
	}
	r.generations = append(r.generations, generation)
	return nil
}

func newSim(t *testing.T, s config.Settings) (*Simulation, *bytes.Buffer) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	sim := New(s, entropy.New(s.Seed))
	var out bytes.Buffer
	sim.Stdout = &out
	return sim, &out
}

func TestRunZeroDScenario(t *testing.T) {
	dir := t.TempDir()
	s := config.Default()
	s.Generations = 10
	s.Saves = 1
	s.Dimension = 0
	s.DemeSize = 100
	s.Selection = 0
	s.Seed = 42
	s.Output = filepath.Join(dir, "zero")

	sim, out := newSim(t, s)
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sim.State() != StateCompleted {
		t.Fatalf("state = %s", sim.State())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "zero.tsv" {
		t.Fatalf("output files = %v", entries)
	}
	data, err := os.ReadFile(filepath.Join(dir, "zero.tsv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 || lines[0] != " 0D summary" {
		t.Fatalf("unexpected output:\n%s", data)
	}
	fields := strings.Fields(lines[2])
	if len(fields) != 4 {
		t.Fatalf("summary row has %d columns: %q", len(fields), lines[2])
	}
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			t.Fatalf("column %q is not numeric", f)
		}
	}
	if !strings.Contains(out.String(), " 0D summary") {
		t.Fatal("no summary on stdout")
	}
}

func TestRunWritesEverySnapshot(t *testing.T) {
	dir := t.TempDir()
	s := config.Default()
	s.Generations = 6
	s.Saves = 3
	s.LeftRightDemes = 3
	s.LeftRightEdges = config.EdgeReflexive
	s.DemeSize = 8
	s.Loci = 8
	s.Seed = 5
	s.Output = filepath.Join(dir, "run")

	sim, _ := newSim(t, s)
	store := &recordingStore{}
	sim.Store = store
	var statuses []Status
	sim.OnGeneration = func(st Status) { statuses = append(statuses, st) }

	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	for order := 1; order <= 3; order++ {
		name := s.Output + "_" + strconv.Itoa(order) + ".tsv"
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if got := store.generations; len(got) != 3 || got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Fatalf("stored generations = %v, want [2 4 6]", got)
	}
	if len(statuses) != s.Generations+1 {
		t.Fatalf("got %d status updates", len(statuses))
	}
	if last := statuses[s.Generations-1]; last.Generation != 6 || last.Snapshots != 3 || last.Demes != 3 {
		t.Fatalf("status after the last generation = %+v", last)
	}
	if final := statuses[len(statuses)-1]; final.State != "completed" {
		t.Fatalf("final state = %s", final.State)
	}
}

func TestRunAbortsOnSaveFailure(t *testing.T) {
	s := config.Default()
	s.Generations = 3
	s.LeftRightDemes = 2
	s.DemeSize = 4
	s.Loci = 4
	s.Seed = 1
	s.Output = filepath.Join(t.TempDir(), "missing", "out")

	sim, _ := newSim(t, s)
	if err := sim.Run(context.Background()); err == nil {
		t.Fatal("expected a save error")
	}
	if sim.State() != StateFailed {
		t.Fatalf("state = %s, want failed", sim.State())
	}
}

func TestRunAbortsOnStoreFailure(t *testing.T) {
	s := config.Default()
	s.Generations = 2
	s.LeftRightDemes = 2
	s.DemeSize = 4
	s.Loci = 4
	s.Seed = 1
	s.Output = filepath.Join(t.TempDir(), "out")

	sim, _ := newSim(t, s)
	sim.Store = &recordingStore{fail: true}
	if err := sim.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("run error = %v", err)
	}
}

func TestRunBacktraceZeroDFails(t *testing.T) {
	s := config.Default()
	s.Generations = 2
	s.Dimension = 0
	s.DemeSize = 4
	s.TypeOfSave = config.OutputBacktrace
	s.Output = filepath.Join(t.TempDir(), "out")

	sim := New(s, entropy.New(3))
	sim.Stdout = &bytes.Buffer{}
	if err := sim.Run(context.Background()); !errors.Is(err, world.ErrBacktraceZeroD) {
		t.Fatalf("run error = %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	s := config.Default()
	s.Output = filepath.Join(t.TempDir(), "out")
	sim, _ := newSim(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run error = %v", err)
	}
	if sim.State() != StateFailed {
		t.Fatalf("state = %s", sim.State())
	}
}
