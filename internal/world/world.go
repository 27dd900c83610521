// Package world holds the spatial hybrid zone: a grid of demes that grows
// lazily at its edges as admixture reaches them, or in 0-D mode a single
// pool of immigrants. It runs migration and breeding and writes snapshots.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/genome"
	"github.com/talgya/conjunction/internal/selection"
)

var (
	ErrEmptyWorld     = errors.New("world has no demes")
	ErrUnknownUnit    = errors.New("unknown unit command")
	ErrRaspberryGrid  = errors.New("raspberrypi output needs exactly 64 demes")
	ErrBacktraceZeroD = errors.New("backtrace output is not available for 0-D simulations")
)

// Frontier tracks the outermost materialized columns and the indices the
// next columns will take on each side.
type Frontier struct {
	LastLeft, NextLeft   int
	LastRight, NextRight int
}

// World is the simulated space. Demes live in an append-only arena addressed
// through slots; Clear drops the whole arena at once.
type World struct {
	dimension      int
	leftRight      int
	upDown         int
	leftRightEdges config.EdgeKind
	upDownEdges    config.VerticalKind
	edgesPerDeme   int
	demeSize       int
	layout         genome.Layout
	lambda         float64
	selected       []int
	model          selection.Model
	workers        int

	rng *entropy.Stream

	arena    []*Deme
	slots    map[int]int // deme index -> arena slot
	frontier Frontier

	pool []genome.Imigrant // 0-D mode only
}

// New creates an empty world from validated settings. Call Restart or Build
// to found the initial grid.
func New(s config.Settings, rng *entropy.Stream) *World {
	s.Normalize()
	layout := genome.Layout{
		Chromosomes: s.Chromosomes,
		Loci:        s.Loci,
		Selected:    s.SelectedLoci,
	}
	return &World{
		dimension:      s.Dimension,
		leftRight:      s.LeftRightDemes,
		upDown:         s.UpDownDemes,
		leftRightEdges: s.LeftRightEdges,
		upDownEdges:    s.UpDownEdges,
		edgesPerDeme:   s.EdgesPerDeme,
		demeSize:       s.DemeSize,
		layout:         layout,
		lambda:         s.Lambda,
		selected:       layout.SelectedPositions(),
		model:          selection.New(s.Selection, s.Beta),
		workers:        s.Workers,
		rng:            rng,
		slots:          make(map[int]int),
	}
}

// Dimension returns 0, 1 or 2.
func (w *World) Dimension() int { return w.dimension }

// Layout returns the genome layout of the run.
func (w *World) Layout() genome.Layout { return w.layout }

// Frontier returns the current frontier indices.
func (w *World) Frontier() Frontier { return w.frontier }

// Get returns the deme with the given index, or nil if it is not materialized.
func (w *World) Get(index int) *Deme {
	slot, ok := w.slots[index]
	if !ok {
		return nil
	}
	return w.arena[slot]
}

// set places a deme in the arena.
func (w *World) set(d *Deme) {
	if slot, ok := w.slots[d.Index]; ok {
		w.arena[slot] = d
		return
	}
	w.slots[d.Index] = len(w.arena)
	w.arena = append(w.arena, d)
}

// DemeCount returns the number of materialized demes.
func (w *World) DemeCount() int { return len(w.arena) }

// Demes returns the demes ordered left to right, then top to bottom.
func (w *World) Demes() []*Deme {
	out := make([]*Deme, len(w.arena))
	copy(out, w.arena)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Pool returns the 0-D immigrant pool. Callers must not modify it.
func (w *World) Pool() []genome.Imigrant { return w.pool }

// Population returns the number of individuals in the world.
func (w *World) Population() int {
	if w.dimension == 0 {
		return len(w.pool)
	}
	n := 0
	for _, d := range w.arena {
		n += d.Size()
	}
	return n
}

// Restart empties the world and, for spatial worlds, rebuilds the grid.
func (w *World) Restart() error {
	w.Clear()
	return w.Build()
}

// Clear releases every deme, or the whole 0-D pool.
func (w *World) Clear() {
	w.pool = nil
	w.arena = nil
	w.slots = make(map[int]int)
	w.frontier = Frontier{}
}

// String returns a one-line summary of the world.
func (w *World) String() string {
	if w.dimension == 0 {
		return fmt.Sprintf("World(dim=0, population=%d)", len(w.pool))
	}
	return fmt.Sprintf("World(dim=%d, demes=%d, population=%d)", w.dimension, w.DemeCount(), w.Population())
}
