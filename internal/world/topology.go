package world

import (
	"fmt"
	"io"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/genome"
)

// UnitCommand selects where createUnit materializes new demes.
type UnitCommand byte

const (
	UnitBasic UnitCommand = 'b' // the first deme or column
	UnitLeft  UnitCommand = 'l'
	UnitRight UnitCommand = 'r'
)

// Build founds the initial grid: a basic unit tagged A, then columns to the
// right tagged A up to the midpoint and B after it, the last one always B.
// A single-deme world is founded with mixed ancestry.
func (w *World) Build() error {
	if w.dimension == 0 {
		return nil
	}
	switch w.leftRight {
	case 1:
		return w.createUnit(UnitBasic, genome.OriginMixed)
	case 2:
		if err := w.createUnit(UnitBasic, genome.OriginA); err != nil {
			return err
		}
		return w.createUnit(UnitRight, genome.OriginB)
	}

	midpoint := float64(w.leftRight+1) / 2
	if err := w.createUnit(UnitBasic, genome.OriginA); err != nil {
		return err
	}
	for i := 2; i < w.leftRight; i++ {
		tag := genome.OriginB
		if float64(i) < midpoint {
			tag = genome.OriginA
		}
		if err := w.createUnit(UnitRight, tag); err != nil {
			return err
		}
	}
	return w.createUnit(UnitRight, genome.OriginB)
}

// createUnit materializes one deme (1-D) or one column of demes (2-D) and
// moves the frontier. It is the only place the grid grows.
func (w *World) createUnit(cmd UnitCommand, origin genome.Origin) error {
	switch cmd {
	case UnitBasic, UnitLeft, UnitRight:
	default:
		return fmt.Errorf("create unit %q: %w", cmd, ErrUnknownUnit)
	}
	if cmd != UnitBasic && len(w.arena) == 0 {
		return fmt.Errorf("create unit %q: %w", cmd, ErrEmptyWorld)
	}
	if w.dimension == 1 {
		w.createDeme(cmd, origin)
		return nil
	}
	w.createColumn(cmd, origin)
	return nil
}

func (w *World) createDeme(cmd UnitCommand, origin genome.Origin) {
	size := len(w.arena)
	f := &w.frontier

	switch cmd {
	case UnitBasic:
		*f = Frontier{NextLeft: 1, NextRight: 2}
		neighbours := []int{w.sideBorder(0, f.NextLeft), f.NextRight}
		if w.leftRight == 1 {
			neighbours = []int{0, 0}
		}
		w.set(w.found(0, 0, 0, neighbours, origin))

	case UnitLeft:
		index := f.NextLeft
		x := w.Get(f.LastLeft).X - 1
		w.set(w.found(index, x, 0, []int{size + 2, f.LastLeft}, origin))
		f.LastLeft = index
		f.NextLeft = size + 2

	case UnitRight:
		index := f.NextRight
		right := size + 2
		if index == w.leftRight {
			switch w.leftRightEdges {
			case config.EdgeWrapping:
				right = 0
			case config.EdgeReflexive:
				right = index
			case config.EdgeInfinite:
				right = NoEdge
			}
		}
		x := w.Get(f.LastRight).X + 1
		w.set(w.found(index, x, 0, []int{f.LastRight, right}, origin))
		f.LastRight = index
		f.NextRight = size + 2
	}
}

func (w *World) createColumn(cmd UnitCommand, origin genome.Origin) {
	size := len(w.arena)
	u := w.upDown
	f := &w.frontier

	switch cmd {
	case UnitBasic:
		*f = Frontier{NextLeft: u, NextRight: 2 * u}
		for i := 0; i < u; i++ {
			left, right := w.sideBorder(i, f.NextLeft+i), f.NextRight+i
			if w.leftRight == 1 {
				left, right = i, i
			}
			w.set(w.found(i, 0, i, []int{left, right, w.upperBorder(i, 0), w.lowerBorder(i, 0)}, origin))
		}

	case UnitLeft:
		index := f.NextLeft
		f.NextLeft = size + 2*u
		x := w.Get(f.LastLeft).X - 1
		for i := 0; i < u; i++ {
			neighbours := []int{
				w.sideBorder(index+i, f.NextLeft+i),
				f.LastLeft + i,
				w.upperBorder(index+i, index),
				w.lowerBorder(index+i, index),
			}
			w.set(w.found(index+i, x, i, neighbours, origin))
		}
		f.LastLeft = index

	case UnitRight:
		index := f.NextRight
		f.NextRight = size + 2*u
		x := w.Get(f.LastRight).X + 1
		for i := 0; i < u; i++ {
			neighbours := []int{
				f.LastRight + i,
				w.sideBorder(index+i, f.NextRight+i),
				w.upperBorder(index+i, index),
				w.lowerBorder(index+i, index),
			}
			w.set(w.found(index+i, x, i, neighbours, origin))
		}
		f.LastRight = index
	}
}

func (w *World) found(index, x, y int, neighbours []int, origin genome.Origin) *Deme {
	return newDeme(index, x, y, neighbours, origin, w.demeSize, w.layout, w.rng.Sub(uint64(index)))
}

// upperBorder returns the deme above index in the column starting at top.
func (w *World) upperBorder(index, top int) int {
	if index != top {
		return index - 1
	}
	if w.upDownEdges == config.VerticalWrapping {
		return index + w.upDown - 1
	}
	return index
}

// lowerBorder returns the deme below index in the column starting at top.
func (w *World) lowerBorder(index, top int) int {
	if index != top+w.upDown-1 {
		return index + 1
	}
	if w.upDownEdges == config.VerticalWrapping {
		return top
	}
	return index
}

// sideBorder returns the horizontal neighbour of self. Interior demes point
// forward; demes of the outermost columns follow the boundary kind.
func (w *World) sideBorder(self, forward int) int {
	interior := self < w.leftRight*w.upDown && self > w.upDown
	if interior {
		return forward
	}
	switch w.leftRightEdges {
	case config.EdgeExtending:
		return forward
	case config.EdgeReflexive:
		return self
	case config.EdgeWrapping:
		if w.leftRight == 1 {
			return self
		}
		if self < w.upDown {
			return w.leftRight*w.upDown + self%w.upDown
		}
		return self % w.upDown
	default:
		return NoEdge
	}
}

// Describe prints the grid layout and every deme's neighbour slots.
func (w *World) Describe(out io.Writer) {
	fmt.Fprintf(out, "of dimension: %d\n", w.dimension)
	if w.dimension == 0 {
		fmt.Fprintf(out, "Population of imigrants has %d\n", len(w.pool))
		return
	}
	fmt.Fprintf(out, "World of size %d\n", w.DemeCount())
	fmt.Fprintf(out, "Number of demes up to down: %d\n", w.upDown)
	fmt.Fprintf(out, "Type of borders top and bottom: %s\n", w.upDownEdges)
	if w.leftRightEdges != config.EdgeExtending {
		fmt.Fprintf(out, "Number of demes left to right: %d\n", w.leftRight)
	}
	fmt.Fprintf(out, "Type of borders left to right: %s\n", w.leftRightEdges)
	fmt.Fprintln(out, "                 EDGE")
	fmt.Fprintf(out, "%7s%-7s%-6s%-6s%-6s\n", "DEME ", " LEFT", "RIGHT", "UP", "DOWN")
	for _, d := range w.Demes() {
		d.writeEdges(out)
		fmt.Fprintf(out, " %c\n", d.Origin)
	}
}

// WriteParameters prints the numerical parameters as comment lines.
func (w *World) WriteParameters(out io.Writer) {
	fmt.Fprintf(out, "# Selection: %g\n", w.model.Pressure)
	fmt.Fprintf(out, "# Lambda: %g\n", w.lambda)
	fmt.Fprintf(out, "# Beta: %g\n", w.model.Beta)
	fmt.Fprintf(out, "# Loci: %d\n", w.layout.Loci)
	if len(w.selected) != w.layout.Loci {
		fmt.Fprintf(out, "# Selected loci : %d\n", len(w.selected))
	}
	fmt.Fprintf(out, "# Chromosomes: %d\n", w.layout.Chromosomes)
	if w.dimension == 0 {
		fmt.Fprintf(out, "# Migrants per generation: %d\n", w.demeSize)
	} else {
		fmt.Fprintf(out, "# Deme size: %d\n", w.demeSize)
	}
}
