package world

import (
	"sort"

	"github.com/talgya/conjunction/internal/genome"
)

// MigrationReport counts what one migration pass moved.
type MigrationReport struct {
	Migrants   int // individuals committed to destination demes
	Founders   int // fresh pure individuals supplied at the edges
	Dropped    int // pure migrants that reached a virgin frontier
	GrownLeft  int
	GrownRight int
}

// Migrate moves individuals between neighbouring demes.
//
// In 0-D mode a fresh batch of deme_size pure B immigrants joins the pool.
// In spatial mode every deme sends copies of its first
// deme_size/(2*edges_per_deme) residents to each neighbour. The outermost
// columns receive the same number of fresh pure founders (A on the left, B
// on the right). Migrants headed for a not yet materialized column grow the
// grid only if at least one of them is admixed; purely native migrants are
// dropped there.
func (w *World) Migrate() (MigrationReport, error) {
	var rep MigrationReport

	if w.dimension == 0 {
		for i := 0; i < w.demeSize; i++ {
			w.pool = append(w.pool, genome.NewImigrant(w.layout))
		}
		rep.Founders = w.demeSize
		return rep, nil
	}
	if len(w.arena) == 0 {
		return rep, ErrEmptyWorld
	}
	if w.edgesPerDeme == 0 {
		return rep, nil
	}

	fixed := w.frontier
	perEdge := w.demeSize / (2 * w.edgesPerDeme)

	sources := make([]int, 0, len(w.slots))
	for index := range w.slots {
		sources = append(sources, index)
	}
	sort.Ints(sources)

	buffers := make(map[int][]genome.Individual)
	for _, index := range sources {
		d := w.Get(index)
		for _, dest := range d.Neighbours {
			if dest == NoEdge {
				continue
			}
			buffers[dest] = append(buffers[dest], d.Emigrants(perEdge)...)
		}
	}

	dests := make([]int, 0, len(buffers))
	for dest := range buffers {
		dests = append(dests, dest)
	}
	sort.Ints(dests)

	leftX := w.Get(fixed.LastLeft).X - 1
	rightX := w.Get(fixed.LastRight).X + 1

	for _, dest := range dests {
		buf := buffers[dest]
		y := dest % w.upDown

		if inColumn(dest, fixed.LastLeft, w.upDown) {
			buf = w.appendFounders(buf, genome.AncestryA, leftX, y, perEdge)
			rep.Founders += perEdge
		}
		if inColumn(dest, fixed.LastRight, w.upDown) {
			buf = w.appendFounders(buf, genome.AncestryB, rightX, y, perEdge)
			rep.Founders += perEdge
		}

		if inColumn(dest, w.frontier.NextLeft, w.upDown) {
			if allPure(buf, genome.AncestryA) {
				rep.Dropped += len(buf)
				continue
			}
			if err := w.createUnit(UnitLeft, genome.OriginA); err != nil {
				return rep, err
			}
			rep.GrownLeft++
		}
		if inColumn(dest, w.frontier.NextRight, w.upDown) {
			if allPure(buf, genome.AncestryB) {
				rep.Dropped += len(buf)
				continue
			}
			if err := w.createUnit(UnitRight, genome.OriginB); err != nil {
				return rep, err
			}
			rep.GrownRight++
		}

		d := w.Get(dest)
		if d == nil {
			rep.Dropped += len(buf)
			continue
		}
		d.Integrate(buf)
		rep.Migrants += len(buf)
	}
	return rep, nil
}

func (w *World) appendFounders(buf []genome.Individual, anc genome.Ancestry, x, y, n int) []genome.Individual {
	for k := 0; k < n; k++ {
		buf = append(buf, genome.NewPure(w.layout, anc, genome.Coord{X: x, Y: y, K: k}))
	}
	return buf
}

// inColumn reports whether index lies in the column starting at top.
func inColumn(index, top, height int) bool {
	return index >= top && index < top+height
}

func allPure(buf []genome.Individual, anc genome.Ancestry) bool {
	for _, ind := range buf {
		if anc == genome.AncestryA && !ind.IsPureA() {
			return false
		}
		if anc == genome.AncestryB && !ind.IsPureB() {
			return false
		}
	}
	return true
}
