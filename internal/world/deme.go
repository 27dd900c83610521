package world

import (
	"fmt"
	"io"
	"sort"

	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/genome"
	"github.com/talgya/conjunction/internal/selection"
)

// NoEdge marks a neighbour slot that leads nowhere (infinite boundary).
const NoEdge = -8

// Neighbour slots. 1-D demes use only Left and Right.
const (
	Left = iota
	Right
	Up
	Down
)

// Deme is one local, randomly mating sub-population.
type Deme struct {
	Index      int
	X, Y       int
	Neighbours []int
	Origin     genome.Origin

	size      int // residents after breeding
	residents []genome.Individual
	rng       *entropy.Stream
}

// newDeme founds a deme of size pure individuals. Origin C alternates A and
// B founders.
func newDeme(index, x, y int, neighbours []int, origin genome.Origin, size int, l genome.Layout, rng *entropy.Stream) *Deme {
	d := &Deme{
		Index:      index,
		X:          x,
		Y:          y,
		Neighbours: neighbours,
		Origin:     origin,
		size:       size,
		residents:  make([]genome.Individual, size),
		rng:        rng,
	}
	for k := range d.residents {
		anc := genome.AncestryA
		if origin == genome.OriginB || (origin == genome.OriginMixed && k%2 == 1) {
			anc = genome.AncestryB
		}
		d.residents[k] = genome.NewPure(l, anc, genome.Coord{X: x, Y: y, K: k})
	}
	return d
}

// Size returns the current number of residents.
func (d *Deme) Size() int { return len(d.residents) }

// Residents returns the resident individuals. Callers must not modify them.
func (d *Deme) Residents() []genome.Individual { return d.residents }

// Emigrants copies the first n residents. Emigration is a copy: the
// originals stay and breed at home.
func (d *Deme) Emigrants(n int) []genome.Individual {
	if n > len(d.residents) {
		n = len(d.residents)
	}
	out := make([]genome.Individual, n)
	copy(out, d.residents[:n])
	return out
}

// Integrate appends migrants to the deme.
func (d *Deme) Integrate(migrants []genome.Individual) {
	for _, m := range migrants {
		m.At = genome.Coord{X: d.X, Y: d.Y, K: len(d.residents)}
		d.residents = append(d.residents, m)
	}
}

// BreedPolicy holds the bookkeeping rules of one breeding pass.
type BreedPolicy struct {
	// DiscardPureA drops offspring without any B material.
	DiscardPureA bool
}

// Breeder carries what a deme needs to produce the next generation.
type Breeder struct {
	Model    selection.Model
	Selected []int
	Lambda   float64
	Policy   BreedPolicy
}

// Breed replaces the residents with a new generation of the deme's nominal
// size. Each offspring is the union of gametes of two parents, each drawn
// with probability proportional to fitness.
func (d *Deme) Breed(b Breeder) {
	if len(d.residents) == 0 {
		return
	}

	cum := make([]float64, len(d.residents))
	total := 0.0
	for i, ind := range d.residents {
		total += b.Model.Fitness(ind.HybridIndex(b.Selected))
		cum[i] = total
	}

	pick := func() genome.Individual {
		if total <= 0 {
			return d.residents[d.rng.IntN(len(d.residents))]
		}
		u := d.rng.Float() * total
		i := sort.Search(len(cum), func(j int) bool { return cum[j] > u })
		if i == len(cum) {
			i--
		}
		return d.residents[i]
	}

	next := make([]genome.Individual, 0, d.size)
	for k := 0; k < d.size; k++ {
		mother := pick().Gamete(d.rng, b.Lambda)
		father := pick().Gamete(d.rng, b.Lambda)
		child := genome.FromGametes(mother, father, genome.Coord{X: d.X, Y: d.Y, K: len(next)})
		if b.Policy.DiscardPureA && child.IsPureA() {
			continue
		}
		next = append(next, child)
	}
	d.residents = next
}

// writeEdges prints the deme index and its neighbour slots.
func (d *Deme) writeEdges(w io.Writer) {
	fmt.Fprintf(w, "%6d ", d.Index)
	for i, n := range d.Neighbours {
		if i == 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%-6d", n)
	}
}
