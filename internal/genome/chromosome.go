// Package genome stores ancestry as junctions: a chromosome is the list of
// positions where ancestry switches between the two source populations, so
// memory grows with the number of breakpoints and not with the number of loci.
package genome

import (
	"sort"

	"github.com/talgya/conjunction/internal/entropy"
)

// Ancestry is the source population of a block of genome.
type Ancestry bool

const (
	AncestryA Ancestry = false
	AncestryB Ancestry = true
)

func (a Ancestry) String() string {
	if a == AncestryB {
		return "B"
	}
	return "A"
}

// Junction starts a block of one ancestry at locus Pos.
type Junction struct {
	Pos int      `json:"pos"`
	Anc Ancestry `json:"anc"`
}

// Chromosome is an ordered list of ancestry blocks over Loci positions.
// The first junction is always at 0 and consecutive junctions always switch
// ancestry. Chromosomes are immutable once built, so copies share storage.
type Chromosome struct {
	loci      int
	junctions []Junction
}

// PureChromosome returns a chromosome of a single ancestry.
func PureChromosome(loci int, anc Ancestry) Chromosome {
	return NewChromosome(loci, []Junction{{Pos: 0, Anc: anc}})
}

// NewChromosome builds a chromosome from junctions, dropping junctions that
// do not switch ancestry. The first junction is forced to position 0.
func NewChromosome(loci int, junctions []Junction) Chromosome {
	out := make([]Junction, 0, len(junctions))
	for i, j := range junctions {
		if i == 0 {
			j.Pos = 0
		}
		if j.Pos >= loci {
			break
		}
		out = appendJunction(out, j)
	}
	if len(out) == 0 {
		out = append(out, Junction{Pos: 0, Anc: AncestryA})
	}
	return Chromosome{loci: loci, junctions: out}
}

// Loci returns the number of loci on the chromosome.
func (c Chromosome) Loci() int { return c.loci }

// Junctions returns the ancestry breakpoints. Callers must not modify it.
func (c Chromosome) Junctions() []Junction { return c.junctions }

// IsPure reports whether the whole chromosome has ancestry anc.
func (c Chromosome) IsPure(anc Ancestry) bool {
	return len(c.junctions) == 1 && c.junctions[0].Anc == anc
}

func (c Chromosome) IsPureA() bool { return c.IsPure(AncestryA) }
func (c Chromosome) IsPureB() bool { return c.IsPure(AncestryB) }

// AncestryAt returns the ancestry of locus pos.
func (c Chromosome) AncestryAt(pos int) Ancestry {
	i := sort.Search(len(c.junctions), func(k int) bool { return c.junctions[k].Pos > pos })
	if i == 0 {
		return c.junctions[0].Anc
	}
	return c.junctions[i-1].Anc
}

// blockEnd returns the first locus after block i.
func (c Chromosome) blockEnd(i int) int {
	if i+1 < len(c.junctions) {
		return c.junctions[i+1].Pos
	}
	return c.loci
}

// BMaterial returns the number of loci of ancestry B.
func (c Chromosome) BMaterial() int {
	n := 0
	for i, j := range c.junctions {
		if j.Anc == AncestryB {
			n += c.blockEnd(i) - j.Pos
		}
	}
	return n
}

// BBlockSizes returns the length in loci of every B block, left to right.
func (c Chromosome) BBlockSizes() []int {
	var sizes []int
	for i, j := range c.junctions {
		if j.Anc == AncestryB {
			sizes = append(sizes, c.blockEnd(i)-j.Pos)
		}
	}
	return sizes
}

// BBlockCount returns the number of B blocks.
func (c Chromosome) BBlockCount() int {
	n := 0
	for _, j := range c.junctions {
		if j.Anc == AncestryB {
			n++
		}
	}
	return n
}

// Differing returns the number of loci where a and b have different ancestry.
// Both chromosomes must have the same number of loci.
func Differing(a, b Chromosome) int {
	diff := 0
	i, k := 0, 0
	pos := 0
	for pos < a.loci {
		end := a.blockEnd(i)
		if e := b.blockEnd(k); e < end {
			end = e
		}
		if a.junctions[i].Anc != b.junctions[k].Anc {
			diff += end - pos
		}
		pos = end
		if pos == a.blockEnd(i) {
			i++
		}
		if pos == b.blockEnd(k) {
			k++
		}
	}
	return diff
}

// Recombine produces one recombinant chromosome from a homologous pair.
// The number of chiasmata is Poisson(lambda), placed uniformly between loci;
// the starting strand is chosen by a fair coin.
func Recombine(first, second Chromosome, rng *entropy.Stream, lambda float64) Chromosome {
	strands := [2]Chromosome{first, second}
	s := 0
	if rng.Bool() {
		s = 1
	}
	cuts := chiasmata(first.loci, rng, lambda)
	if len(cuts) == 0 {
		return strands[s]
	}

	out := make([]Junction, 0, len(first.junctions)+len(second.junctions)+len(cuts))
	lo := 0
	for i := 0; i <= len(cuts); i++ {
		hi := first.loci
		if i < len(cuts) {
			hi = cuts[i]
		}
		out = appendSegment(out, strands[s], lo, hi)
		s ^= 1
		lo = hi
	}
	return Chromosome{loci: first.loci, junctions: out}
}

// chiasmata returns sorted crossover positions in [1, loci). Two crossovers
// at the same position cancel out.
func chiasmata(loci int, rng *entropy.Stream, lambda float64) []int {
	if loci < 2 {
		return nil
	}
	n := rng.Poisson(lambda)
	if n == 0 {
		return nil
	}
	cuts := make([]int, n)
	for i := range cuts {
		cuts[i] = rng.IntN(loci-1) + 1
	}
	sort.Ints(cuts)

	out := cuts[:0]
	for i := 0; i < len(cuts); i++ {
		if i+1 < len(cuts) && cuts[i] == cuts[i+1] {
			i++
			continue
		}
		out = append(out, cuts[i])
	}
	return out
}

// appendSegment copies loci [lo, hi) of c onto out.
func appendSegment(out []Junction, c Chromosome, lo, hi int) []Junction {
	if lo >= hi {
		return out
	}
	out = appendJunction(out, Junction{Pos: lo, Anc: c.AncestryAt(lo)})
	i := sort.Search(len(c.junctions), func(k int) bool { return c.junctions[k].Pos > lo })
	for ; i < len(c.junctions) && c.junctions[i].Pos < hi; i++ {
		out = appendJunction(out, c.junctions[i])
	}
	return out
}

func appendJunction(out []Junction, j Junction) []Junction {
	if n := len(out); n > 0 && out[n-1].Anc == j.Anc {
		return out
	}
	return append(out, j)
}
