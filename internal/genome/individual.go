package genome

import "github.com/talgya/conjunction/internal/entropy"

// Origin tags the ancestry a deme is founded with.
type Origin byte

const (
	OriginA     Origin = 'A'
	OriginB     Origin = 'B'
	OriginMixed Origin = 'C' // alternating A and B founders
)

// Layout is the genome shape shared by every individual of a run.
type Layout struct {
	Chromosomes int
	Loci        int // per chromosome
	Selected    int // selected loci per chromosome
}

// SelectedPositions spreads the selected loci evenly along a chromosome.
func (l Layout) SelectedPositions() []int {
	n := l.Selected
	if n <= 0 || n > l.Loci {
		n = l.Loci
	}
	pos := make([]int, n)
	for i := range pos {
		pos[i] = (2*i + 1) * l.Loci / (2 * n)
	}
	return pos
}

// Coord places an individual: deme coordinates and slot within the deme.
type Coord struct {
	X, Y, K int
}

// Gamete is one haploid set of chromosomes.
type Gamete []Chromosome

// IsPureA reports whether every chromosome of the gamete is ancestry A.
func (g Gamete) IsPureA() bool {
	for _, c := range g {
		if !c.IsPureA() {
			return false
		}
	}
	return true
}

// Individual is a diploid organism: one homologous pair per chromosome.
type Individual struct {
	pairs [][2]Chromosome
	At    Coord
}

// NewPure returns a founder whose genome is entirely of ancestry anc.
func NewPure(l Layout, anc Ancestry, at Coord) Individual {
	c := PureChromosome(l.Loci, anc)
	pairs := make([][2]Chromosome, l.Chromosomes)
	for i := range pairs {
		pairs[i] = [2]Chromosome{c, c}
	}
	return Individual{pairs: pairs, At: at}
}

// FromGametes unites two gametes into an individual.
func FromGametes(mother, father Gamete, at Coord) Individual {
	pairs := make([][2]Chromosome, len(mother))
	for i := range pairs {
		pairs[i] = [2]Chromosome{mother[i], father[i]}
	}
	return Individual{pairs: pairs, At: at}
}

// Pairs returns the homologous pairs. Callers must not modify them.
func (ind Individual) Pairs() [][2]Chromosome { return ind.pairs }

// Gamete runs meiosis on every pair.
func (ind Individual) Gamete(rng *entropy.Stream, lambda float64) Gamete {
	g := make(Gamete, len(ind.pairs))
	for i, p := range ind.pairs {
		g[i] = Recombine(p[0], p[1], rng, lambda)
	}
	return g
}

// BProportion is the fraction of all loci, over both copies, of ancestry B.
func (ind Individual) BProportion() float64 {
	b, total := 0, 0
	for _, p := range ind.pairs {
		b += p[0].BMaterial() + p[1].BMaterial()
		total += p[0].loci + p[1].loci
	}
	if total == 0 {
		return 0
	}
	return float64(b) / float64(total)
}

// HybridIndex is the B fraction over the selected loci only. This is the
// value selection acts on.
func (ind Individual) HybridIndex(selected []int) float64 {
	if len(selected) == 0 {
		return ind.BProportion()
	}
	b, total := 0, 0
	for _, p := range ind.pairs {
		for _, pos := range selected {
			if p[0].AncestryAt(pos) == AncestryB {
				b++
			}
			if p[1].AncestryAt(pos) == AncestryB {
				b++
			}
			total += 2
		}
	}
	return float64(b) / float64(total)
}

// IsPureA reports whether the individual carries no B material.
func (ind Individual) IsPureA() bool {
	for _, p := range ind.pairs {
		if !p[0].IsPureA() || !p[1].IsPureA() {
			return false
		}
	}
	return true
}

// IsPureB reports whether the individual carries no A material.
func (ind Individual) IsPureB() bool {
	for _, p := range ind.pairs {
		if !p[0].IsPureB() || !p[1].IsPureB() {
			return false
		}
	}
	return true
}

// Heterozygosity is the fraction of loci whose two copies differ in ancestry.
func (ind Individual) Heterozygosity() float64 {
	diff, total := 0, 0
	for _, p := range ind.pairs {
		diff += Differing(p[0], p[1])
		total += p[0].loci
	}
	if total == 0 {
		return 0
	}
	return float64(diff) / float64(total)
}

// BBlockCount counts B blocks over all chromosomes.
func (ind Individual) BBlockCount() int {
	n := 0
	for _, p := range ind.pairs {
		n += p[0].BBlockCount() + p[1].BBlockCount()
	}
	return n
}
