package genome

import "github.com/talgya/conjunction/internal/entropy"

// Imigrant is the genome tracked by the non-spatial model: one haplotype of
// introgressed material carried over an untracked pure-A homolog. The
// recipient population is pure A, so only the tracked haplotype can hold B.
type Imigrant struct {
	haplotype []Chromosome
}

// NewImigrant returns a fresh immigrant carrying a pure-B haplotype.
func NewImigrant(l Layout) Imigrant {
	c := PureChromosome(l.Loci, AncestryB)
	h := make([]Chromosome, l.Chromosomes)
	for i := range h {
		h[i] = c
	}
	return Imigrant{haplotype: h}
}

// ImigrantFromGamete makes the gamete the tracked haplotype of a new individual.
func ImigrantFromGamete(g Gamete) Imigrant {
	return Imigrant{haplotype: g}
}

// Haplotype returns the tracked chromosomes. Callers must not modify them.
func (m Imigrant) Haplotype() []Chromosome { return m.haplotype }

// BProportion is the B fraction of the tracked haplotype. The diploid hybrid
// index is half of it.
func (m Imigrant) BProportion() float64 {
	b, total := 0, 0
	for _, c := range m.haplotype {
		b += c.BMaterial()
		total += c.loci
	}
	if total == 0 {
		return 0
	}
	return float64(b) / float64(total)
}

// Gamete recombines the tracked haplotype with the implicit pure-A homolog.
func (m Imigrant) Gamete(rng *entropy.Stream, lambda float64) Gamete {
	g := make(Gamete, len(m.haplotype))
	for i, c := range m.haplotype {
		g[i] = Recombine(c, PureChromosome(c.loci, AncestryA), rng, lambda)
	}
	return g
}

// BBlockCount counts B blocks on the tracked haplotype.
func (m Imigrant) BBlockCount() int {
	n := 0
	for _, c := range m.haplotype {
		n += c.BBlockCount()
	}
	return n
}

// BBlockSizes lists the lengths of every B block, chromosome by chromosome.
func (m Imigrant) BBlockSizes() []int {
	var sizes []int
	for _, c := range m.haplotype {
		sizes = append(sizes, c.BBlockSizes()...)
	}
	return sizes
}
