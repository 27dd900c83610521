package world

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/conjunction/internal/genome"
)

// frequencyLimit is the largest genome whose per-locus B frequencies are
// listed in the summary table.
const frequencyLimit = 16

// DemeStats summarizes one deme.
type DemeStats struct {
	Index          int       `json:"index"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	Neighbours     []int     `json:"neighbours"`
	Size           int       `json:"size"`
	MeanFitness    float64   `json:"mean_fitness"`
	Heterozygosity float64   `json:"heterozygosity"`
	MeanHI         float64   `json:"mean_hi"`
	VarHI          float64   `json:"var_hi"`
	VarP           float64   `json:"var_p"`
	LD             float64   `json:"ld"`
	Frequencies    []float64 `json:"frequencies,omitempty"` // B frequency per locus, small genomes only
}

// ZeroDSummary summarizes the 0-D immigrant pool.
type ZeroDSummary struct {
	Population  int     `json:"population"`
	Material    float64 `json:"material"`
	TotalBlocks int     `json:"total_blocks"`
	MeanFitness float64 `json:"mean_fitness"`
}

// Stats returns per-deme statistics, ordered like Demes.
func (w *World) Stats() []DemeStats {
	demes := w.Demes()
	out := make([]DemeStats, len(demes))
	for i, d := range demes {
		out[i] = w.demeStats(d)
	}
	return out
}

func (w *World) demeStats(d *Deme) DemeStats {
	st := DemeStats{
		Index:      d.Index,
		X:          d.X,
		Y:          d.Y,
		Neighbours: d.Neighbours,
		Size:       d.Size(),
	}
	residents := d.Residents()
	n := len(residents)
	if n == 0 {
		return st
	}

	his := make([]float64, n)
	for i, ind := range residents {
		his[i] = ind.BProportion()
		st.MeanFitness += w.model.Fitness(ind.HybridIndex(w.selected))
		st.Heterozygosity += ind.Heterozygosity()
	}
	st.MeanFitness /= float64(n)
	st.Heterozygosity /= float64(n)
	st.MeanHI, st.VarHI = stat.PopMeanVariance(his, nil)

	// Per-site B frequencies and per-haplotype B counts over the selected loci.
	sites := w.layout.Chromosomes * len(w.selected)
	freq := make([]float64, sites)
	counts := make([]float64, 0, 2*n)
	for _, ind := range residents {
		var hap [2]float64
		for c, pair := range ind.Pairs() {
			for s, pos := range w.selected {
				for h := 0; h < 2; h++ {
					if pair[h].AncestryAt(pos) == genome.AncestryB {
						freq[c*len(w.selected)+s]++
						hap[h]++
					}
				}
			}
		}
		counts = append(counts, hap[0], hap[1])
	}
	sumPQ := 0.0
	for i := range freq {
		freq[i] /= float64(2 * n)
		sumPQ += freq[i] * (1 - freq[i])
	}
	if sites > 1 {
		_, st.VarP = stat.PopMeanVariance(freq, nil)
		_, varCounts := stat.PopMeanVariance(counts, nil)
		st.LD = (varCounts - sumPQ) / float64(sites*(sites-1))
	}

	if w.layout.Chromosomes*w.layout.Loci <= frequencyLimit {
		st.Frequencies = make([]float64, 0, w.layout.Chromosomes*w.layout.Loci)
		for c := 0; c < w.layout.Chromosomes; c++ {
			for l := 0; l < w.layout.Loci; l++ {
				b := 0
				for _, ind := range residents {
					pair := ind.Pairs()[c]
					if pair[0].AncestryAt(l) == genome.AncestryB {
						b++
					}
					if pair[1].AncestryAt(l) == genome.AncestryB {
						b++
					}
				}
				st.Frequencies = append(st.Frequencies, float64(b)/float64(2*n))
			}
		}
	}
	return st
}

// ZeroD summarizes the immigrant pool.
func (w *World) ZeroD() ZeroDSummary {
	sum := ZeroDSummary{Population: len(w.pool)}
	for _, m := range w.pool {
		sum.Material += m.BProportion()
		sum.TotalBlocks += m.BBlockCount()
		sum.MeanFitness += w.model.Fitness(m.BProportion() / 2)
	}
	if len(w.pool) > 0 {
		sum.MeanFitness /= float64(len(w.pool))
	}
	return sum
}

// MeanHybridIndex is the mean B proportion over every individual.
func (w *World) MeanHybridIndex() float64 {
	total, n := 0.0, 0
	if w.dimension == 0 {
		for _, m := range w.pool {
			total += m.BProportion()
		}
		n = len(w.pool)
	} else {
		for _, d := range w.arena {
			for _, ind := range d.Residents() {
				total += ind.BProportion()
			}
			n += d.Size()
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Summary writes the statistics table: one row per deme, or the 0-D summary.
func (w *World) Summary(out io.Writer) error {
	if w.dimension == 0 {
		s := w.ZeroD()
		fmt.Fprint(out, " 0D summary\n")
		fmt.Fprintf(out, "%-12s%-12s%-16s%-12s\n", "Population", "Material", "TotalBlocks", "MeanFitness")
		_, err := fmt.Fprintf(out, "%-12d%-12.6g%-16d%-12.6g\n", s.Population, s.Material, s.TotalBlocks, s.MeanFitness)
		return err
	}

	genomeSize := w.layout.Chromosomes * w.layout.Loci
	fmt.Fprintln(out, "       EDGE")
	fmt.Fprintf(out, "%7s%-7s%-6s", "DEME ", " LEFT", "RIGHT")
	if w.dimension == 2 {
		fmt.Fprintf(out, "%-6s%-6s", "UP", "DOWN")
	}
	fmt.Fprintf(out, "%-6s", "X")
	if w.dimension == 2 {
		fmt.Fprintf(out, "%-6s", "Y")
	}
	fmt.Fprintf(out, "%-13s%-13s%-13s%-13s", "meanf", "f(heter)", "meanHI", "var(HI)")
	if genomeSize > 1 {
		fmt.Fprintf(out, "%-13s%-13s", "var(p)", "LD")
	}
	if genomeSize <= frequencyLimit {
		for c := 1; c <= w.layout.Chromosomes; c++ {
			for l := 1; l <= w.layout.Loci; l++ {
				fmt.Fprintf(out, "%-13s", fmt.Sprintf("Ch%dl%d", c, l))
			}
		}
	}
	fmt.Fprintln(out)

	for _, d := range w.Demes() {
		st := w.demeStats(d)
		d.writeEdges(out)
		fmt.Fprintf(out, "%-6d", st.X)
		if w.dimension == 2 {
			fmt.Fprintf(out, "%-6d", st.Y)
		}
		fmt.Fprintf(out, "%-13.6g%-13.6g%-13.6g%-13.6g", st.MeanFitness, st.Heterozygosity, st.MeanHI, st.VarHI)
		if genomeSize > 1 {
			fmt.Fprintf(out, "%-13.6g%-13.6g", st.VarP, st.LD)
		}
		for _, f := range st.Frequencies {
			fmt.Fprintf(out, "%-13.6g", f)
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return nil
}
