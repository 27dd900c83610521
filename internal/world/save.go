package world

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/genome"
)

// raspberryDemes is the size of the LED matrix the raspberrypi stream drives.
const raspberryDemes = 64

// Save writes a snapshot of the world in the given format. Files are
// truncated, except backtrace files which are appended to. The raspberrypi
// stream goes to stdout; sqlite snapshots are not written here.
func (w *World) Save(kind config.OutputKind, path string, stdout io.Writer) error {
	switch kind {
	case config.OutputRaspberryPi:
		return w.saveRaspberry(stdout)
	case config.OutputSQLite:
		return nil
	case config.OutputBacktrace:
		if w.dimension == 0 {
			return ErrBacktraceZeroD
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if kind == config.OutputBacktrace {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	switch kind {
	case config.OutputSummary:
		err = w.Summary(bw)
	case config.OutputBlocks:
		err = w.writeBlocks(bw)
	case config.OutputHybridIndices, config.OutputHybridIndicesJunctions, config.OutputComplete:
		err = w.writeIndividuals(bw, kind)
	case config.OutputBacktrace:
		err = w.writeBacktrace(bw)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeBlocks lists ancestry block lengths. A spatial row holds the
// individual's coordinates and, per chromosome copy, the comma separated
// block lengths starting with an A block (0 when the copy starts with B).
// The 0-D pool is written as one B block length per line, relative to the
// chromosome length.
func (w *World) writeBlocks(out *bufio.Writer) error {
	if w.dimension == 0 {
		loci := float64(w.layout.Loci)
		for _, m := range w.pool {
			for _, size := range m.BBlockSizes() {
				fmt.Fprintf(out, "%.6f\n", float64(size)/loci)
			}
		}
		return nil
	}

	out.WriteString("Dx,Dy,Di")
	for c := 1; c <= w.layout.Chromosomes; c++ {
		fmt.Fprintf(out, "\tC%dh0\tC%dh1", c, c)
	}
	out.WriteByte('\n')
	for _, d := range w.Demes() {
		for _, ind := range d.Residents() {
			fmt.Fprintf(out, "%d,%d,%d", ind.At.X, ind.At.Y, ind.At.K)
			for _, pair := range ind.Pairs() {
				for h := 0; h < 2; h++ {
					out.WriteByte('\t')
					out.WriteString(joinInts(blockLengths(pair[h]), ","))
				}
			}
			out.WriteByte('\n')
		}
	}
	return nil
}

// writeIndividuals writes one row per individual: coordinates and hybrid
// index, then junctions and heterozygosity for the more detailed kinds.
func (w *World) writeIndividuals(out *bufio.Writer, kind config.OutputKind) error {
	if w.dimension == 0 {
		for i, m := range w.pool {
			fmt.Fprintf(out, "%d\t%.6g", i, m.BProportion())
			if kind != config.OutputHybridIndices {
				for _, c := range m.Haplotype() {
					out.WriteByte('\t')
					out.WriteString(formatJunctions(c))
				}
			}
			out.WriteByte('\n')
		}
		return nil
	}

	for _, d := range w.Demes() {
		for _, ind := range d.Residents() {
			fmt.Fprintf(out, "%d\t%d\t%d\t%.6g", ind.At.X, ind.At.Y, ind.At.K, ind.BProportion())
			if kind != config.OutputHybridIndices {
				for _, pair := range ind.Pairs() {
					fmt.Fprintf(out, "\t%s\t%s", formatJunctions(pair[0]), formatJunctions(pair[1]))
				}
			}
			if kind == config.OutputComplete {
				fmt.Fprintf(out, "\t%.6g", ind.Heterozygosity())
			}
			out.WriteByte('\n')
		}
	}
	return nil
}

// writeBacktrace traces the junctions of every haplotype, then a metadata
// line with the population size and the chromosome layout.
func (w *World) writeBacktrace(out *bufio.Writer) error {
	individuals := 0
	for _, d := range w.Demes() {
		for _, ind := range d.Residents() {
			for c, pair := range ind.Pairs() {
				for h := 0; h < 2; h++ {
					fmt.Fprintf(out, "%d,%d,%d\tC%dh%d\t%s\n",
						ind.At.X, ind.At.Y, ind.At.K, c+1, h, formatJunctions(pair[h]))
				}
			}
			individuals++
		}
	}

	loci := make([]int, w.layout.Chromosomes)
	selected := make([]int, w.layout.Chromosomes)
	for c := range loci {
		loci[c] = w.layout.Loci
		selected[c] = len(w.selected)
	}
	_, err := fmt.Fprintf(out, "# individuals = %d; Lvec=[%s] SL=[%s]\n",
		individuals, joinInts(loci, ","), joinInts(selected, ","))
	return err
}

// saveRaspberry streams deme colours to an LED matrix driver: red and blue
// balance the mean hybrid index, green shows linkage disequilibrium.
func (w *World) saveRaspberry(out io.Writer) error {
	if w.DemeCount() != raspberryDemes {
		return fmt.Errorf("%w: world has %d", ErrRaspberryGrid, w.DemeCount())
	}

	time.Sleep(900 * time.Microsecond)
	fmt.Fprintln(out, "c")
	time.Sleep(100 * time.Microsecond)

	var b strings.Builder
	b.WriteString("m ")
	for _, st := range w.Stats() {
		r := int(st.MeanHI * 255 * 0.5)
		g := int(math.Abs(st.LD) * 4 * 255)
		bl := int((1 - st.MeanHI) * 255 * 0.5)
		fmt.Fprintf(&b, "%d %d %d ", r, g, bl)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(out, b.String())
	return err
}

// blockLengths returns alternating A and B block lengths, starting with A.
func blockLengths(c genome.Chromosome) []int {
	js := c.Junctions()
	out := make([]int, 0, len(js)+1)
	if len(js) > 0 && js[0].Anc == genome.AncestryB {
		out = append(out, 0)
	}
	for i, j := range js {
		end := c.Loci()
		if i+1 < len(js) {
			end = js[i+1].Pos
		}
		out = append(out, end-j.Pos)
	}
	return out
}

// formatJunctions renders a chromosome as space separated pos:ancestry pairs.
func formatJunctions(c genome.Chromosome) string {
	js := c.Junctions()
	parts := make([]string, len(js))
	for i, j := range js {
		parts[i] = strconv.Itoa(j.Pos) + ":" + j.Anc.String()
	}
	return strings.Join(parts, " ")
}

func joinInts(xs []int, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, sep)
}
