package genome

import (
	"reflect"
	"testing"

	"github.com/talgya/conjunction/internal/entropy"
)

func TestNewChromosomeNormalizesJunctions(t *testing.T) {
	c := NewChromosome(10, []Junction{
		{Pos: 3, Anc: AncestryA}, // forced to 0
		{Pos: 4, Anc: AncestryA}, // no switch
		{Pos: 5, Anc: AncestryB},
		{Pos: 12, Anc: AncestryA}, // past the end
	})
	want := []Junction{{Pos: 0, Anc: AncestryA}, {Pos: 5, Anc: AncestryB}}
	if !reflect.DeepEqual(c.Junctions(), want) {
		t.Fatalf("junctions = %v, want %v", c.Junctions(), want)
	}
	if empty := NewChromosome(4, nil); !empty.IsPureA() {
		t.Fatalf("empty junction list should give pure A, got %v", empty.Junctions())
	}
}

func TestChromosomeQueries(t *testing.T) {
	c := NewChromosome(10, []Junction{
		{Pos: 0, Anc: AncestryA},
		{Pos: 2, Anc: AncestryB},
		{Pos: 5, Anc: AncestryA},
		{Pos: 7, Anc: AncestryB},
	})

	if got := c.BMaterial(); got != 6 {
		t.Errorf("BMaterial = %d, want 6", got)
	}
	if got := c.BBlockSizes(); !reflect.DeepEqual(got, []int{3, 3}) {
		t.Errorf("BBlockSizes = %v, want [3 3]", got)
	}
	if got := c.BBlockCount(); got != 2 {
		t.Errorf("BBlockCount = %d, want 2", got)
	}
	ancestry := map[int]Ancestry{0: AncestryA, 1: AncestryA, 2: AncestryB, 4: AncestryB, 5: AncestryA, 9: AncestryB}
	for pos, want := range ancestry {
		if got := c.AncestryAt(pos); got != want {
			t.Errorf("AncestryAt(%d) = %s, want %s", pos, got, want)
		}
	}
	if c.IsPureA() || c.IsPureB() {
		t.Error("mixed chromosome reported as pure")
	}
}

func TestDiffering(t *testing.T) {
	a := PureChromosome(10, AncestryA)
	b := PureChromosome(10, AncestryB)
	mixed := NewChromosome(10, []Junction{{Pos: 0, Anc: AncestryA}, {Pos: 6, Anc: AncestryB}})

	tests := []struct {
		name string
		x, y Chromosome
		want int
	}{
		{"identical", a, a, 0},
		{"opposite", a, b, 10},
		{"tail differs", a, mixed, 4},
		{"head differs", mixed, b, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Differing(tt.x, tt.y); got != tt.want {
				t.Fatalf("Differing = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecombineKeepsJunctionsWellFormed(t *testing.T) {
	rng := entropy.New(11)
	a := PureChromosome(100, AncestryA)
	b := PureChromosome(100, AncestryB)

	for i := 0; i < 500; i++ {
		c := Recombine(a, b, rng, 5)
		js := c.Junctions()
		if js[0].Pos != 0 {
			t.Fatalf("first junction at %d", js[0].Pos)
		}
		for k := 1; k < len(js); k++ {
			if js[k].Pos <= js[k-1].Pos || js[k].Pos >= 100 {
				t.Fatalf("junction positions out of order: %v", js)
			}
			if js[k].Anc == js[k-1].Anc {
				t.Fatalf("adjacent junctions share ancestry: %v", js)
			}
		}
	}
}

func TestRecombineWithoutCrossoverReturnsAParent(t *testing.T) {
	rng := entropy.New(3)
	a := PureChromosome(20, AncestryA)
	b := PureChromosome(20, AncestryB)
	sawA, sawB := false, false
	for i := 0; i < 100; i++ {
		c := Recombine(a, b, rng, 0)
		switch {
		case c.IsPureA():
			sawA = true
		case c.IsPureB():
			sawB = true
		default:
			t.Fatalf("lambda 0 produced a recombinant: %v", c.Junctions())
		}
	}
	if !sawA || !sawB {
		t.Fatalf("starting strand not random: sawA=%v sawB=%v", sawA, sawB)
	}
}

func TestRecombineHomozygousIsIdentity(t *testing.T) {
	rng := entropy.New(5)
	a := PureChromosome(50, AncestryA)
	for i := 0; i < 50; i++ {
		if c := Recombine(a, a, rng, 3); !c.IsPureA() {
			t.Fatalf("recombining two A chromosomes gave %v", c.Junctions())
		}
	}
}

func TestSelectedPositions(t *testing.T) {
	tests := []struct {
		layout Layout
		want   []int
	}{
		{Layout{Loci: 10, Selected: 2}, []int{2, 7}},
		{Layout{Loci: 4, Selected: 4}, []int{0, 1, 2, 3}},
		{Layout{Loci: 3, Selected: -1}, []int{0, 1, 2}},
		{Layout{Loci: 9, Selected: 1}, []int{4}},
	}
	for _, tt := range tests {
		if got := tt.layout.SelectedPositions(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SelectedPositions(%+v) = %v, want %v", tt.layout, got, tt.want)
		}
	}
}

func TestIndividualAncestry(t *testing.T) {
	l := Layout{Chromosomes: 2, Loci: 8, Selected: 8}
	a := NewPure(l, AncestryA, Coord{})
	b := NewPure(l, AncestryB, Coord{X: 1})

	if !a.IsPureA() || a.BProportion() != 0 {
		t.Fatalf("pure A individual: pureA=%v B=%v", a.IsPureA(), a.BProportion())
	}
	if !b.IsPureB() || b.BProportion() != 1 {
		t.Fatalf("pure B individual: pureB=%v B=%v", b.IsPureB(), b.BProportion())
	}

	rng := entropy.New(1)
	f1 := FromGametes(a.Gamete(rng, 1), b.Gamete(rng, 1), Coord{K: 3})
	if f1.IsPureA() || f1.IsPureB() {
		t.Fatal("F1 reported as pure")
	}
	if got := f1.BProportion(); got != 0.5 {
		t.Fatalf("F1 B proportion = %v, want 0.5", got)
	}
	if got := f1.HybridIndex(l.SelectedPositions()); got != 0.5 {
		t.Fatalf("F1 hybrid index = %v, want 0.5", got)
	}
	if got := f1.Heterozygosity(); got != 1 {
		t.Fatalf("F1 heterozygosity = %v, want 1", got)
	}
	if got := f1.BBlockCount(); got != 2 {
		t.Fatalf("F1 B blocks = %d, want 2", got)
	}
	if f1.At.K != 3 {
		t.Fatalf("coordinates not kept: %+v", f1.At)
	}
}

func TestGameteIsPureA(t *testing.T) {
	a := PureChromosome(5, AncestryA)
	b := PureChromosome(5, AncestryB)
	if !(Gamete{a, a}).IsPureA() {
		t.Error("all-A gamete not pure A")
	}
	if (Gamete{a, b}).IsPureA() {
		t.Error("gamete with a B chromosome reported pure A")
	}
}

func TestImigrant(t *testing.T) {
	l := Layout{Chromosomes: 3, Loci: 20}
	m := NewImigrant(l)
	if got := m.BProportion(); got != 1 {
		t.Fatalf("fresh immigrant B proportion = %v, want 1", got)
	}
	if got := m.BBlockSizes(); !reflect.DeepEqual(got, []int{20, 20, 20}) {
		t.Fatalf("BBlockSizes = %v", got)
	}

	rng := entropy.New(9)
	total := 0.0
	const n = 2000
	for i := 0; i < n; i++ {
		child := ImigrantFromGamete(m.Gamete(rng, 1))
		total += child.BProportion()
		if len(child.Haplotype()) != 3 {
			t.Fatalf("gamete has %d chromosomes", len(child.Haplotype()))
		}
	}
	// Recombining against the pure A background halves the B material on average.
	if mean := total / n; mean < 0.45 || mean > 0.55 {
		t.Fatalf("mean gamete B proportion = %v, want about 0.5", mean)
	}
}

func TestPureChromosome(t *testing.T) {
	for _, anc := range []Ancestry{AncestryA, AncestryB} {
		c := PureChromosome(12, anc)
		if !c.IsPure(anc) || c.Loci() != 12 {
			t.Fatalf("PureChromosome(12, %v) = %+v", anc, c.Junctions())
		}
		if got := c.Junctions(); len(got) != 1 || got[0].Pos != 0 {
			t.Fatalf("junctions = %+v", got)
		}
	}
}
