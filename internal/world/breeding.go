package world

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/conjunction/internal/genome"
)

// Breed advances the world by one generation.
//
// Demes breed concurrently: each one touches only its own residents and its
// own random stream, so the result does not depend on scheduling. Migration
// must have finished before Breed is called.
func (w *World) Breed(ctx context.Context) error {
	if w.dimension == 0 {
		w.breedPool(BreedPolicy{DiscardPureA: true})
		return nil
	}
	if len(w.arena) == 0 {
		return ErrEmptyWorld
	}

	b := Breeder{
		Model:    w.model,
		Selected: w.selected,
		Lambda:   w.lambda,
		Policy:   BreedPolicy{DiscardPureA: false},
	}
	workers := w.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, d := range w.arena {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d.Breed(b)
			return nil
		})
	}
	return g.Wait()
}

// breedPool replaces the 0-D pool with its offspring. Every immigrant gets
// two mating attempts with a Poisson number of offspring each, the mean
// being its fitness at half its B proportion. Each offspring is one gamete.
func (w *World) breedPool(policy BreedPolicy) {
	next := make([]genome.Imigrant, 0, len(w.pool))
	for _, m := range w.pool {
		fitness := w.model.Fitness(m.BProportion() / 2)
		for attempt := 0; attempt < 2; attempt++ {
			for n := w.rng.Poisson(fitness); n > 0; n-- {
				g := m.Gamete(w.rng, w.lambda)
				if policy.DiscardPureA && g.IsPureA() {
					continue
				}
				next = append(next, genome.ImigrantFromGamete(g))
			}
		}
	}
	w.pool = next
}
