// Package engine provides the generation loop of a simulation run.
package engine

import (
	"fmt"
	"strconv"
)

// Schedule decides after which generations a snapshot is taken. Snapshots
// are spread evenly over the generations after the delay and the last one
// always falls on the final generation.
type Schedule struct {
	generations int
	delay       int
	saves       int
	orders      map[int]int // 0-based tick -> 1-based snapshot order
}

// NewSchedule plans saves snapshots over generations ticks, none of them
// within the first delay ticks.
func NewSchedule(generations, delay, saves int) Schedule {
	s := Schedule{
		generations: generations,
		delay:       delay,
		saves:       saves,
		orders:      make(map[int]int, saves),
	}
	span := generations - delay
	if saves <= 0 || span <= 0 {
		return s
	}
	for k := 1; k <= saves; k++ {
		tick := delay - 1 + (k*span+saves-1)/saves
		s.orders[tick] = k
	}
	return s
}

// Order reports whether tick i (0-based) is a snapshot and its 1-based order.
func (s Schedule) Order(i int) (int, bool) {
	order, ok := s.orders[i]
	return order, ok
}

// Len returns the number of planned snapshots.
func (s Schedule) Len() int { return len(s.orders) }

// Modulo returns the nominal number of generations between snapshots.
func (s Schedule) Modulo() int {
	if s.saves <= 0 {
		return 0
	}
	span := s.generations - s.delay - 1
	return (span + s.saves - 1) / s.saves
}

// FileName returns the output file of snapshot order. A single snapshot uses
// base.tsv; otherwise the order is appended, zero-padded to the width of
// saves.
func FileName(base string, saves, order int) string {
	if saves <= 1 {
		return base + ".tsv"
	}
	width := len(strconv.Itoa(saves))
	return fmt.Sprintf("%s_%0*d.tsv", base, width, order)
}
