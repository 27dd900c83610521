// Package entropy provides the owned, seeded random streams of a run.
// Every consumer gets its stream explicitly; nothing reads a process-wide
// generator. Sub-streams are derived from the run seed and a stable id so a
// run is reproducible no matter how work is scheduled across goroutines.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Stream is a deterministic PCG random stream. A Stream is not safe for
// concurrent use; give each goroutine its own Sub stream.
type Stream struct {
	seed uint64
	src  *mrand.PCG
	r    *mrand.Rand
}

// New creates the root stream of a run. Seed 0 picks a random seed;
// read it back with Seed.
func New(seed int64) *Stream {
	s := uint64(seed)
	if seed == 0 {
		s = CryptoSeed()
	}
	return newStream(s, 0)
}

func newStream(seed, id uint64) *Stream {
	src := mrand.NewPCG(seed, mix(id))
	return &Stream{seed: seed, src: src, r: mrand.New(src)}
}

// Seed returns the seed the stream family was created from.
func (s *Stream) Seed() uint64 { return s.seed }

// Sub returns an independent stream for the given id. The same seed and id
// always produce the same sequence.
func (s *Stream) Sub(id uint64) *Stream {
	return newStream(s.seed, id+1)
}

// Float returns a uniform float64 in [0, 1).
func (s *Stream) Float() float64 { return s.r.Float64() }

// IntN returns a uniform int in [0, n). n must be positive.
func (s *Stream) IntN(n int) int { return s.r.IntN(n) }

// Bool returns a fair coin flip.
func (s *Stream) Bool() bool { return s.r.Uint64()&1 == 1 }

// Poisson draws a Poisson-distributed count with the given mean.
// Non-positive means always give 0.
func (s *Stream) Poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: s.src}
	return int(p.Rand())
}

// mix spreads small stream ids over the whole increment space (splitmix64).
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 0x5eed
	}
	if n := binary.LittleEndian.Uint64(buf[:]); n != 0 {
		return n
	}
	return 1
}
