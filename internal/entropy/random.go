// Package entropy is the single source of randomness for the simulator.
// Every stochastic decision (price jitter, life events) draws from a Source
// so a run is reproducible from its seed and draw count.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic Source that counts its draws, so a saved game
// can resume on the same stream position.
type Seeded struct {
	mu    sync.Mutex
	seed  int64
	draws uint64
	rng   *mrand.Rand
}

// NewSeeded creates a deterministic source.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{seed: seed, rng: mrand.New(mrand.NewSource(seed))}
}

// Resume recreates a seeded source and fast-forwards it past draws values.
func Resume(seed int64, draws uint64) *Seeded {
	s := NewSeeded(seed)
	for i := uint64(0); i < draws; i++ {
		s.rng.Float64()
	}
	s.draws = draws
	return s
}

// Float64 returns the next value in [0, 1).
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	return s.rng.Float64()
}

// Seed returns the seed the stream started from.
func (s *Seeded) Seed() int64 { return s.seed }

// Draws returns how many values have been consumed.
func (s *Seeded) Draws() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

// Crypto is a non-reproducible Source backed by crypto/rand.
type Crypto struct{}

// Float64 returns a value in [0, 1) from crypto/rand.
func (Crypto) Float64() float64 { return cryptoRandFloat() }

// CryptoSeed returns a random seed for runs started without one.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 42
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Fixed replays a scripted sequence of values, cycling when exhausted.
// Tests use it to force particular draws.
type Fixed struct {
	Values []float64
	next   int
}

// Float64 returns the next scripted value, or 0.5 when none are set.
func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0.5
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
