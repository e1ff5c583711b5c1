package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	mathrand "math/rand/v2"
	"sync"
)

// GeneratorSeedSize is the number of seed bytes consumed per generator.
const GeneratorSeedSize = 32

// RandomSource is the process-level entropy capability owned by the kernel.
// It hands out seed bytes and independently-seeded per-task generators.
//
// Seed derivation is safe to call concurrently from scheduler threads during
// task creation. Generator state after seeding is exclusively owned by the
// requesting task, so generators themselves need no locking.
//
// No cryptographic guarantees are claimed; the goal is that concurrently
// created tasks observe diverse, reproducible-per-seed random streams.
type RandomSource struct {
	mu sync.Mutex

	// When fixedSeed is set the source is deterministic: seed bytes are
	// derived by hashing the fixed seed with a counter. Used for
	// reproducible runs requested through the runtime configuration.
	fixedSeed []byte
	counter   uint64
}

// NewRandomSource creates a RandomSource backed by OS entropy.
func NewRandomSource() *RandomSource {
	return &RandomSource{}
}

// NewFixedRandomSource creates a deterministic RandomSource. Every call
// sequence against it yields the same seed bytes, so runs that share a fixed
// seed replay the same per-task random streams.
func NewFixedRandomSource(seed []byte) *RandomSource {
	dup := make([]byte, len(seed))
	copy(dup, seed)
	return &RandomSource{fixedSeed: dup}
}

// SeedBytes produces n bytes of process-level entropy. A failure to read OS
// entropy is a bootstrap-class fault: tasks cannot be given diverse generator
// state, so the runtime aborts rather than degrading silently.
func (s *RandomSource) SeedBytes(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, n)
	if s.fixedSeed != nil {
		s.fillDeterministicLocked(out)
		return out
	}

	if _, err := rand.Read(out); err != nil {
		Fatalf("random source: reading OS entropy: %v", err)
	}
	return out
}

// fillDeterministicLocked expands the fixed seed into out via a hash counter
// chain. Distinct calls see distinct counters, so per-task seeds stay unique
// even in deterministic mode.
func (s *RandomSource) fillDeterministicLocked(out []byte) {
	var block [8]byte
	filled := 0
	for filled < len(out) {
		binary.LittleEndian.PutUint64(block[:], s.counter)
		s.counter++

		h := sha256.New()
		h.Write(s.fixedSeed)
		h.Write(block[:])
		filled += copy(out[filled:], h.Sum(nil))
	}
}

// NewGenerator returns a fresh, independently-seeded Generator.
func (s *RandomSource) NewGenerator() *Generator {
	return NewGeneratorFromSeed(s.SeedBytes(GeneratorSeedSize))
}

// Generator is a per-task pseudo-random generator. It is NOT safe for
// concurrent use; each task owns its generator exclusively.
type Generator struct {
	seed []byte
	rng  *mathrand.Rand
}

// NewGeneratorFromSeed creates a Generator from an explicit seed. The output
// sequence is fully determined by the seed. Seeds shorter than
// GeneratorSeedSize are a programming error.
func NewGeneratorFromSeed(seed []byte) *Generator {
	if len(seed) < GeneratorSeedSize {
		Fatalf("random generator: seed must be %d bytes, got %d", GeneratorSeedSize, len(seed))
	}
	dup := make([]byte, GeneratorSeedSize)
	copy(dup, seed)

	hi := binary.LittleEndian.Uint64(dup[0:8])
	lo := binary.LittleEndian.Uint64(dup[8:16])
	return &Generator{
		seed: dup,
		rng:  mathrand.New(mathrand.NewPCG(hi, lo)),
	}
}

// Seed returns a copy of the seed this generator was created with.
func (g *Generator) Seed() []byte {
	dup := make([]byte, len(g.seed))
	copy(dup, g.seed)
	return dup
}

// NextU32 advances the generator and returns the next pseudo-random value.
func (g *Generator) NextU32() uint32 {
	return g.rng.Uint32()
}

// NextU64 advances the generator and returns the next pseudo-random value.
func (g *Generator) NextU64() uint64 {
	return g.rng.Uint64()
}
