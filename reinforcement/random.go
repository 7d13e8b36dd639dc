package reinforcement

import (
	"math/rand"
)

// Generator is a seeded pseudo-random sequence whose position can be saved and restored.
// Experiments that must observe an identical sequence of draws (exploration and
// environment layouts alike) share one Generator and restore a Snapshot before each run.
type Generator struct {
	*rand.Rand
	src *countingSource
}

// GeneratorState identifies a position in a seeded sequence.
type GeneratorState struct {
	Seed  int64
	Draws uint64
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	src := newCountingSource(seed)
	return &Generator{
		Rand: rand.New(src),
		src:  src,
	}
}

// Snapshot returns the current position of the sequence.
func (g *Generator) Snapshot() GeneratorState {
	return GeneratorState{Seed: g.src.seed, Draws: g.src.draws}
}

// Restore rewinds or fast-forwards the sequence to a previously taken snapshot.
// It replays every draw since the seed, so its cost grows with state.Draws; use Divert
// for a temporary detour from a long-running sequence.
func (g *Generator) Restore(state GeneratorState) {
	g.src.reset(state.Seed)
	for g.src.draws < state.Draws {
		g.src.Uint64()
	}
}

// Divert switches to a fresh sequence seeded with seed until resume is called, which
// continues the original sequence exactly where it was left, without replaying it.
func (g *Generator) Divert(seed int64) (resume func()) {
	saved := *g.src
	g.src.reset(seed)
	return func() {
		*g.src = saved
	}
}

// Reseed restarts the sequence from seed.
func (g *Generator) Reseed(seed int64) {
	g.src.reset(seed)
}

// countingSource counts the draws taken from the underlying source, so that a position
// can be reproduced by replaying that many draws from the same seed.
type countingSource struct {
	seed  int64
	draws uint64
	src   rand.Source64
}

func newCountingSource(seed int64) *countingSource {
	cs := &countingSource{}
	cs.reset(seed)
	return cs
}

func (cs *countingSource) reset(seed int64) {
	cs.seed = seed
	cs.draws = 0
	cs.src = rand.NewSource(seed).(rand.Source64)
}

func (cs *countingSource) Int63() int64 {
	cs.draws++
	return cs.src.Int63()
}

func (cs *countingSource) Uint64() uint64 {
	cs.draws++
	return cs.src.Uint64()
}

func (cs *countingSource) Seed(seed int64) {
	cs.reset(seed)
}
