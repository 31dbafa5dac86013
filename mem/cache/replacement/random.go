package replacement

import (
	"math/rand"

	"github.com/sarchlab/cachesim/mem/cache/tagging"
)

// RandomPolicy evicts a uniformly chosen line.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy returns a random policy that draws from the given source.
// The policy takes ownership of the source.
func NewRandomPolicy(src rand.Source) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(src)}
}

// Name returns "rand".
func (p *RandomPolicy) Name() string {
	return RandomName
}

// Visit only advances the clock.
func (p *RandomPolicy) Visit(tags *tagging.TagArray, _ int, _ uint64) {
	tags.Tick()
}

// FindVictim returns a random way in [0, NumWays).
func (p *RandomPolicy) FindVictim(tags *tagging.TagArray, _ int) int {
	return p.rng.Intn(int(tags.NumWays))
}
