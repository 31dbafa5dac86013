package cache

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"strings"
	"time"

	"github.com/sarchlab/cachesim/mem/cache/prefetching"
	"github.com/sarchlab/cachesim/mem/cache/replacement"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// NoPrefetcher is the prefetcher name that disables prefetching.
const NoPrefetcher = "none"

// Builder can build cache systems.
type Builder struct {
	numSets        uint64
	associativity  uint64
	lineSize       uint64
	policyName     string
	newPolicy      func() replacement.Policy
	prefetcherName string
	newPrefetcher  func() prefetching.Prefetcher
	prefetchAmount uint64
	seed           int64
	seedSet        bool
	hooks          []hooking.Hook
}

// MakeBuilder creates a new builder with a 16KB, 4-way, 64B-line LRU cache
// without prefetching.
func MakeBuilder() Builder {
	return Builder{
		numSets:        64,
		associativity:  4,
		lineSize:       64,
		policyName:     replacement.LRUName,
		prefetcherName: NoPrefetcher,
		prefetchAmount: 1,
	}
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(numSets uint64) Builder {
	b.numSets = numSets
	return b
}

// WithAssociativity sets the number of lines per set.
func (b Builder) WithAssociativity(associativity uint64) Builder {
	b.associativity = associativity
	return b
}

// WithLineSize sets the size of a line in bytes. It must be a power of two.
func (b Builder) WithLineSize(lineSize uint64) Builder {
	b.lineSize = lineSize
	return b
}

// WithReplacementPolicy selects a built-in replacement policy by name.
func (b Builder) WithReplacementPolicy(name string) Builder {
	b.policyName = name
	b.newPolicy = nil

	return b
}

// WithPolicyFactory sets the function that creates the replacement policy.
// It is called once per cache built, so that no two caches share a policy.
func (b Builder) WithPolicyFactory(f func() replacement.Policy) Builder {
	b.newPolicy = f
	return b
}

// WithPrefetcher selects a built-in prefetcher by name. "none" or an empty
// name disables prefetching.
func (b Builder) WithPrefetcher(name string) Builder {
	b.prefetcherName = name
	b.newPrefetcher = nil

	return b
}

// WithPrefetchAmount sets how many lines the sequential prefetcher fetches.
func (b Builder) WithPrefetchAmount(amount uint64) Builder {
	b.prefetchAmount = amount
	return b
}

// WithPrefetcherFactory sets the function that creates the prefetcher. It is
// called once per cache built.
func (b Builder) WithPrefetcherFactory(
	f func() prefetching.Prefetcher,
) Builder {
	b.newPrefetcher = f
	return b
}

// WithSeed fixes the seed of the random replacement policy. Without a seed,
// the policy is seeded from the wall clock.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true

	return b
}

// WithHook registers a hook on every cache built.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, hook)

	return b
}

// Build builds a cache system.
func (b Builder) Build(name string) (*System, error) {
	if err := b.geometryMustBeValid(); err != nil {
		return nil, err
	}

	policy, err := b.createPolicy()
	if err != nil {
		return nil, err
	}

	prefetcher, err := b.createPrefetcher()
	if err != nil {
		return nil, err
	}

	s := &System{
		tags:       tagging.NewTagArray(b.numSets, b.associativity, b.lineSize),
		policy:     policy,
		prefetcher: prefetcher,
	}

	s.config = Config{
		Name:          name,
		NumSets:       b.numSets,
		Associativity: b.associativity,
		LineSize:      b.lineSize,
		Policy:        policy.Name(),
		Prefetcher:    NoPrefetcher,
	}

	if prefetcher != nil {
		s.config.Prefetcher = prefetcher.Name()
	}

	if seq, ok := prefetcher.(*prefetching.SequentialPrefetcher); ok {
		s.config.PrefetchAmount = seq.Amount()
	}

	for _, hook := range b.hooks {
		s.AcceptHook(hook)
	}

	return s, nil
}

func (b Builder) geometryMustBeValid() error {
	if b.numSets == 0 {
		return fmt.Errorf("%w: number of sets must be positive",
			ErrInvalidGeometry)
	}

	if b.associativity == 0 {
		return fmt.Errorf("%w: associativity must be positive",
			ErrInvalidGeometry)
	}

	if b.lineSize == 0 || bits.OnesCount64(b.lineSize) != 1 {
		return fmt.Errorf("%w: line size %d is not a positive power of two",
			ErrInvalidGeometry, b.lineSize)
	}

	hi, numLines := bits.Mul64(b.numSets, b.associativity)
	if hi != 0 || numLines > math.MaxInt {
		return fmt.Errorf("%w: %d sets of %d ways cannot be allocated",
			ErrInvalidGeometry, b.numSets, b.associativity)
	}

	return nil
}

func (b Builder) createPolicy() (replacement.Policy, error) {
	if b.newPolicy != nil {
		return b.newPolicy(), nil
	}

	switch strings.ToLower(b.policyName) {
	case replacement.LRUName:
		return replacement.NewLRUPolicy(), nil
	case replacement.RandomName, "random":
		seed := b.seed
		if !b.seedSet {
			seed = time.Now().UnixNano()
		}

		return replacement.NewRandomPolicy(rand.NewSource(seed)), nil
	case replacement.LRUPreferCleanName:
		return replacement.NewLRUPreferCleanPolicy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, b.policyName)
	}
}

func (b Builder) createPrefetcher() (prefetching.Prefetcher, error) {
	if b.newPrefetcher != nil {
		return b.newPrefetcher(), nil
	}

	switch strings.ToLower(b.prefetcherName) {
	case "", NoPrefetcher:
		return nil, nil
	case prefetching.NullName:
		return prefetching.NewNullPrefetcher(), nil
	case prefetching.SequentialName:
		return prefetching.NewSequentialPrefetcher(b.prefetchAmount), nil
	case prefetching.AdjacentName:
		return prefetching.NewAdjacentPrefetcher(), nil
	case prefetching.StridedName, "strided":
		return prefetching.NewStridedPrefetcher(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefetcher, b.prefetcherName)
	}
}
