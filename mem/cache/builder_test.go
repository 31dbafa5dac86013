package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/mem/cache/prefetching"
	"github.com/sarchlab/cachesim/mem/cache/replacement"
	"github.com/sarchlab/cachesim/sim/hooking"
)

var _ = Describe("Builder", func() {
	It("should build with defaults", func() {
		s, err := MakeBuilder().Build("L1")

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("L1"))
		Expect(s.Config()).To(Equal(Config{
			Name:          "L1",
			NumSets:       64,
			Associativity: 4,
			LineSize:      64,
			Policy:        "lru",
			Prefetcher:    "none",
		}))
		Expect(s.Config().TotalSize()).To(Equal(uint64(16384)))
		Expect(s.Tags().Lines).To(HaveLen(256))
		Expect(s.Prefetcher()).To(BeNil())
		Expect(s.Occupancy()).To(BeZero())
	})

	DescribeTable("should reject invalid geometry",
		func(sets, ways, lineSize uint64) {
			_, err := MakeBuilder().
				WithNumSets(sets).
				WithAssociativity(ways).
				WithLineSize(lineSize).
				Build("Cache")

			Expect(err).To(MatchError(ErrInvalidGeometry))
		},
		Entry("zero sets", uint64(0), uint64(4), uint64(64)),
		Entry("zero associativity", uint64(4), uint64(0), uint64(64)),
		Entry("zero line size", uint64(4), uint64(4), uint64(0)),
		Entry("line size not a power of two", uint64(4), uint64(4), uint64(48)),
		Entry("line count overflows", uint64(1)<<63, uint64(2), uint64(64)),
		Entry("line count beyond an int", uint64(1)<<62, uint64(2), uint64(64)),
	)

	It("should accept a non power of two number of sets", func() {
		_, err := MakeBuilder().WithNumSets(3).Build("Cache")

		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("should select policies by name",
		func(name string, expected replacement.Policy) {
			s, err := MakeBuilder().WithReplacementPolicy(name).Build("Cache")

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Policy()).To(BeAssignableToTypeOf(expected))
		},
		Entry("lru", "lru", &replacement.LRUPolicy{}),
		Entry("rand", "rand", &replacement.RandomPolicy{}),
		Entry("random", "Random", &replacement.RandomPolicy{}),
		Entry("lru_prefer_clean", "lru_prefer_clean",
			&replacement.LRUPreferCleanPolicy{}),
	)

	DescribeTable("should select prefetchers by name",
		func(name string, expected prefetching.Prefetcher) {
			s, err := MakeBuilder().WithPrefetcher(name).Build("Cache")

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Prefetcher()).To(BeAssignableToTypeOf(expected))
		},
		Entry("null", "null", prefetching.NullPrefetcher{}),
		Entry("sequential", "sequential", &prefetching.SequentialPrefetcher{}),
		Entry("adjacent", "adjacent", prefetching.AdjacentPrefetcher{}),
		Entry("custom", "custom", &prefetching.StridedPrefetcher{}),
		Entry("strided", "strided", &prefetching.StridedPrefetcher{}),
	)

	It("should record the prefetch amount", func() {
		s, err := MakeBuilder().
			WithPrefetcher("sequential").
			WithPrefetchAmount(3).
			Build("Cache")

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Config().Prefetcher).To(Equal("sequential"))
		Expect(s.Config().PrefetchAmount).To(Equal(uint64(3)))
	})

	It("should reject unknown names", func() {
		_, err := MakeBuilder().WithReplacementPolicy("fifo").Build("Cache")
		Expect(err).To(MatchError(ErrUnknownPolicy))

		_, err = MakeBuilder().WithPrefetcher("markov").Build("Cache")
		Expect(err).To(MatchError(ErrUnknownPrefetcher))
	})

	It("should give every cache its own strategies", func() {
		b := MakeBuilder().WithReplacementPolicy("rand").WithPrefetcher("custom")

		a, err := b.Build("A")
		Expect(err).NotTo(HaveOccurred())
		c, err := b.Build("C")
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Policy()).NotTo(BeIdenticalTo(c.Policy()))
		Expect(a.Prefetcher()).NotTo(BeIdenticalTo(c.Prefetcher()))
	})

	It("should call the factories once per cache", func() {
		policies, prefetchers := 0, 0
		b := MakeBuilder().
			WithPolicyFactory(func() replacement.Policy {
				policies++
				return replacement.NewLRUPolicy()
			}).
			WithPrefetcherFactory(func() prefetching.Prefetcher {
				prefetchers++
				return prefetching.NewStridedPrefetcher()
			})

		a, err := b.Build("A")
		Expect(err).NotTo(HaveOccurred())
		c, err := b.Build("C")
		Expect(err).NotTo(HaveOccurred())

		Expect(policies).To(Equal(2))
		Expect(prefetchers).To(Equal(2))
		Expect(a.Prefetcher()).NotTo(BeIdenticalTo(c.Prefetcher()))
		Expect(a.Config().Prefetcher).To(Equal("custom"))
	})

	It("should drop a factory when a name is selected", func() {
		s, err := MakeBuilder().
			WithPolicyFactory(func() replacement.Policy {
				return replacement.NewLRUPreferCleanPolicy()
			}).
			WithReplacementPolicy("lru").
			Build("Cache")

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Policy()).To(BeAssignableToTypeOf(&replacement.LRUPolicy{}))
	})

	It("should not share hooks between derived builders", func() {
		base := MakeBuilder()
		withHook := base.WithHook(hooking.HookFunc(func(hooking.HookCtx) {}))

		a, err := base.Build("A")
		Expect(err).NotTo(HaveOccurred())
		b, err := withHook.Build("B")
		Expect(err).NotTo(HaveOccurred())

		Expect(a.NumHooks()).To(Equal(0))
		Expect(b.NumHooks()).To(Equal(1))
	})
})
