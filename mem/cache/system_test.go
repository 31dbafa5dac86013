package cache

import (
	"bytes"
	"errors"
	"log"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/mem/cache/prefetching"
	"github.com/sarchlab/cachesim/mem/cache/replacement"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

type countingPrefetcher struct {
	inner prefetching.Prefetcher
	calls int
}

func (p *countingPrefetcher) Name() string { return "counting" }

func (p *countingPrefetcher) Observe(
	issuer prefetching.Issuer,
	addr uint64,
	wasMiss bool,
) uint64 {
	p.calls++
	return p.inner.Observe(issuer, addr, wasMiss)
}

type closingPolicy struct {
	*replacement.LRUPolicy
	closed int
	err    error
}

func (p *closingPolicy) Close() error {
	p.closed++
	return p.err
}

func mustBuild(b Builder) *System {
	s, err := b.Build("Cache")
	Expect(err).NotTo(HaveOccurred())

	return s
}

func policyOf(p replacement.Policy) func() replacement.Policy {
	return func() replacement.Policy { return p }
}

func runTrace(s *System, addrs []uint64) []Outcome {
	outcomes := make([]Outcome, 0, len(addrs))
	for _, addr := range addrs {
		outcomes = append(outcomes, s.Access(addr, Read))
	}

	return outcomes
}

func randomAddresses(seed int64, n int, limit uint64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	addrs := make([]uint64, n)

	for i := range addrs {
		addrs[i] = uint64(rng.Int63n(int64(limit)))
	}

	return addrs
}

var _ = Describe("System", func() {
	var (
		mockCtrl *gomock.Controller
		tiny     Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tiny = MakeBuilder().
			WithNumSets(1).
			WithAssociativity(2).
			WithLineSize(4)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should evict the oldest line in a 2-way set", func() {
		s := mustBuild(tiny)

		Expect(runTrace(s, []uint64{0, 4, 8, 0})).
			To(Equal([]Outcome{Miss, Miss, Miss, Miss}))

		_, found := s.Tags().FindLine(s.Tags().Decompose(4))
		Expect(found).To(BeFalse())
	})

	It("should count a touch as a hit refresh", func() {
		s := mustBuild(tiny)

		Expect(runTrace(s, []uint64{0, 4, 0, 8, 0, 3})).
			To(Equal([]Outcome{Miss, Miss, Hit, Miss, Hit, Hit}))

		stats := s.Stats()
		Expect(stats.Accesses).To(Equal(uint64(6)))
		Expect(stats.Hits).To(Equal(uint64(3)))
		Expect(stats.Misses).To(Equal(uint64(3)))
		Expect(stats.Evictions).To(Equal(uint64(1)))
		Expect(stats.HitRatio()).To(BeNumerically("~", 0.5))
	})

	It("should evict the least recently touched line", func() {
		s := mustBuild(MakeBuilder().
			WithNumSets(1).
			WithAssociativity(4).
			WithLineSize(16))

		runTrace(s, []uint64{0x00, 0x10, 0x20, 0x30, 0x10, 0x00})
		Expect(s.Access(0x40, Read)).To(Equal(Miss))

		for _, addr := range []uint64{0x00, 0x10, 0x30, 0x40} {
			_, found := s.Tags().FindLine(s.Tags().Decompose(addr))
			Expect(found).To(BeTrue())
		}

		_, found := s.Tags().FindLine(s.Tags().Decompose(0x20))
		Expect(found).To(BeFalse())
	})

	It("should track the status of lines", func() {
		s := mustBuild(MakeBuilder().WithNumSets(4).WithLineSize(16))

		s.Access(0x000, Read)
		s.Access(0x100, Write)
		s.Access(0x200, Read)
		s.Access(0x200, Write)
		s.Access(0x100, Read)

		status := func(addr uint64) tagging.Status {
			line, found := s.Tags().FindLine(s.Tags().Decompose(addr))
			Expect(found).To(BeTrue())

			return line.Status
		}

		Expect(status(0x000)).To(Equal(tagging.Exclusive))
		Expect(status(0x100)).To(Equal(tagging.Modified))
		Expect(status(0x200)).To(Equal(tagging.Modified))

		stats := s.Stats()
		Expect(stats.Reads).To(Equal(uint64(3)))
		Expect(stats.Writes).To(Equal(uint64(2)))
	})

	It("should count dirty evictions", func() {
		s := mustBuild(tiny.WithAssociativity(1))

		s.Access(0, Write)
		s.Access(4, Read)
		s.Access(8, Read)

		stats := s.Stats()
		Expect(stats.Evictions).To(Equal(uint64(2)))
		Expect(stats.DirtyEvictions).To(Equal(uint64(1)))
	})

	It("should keep every set within its associativity", func() {
		s := mustBuild(MakeBuilder().
			WithNumSets(4).
			WithAssociativity(2).
			WithLineSize(8).
			WithReplacementPolicy("rand").
			WithSeed(1))

		for _, addr := range randomAddresses(1, 2000, 1024) {
			s.Access(addr, Op(addr%2))

			for setID := 0; setID < 4; setID++ {
				Expect(s.Tags().NumValid(setID)).To(BeNumerically("<=", 2))

				seen := make(map[uint64]bool)
				for _, line := range s.Tags().Set(setID) {
					if !line.IsValid {
						continue
					}

					Expect(seen).NotTo(HaveKey(line.Tag))
					seen[line.Tag] = true
				}
			}
		}

		Expect(s.Occupancy()).To(Equal(uint64(8)))
	})

	It("should prefer evicting clean lines", func() {
		s := mustBuild(tiny.WithReplacementPolicy("lru_prefer_clean"))

		s.Access(0, Write)
		s.Access(4, Read)
		s.Access(8, Read)

		Expect(s.Access(0, Read)).To(Equal(Hit))
		Expect(s.Access(4, Read)).To(Equal(Miss))
	})

	It("should be reproducible with the same seed", func() {
		b := MakeBuilder().
			WithNumSets(2).
			WithAssociativity(4).
			WithLineSize(16).
			WithReplacementPolicy("rand").
			WithSeed(5)
		addrs := randomAddresses(9, 1000, 4096)

		Expect(runTrace(mustBuild(b), addrs)).
			To(Equal(runTrace(mustBuild(b), addrs)))
	})

	Context("with a mocked policy", func() {
		var policy *MockPolicy

		BeforeEach(func() {
			policy = NewMockPolicy(mockCtrl)
			policy.EXPECT().Name().Return("mock").AnyTimes()
		})

		It("should only ask for a victim when the set is full", func() {
			s := mustBuild(tiny.WithPolicyFactory(policyOf(policy)))

			policy.EXPECT().Visit(s.Tags(), 0, gomock.Any()).Times(3)
			policy.EXPECT().FindVictim(s.Tags(), 0).Return(1).Times(1)

			runTrace(s, []uint64{0, 4, 8})

			Expect(s.Tags().Set(0)[0].Tag).To(Equal(uint64(0)))
			Expect(s.Tags().Set(0)[1].Tag).To(Equal(uint64(2)))
		})

		It("should visit the line on hits", func() {
			s := mustBuild(tiny.WithPolicyFactory(policyOf(policy)))

			gomock.InOrder(
				policy.EXPECT().Visit(s.Tags(), 0, uint64(3)),
				policy.EXPECT().Visit(s.Tags(), 0, uint64(3)),
			)

			runTrace(s, []uint64{12, 13})
		})

		It("should panic if the policy picks a way outside the set", func() {
			s := mustBuild(tiny.WithPolicyFactory(policyOf(policy)))

			policy.EXPECT().Visit(gomock.Any(), gomock.Any(), gomock.Any()).
				AnyTimes()
			policy.EXPECT().FindVictim(s.Tags(), 0).Return(2)

			runTrace(s, []uint64{0, 4})
			Expect(func() { s.Access(8, Read) }).To(Panic())
		})
	})

	Context("with prefetching", func() {
		It("should fill prefetched lines without counting them as hits", func() {
			s := mustBuild(MakeBuilder().
				WithNumSets(16).
				WithPrefetcher("sequential").
				WithPrefetchAmount(2))

			Expect(s.Access(0, Read)).To(Equal(Miss))
			Expect(s.Access(64, Read)).To(Equal(Hit))
			Expect(s.Access(128, Read)).To(Equal(Hit))

			stats := s.Stats()
			Expect(stats.Accesses).To(Equal(uint64(3)))
			Expect(stats.Hits).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.LinesPrefetched).To(Equal(uint64(6)))
			Expect(stats.PrefetchHits).To(Equal(uint64(2)))
			Expect(stats.PrefetchMisses).To(Equal(uint64(4)))
		})

		It("should never invoke the prefetcher for speculative reads", func() {
			counting := &countingPrefetcher{
				inner: prefetching.NewSequentialPrefetcher(4),
			}
			s := mustBuild(MakeBuilder().WithPrefetcherFactory(
				func() prefetching.Prefetcher { return counting }))

			runTrace(s, randomAddresses(2, 10, 1<<20))

			Expect(counting.calls).To(Equal(10))
			Expect(s.Stats().LinesPrefetched).To(Equal(uint64(40)))
		})

		It("should let the prefetcher observe the completed access", func() {
			s := mustBuild(tiny.WithPrefetcher("adjacent"))

			s.Access(0, Read)

			Expect(s.Tags().Time).To(Equal(uint64(2)))
			line, found := s.Tags().FindLine(s.Tags().Decompose(4))
			Expect(found).To(BeTrue())
			Expect(line.LastUsed).To(Equal(uint64(1)))
			Expect(line.Status).To(Equal(tagging.Exclusive))
		})

		It("should give the null prefetcher no effect", func() {
			b := MakeBuilder().
				WithNumSets(8).
				WithAssociativity(2).
				WithLineSize(16)
			addrs := randomAddresses(3, 2000, 4096)

			withNull := mustBuild(b.WithPrefetcher("null"))
			without := mustBuild(b.WithPrefetcher("none"))

			Expect(runTrace(withNull, addrs)).To(Equal(runTrace(without, addrs)))
			Expect(withNull.Stats()).To(Equal(without.Stats()))
		})

		It("should lock onto a stride", func() {
			s := mustBuild(MakeBuilder().
				WithNumSets(64).
				WithPrefetcher("custom"))

			outcomes := runTrace(s, []uint64{0, 128, 256, 384, 512, 640})

			Expect(outcomes).To(Equal(
				[]Outcome{Miss, Miss, Miss, Miss, Hit, Hit}))
		})
	})

	Context("hooks", func() {
		It("should report accesses, evictions and prefetches", func() {
			hook := NewMockHook(mockCtrl)
			s := mustBuild(tiny.WithAssociativity(1).
				WithPrefetcher("adjacent").
				WithHook(hook))

			var ctxs []hooking.HookCtx
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) { ctxs = append(ctxs, ctx) }).
				AnyTimes()

			s.Access(0, Write)

			Expect(ctxs).To(HaveLen(4))
			Expect(ctxs[0].Pos).To(Equal(HookPosAccess))
			Expect(ctxs[0].Item).To(Equal(AccessInfo{
				Address: 0,
				Op:      Write,
				Outcome: Miss,
				Time:    1,
			}))
			Expect(ctxs[1].Pos).To(Equal(HookPosEvict))
			Expect(ctxs[1].Item).To(Equal(EvictionInfo{
				Address: 0,
				Tag:     0,
				Status:  tagging.Modified,
				Time:    1,
			}))
			Expect(ctxs[2].Pos).To(Equal(HookPosAccess))
			Expect(ctxs[2].Item.(AccessInfo).Speculative).To(BeTrue())
			Expect(ctxs[2].Item.(AccessInfo).Tag).To(Equal(uint64(1)))
			Expect(ctxs[3].Pos).To(Equal(HookPosPrefetch))
			Expect(ctxs[3].Item).To(Equal(PrefetchInfo{
				Address:  0,
				WasMiss:  true,
				NumLines: 1,
			}))
		})

		It("should log accesses", func() {
			buf := new(bytes.Buffer)
			logger := NewAccessLogger(log.New(buf, "", 0))
			s := mustBuild(tiny.WithAssociativity(1).WithHook(logger))

			s.Access(0, Read)
			s.Access(4, Write)

			Expect(buf.String()).To(ContainSubstring("access, R, 0x0"))
			Expect(buf.String()).To(ContainSubstring("access, W, 0x4"))
			Expect(buf.String()).To(ContainSubstring("evict, 0x0"))
		})
	})

	It("should copy set lines and validate set ids", func() {
		s := mustBuild(tiny)
		s.Access(0, Read)

		lines, err := s.SetLines(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(HaveLen(2))
		Expect(lines[0].IsValid).To(BeTrue())

		lines[0].IsValid = false
		Expect(s.Tags().Set(0)[0].IsValid).To(BeTrue())

		_, err = s.SetLines(1)
		Expect(err).To(HaveOccurred())
	})

	It("should reset statistics only", func() {
		s := mustBuild(tiny)
		s.Access(0, Read)

		s.ResetStats()

		Expect(s.Stats()).To(BeZero())
		Expect(s.Access(0, Read)).To(Equal(Hit))
	})

	It("should behave like a new cache after reset", func() {
		b := MakeBuilder().WithNumSets(4).WithPrefetcher("custom")
		used := mustBuild(b)
		fresh := mustBuild(b)

		runTrace(used, []uint64{0, 256, 512, 768, 1024})
		used.Reset()

		Expect(used.Occupancy()).To(BeZero())
		Expect(used.Stats()).To(BeZero())
		Expect(used.Tags().Time).To(BeZero())

		addrs := []uint64{4096, 4160, 4224, 4288, 4352}
		Expect(runTrace(used, addrs)).To(Equal(runTrace(fresh, addrs)))
		Expect(used.Stats()).To(Equal(fresh.Stats()))
		Expect(used.Tags().Lines).To(Equal(fresh.Tags().Lines))
	})

	It("should release its strategies on close", func() {
		policy := &closingPolicy{
			LRUPolicy: replacement.NewLRUPolicy(),
			err:       errors.New("boom"),
		}
		s := mustBuild(tiny.WithPolicyFactory(policyOf(policy)).WithPrefetcher("custom"))
		s.Access(0, Read)

		Expect(s.Close()).To(MatchError("boom"))
		Expect(s.Close()).To(Succeed())
		Expect(policy.closed).To(Equal(1))
		Expect(s.Policy()).To(BeNil())
		Expect(s.Prefetcher()).To(BeNil())
		Expect(s.Stats().Misses).To(Equal(uint64(1)))
		Expect(func() { s.Access(0, Read) }).To(Panic())
	})
})
