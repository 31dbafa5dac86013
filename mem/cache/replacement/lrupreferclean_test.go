package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/mem/cache/tagging"
)

var _ = Describe("LRUPreferCleanPolicy", func() {
	var (
		tags   *tagging.TagArray
		policy *LRUPreferCleanPolicy
	)

	BeforeEach(func() {
		tags = tagging.NewTagArray(1, 4, 64)
		policy = NewLRUPreferCleanPolicy()
	})

	It("should stamp like LRU", func() {
		fillSet(tags, 0,
			tagging.Exclusive, tagging.Exclusive,
			tagging.Exclusive, tagging.Exclusive)
		tags.Time = 3

		policy.Visit(tags, 0, 101)

		Expect(tags.Set(0)[1].LastUsed).To(Equal(uint64(3)))
		Expect(tags.Time).To(Equal(uint64(4)))
	})

	It("should prefer a clean line regardless of recency", func() {
		fillSet(tags, 0,
			tagging.Modified, tagging.Modified,
			tagging.Exclusive, tagging.Modified)
		tags.Set(0)[0].LastUsed = 0
		tags.Set(0)[1].LastUsed = 1
		tags.Set(0)[2].LastUsed = 99
		tags.Set(0)[3].LastUsed = 2

		Expect(policy.FindVictim(tags, 0)).To(Equal(2))
	})

	It("should pick the oldest among clean lines", func() {
		fillSet(tags, 0,
			tagging.Exclusive, tagging.Modified,
			tagging.Exclusive, tagging.Modified)
		tags.Set(0)[0].LastUsed = 8
		tags.Set(0)[1].LastUsed = 0
		tags.Set(0)[2].LastUsed = 4
		tags.Set(0)[3].LastUsed = 1

		Expect(policy.FindVictim(tags, 0)).To(Equal(2))
	})

	It("should treat shared lines as not clean", func() {
		fillSet(tags, 0,
			tagging.Shared, tagging.Exclusive,
			tagging.Shared, tagging.Shared)
		tags.Set(0)[0].LastUsed = 0
		tags.Set(0)[1].LastUsed = 5

		Expect(policy.FindVictim(tags, 0)).To(Equal(1))
	})

	It("should fall back to LRU when every line is dirty", func() {
		fillSet(tags, 0,
			tagging.Modified, tagging.Modified,
			tagging.Modified, tagging.Modified)
		tags.Set(0)[0].LastUsed = 7
		tags.Set(0)[1].LastUsed = 6
		tags.Set(0)[2].LastUsed = 2
		tags.Set(0)[3].LastUsed = 9

		Expect(policy.FindVictim(tags, 0)).To(Equal(2))
	})
})
