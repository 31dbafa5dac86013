package replacement

import "github.com/sarchlab/cachesim/mem/cache/tagging"

// LRUPreferCleanPolicy evicts the least recently used clean line. Only when
// every line of the set is dirty does it fall back to plain LRU.
type LRUPreferCleanPolicy struct {
}

// NewLRUPreferCleanPolicy returns a newly constructed policy.
func NewLRUPreferCleanPolicy() *LRUPreferCleanPolicy {
	return new(LRUPreferCleanPolicy)
}

// Name returns "lru_prefer_clean".
func (p *LRUPreferCleanPolicy) Name() string {
	return LRUPreferCleanName
}

// Visit behaves the same as LRU.
func (p *LRUPreferCleanPolicy) Visit(
	tags *tagging.TagArray,
	setID int,
	tag uint64,
) {
	stampLastUsed(tags, setID, tag)
}

// FindVictim returns the oldest clean way, or the oldest way if none is clean.
func (p *LRUPreferCleanPolicy) FindVictim(
	tags *tagging.TagArray,
	setID int,
) int {
	lines := tags.Set(setID)

	wayID, found := leastRecentlyUsed(lines, func(l tagging.Line) bool {
		return l.Status.IsClean()
	})
	if found {
		return wayID
	}

	wayID, _ = leastRecentlyUsed(lines, anyLine)

	return wayID
}
