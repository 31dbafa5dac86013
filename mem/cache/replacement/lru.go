package replacement

import "github.com/sarchlab/cachesim/mem/cache/tagging"

// LRUPolicy evicts the least recently used line.
type LRUPolicy struct {
}

// NewLRUPolicy returns a newly constructed lru policy.
func NewLRUPolicy() *LRUPolicy {
	return new(LRUPolicy)
}

// Name returns "lru".
func (p *LRUPolicy) Name() string {
	return LRUName
}

// Visit stamps the current time on the line and advances the clock.
func (p *LRUPolicy) Visit(tags *tagging.TagArray, setID int, tag uint64) {
	stampLastUsed(tags, setID, tag)
}

// FindVictim returns the least recently used way in a set.
func (p *LRUPolicy) FindVictim(tags *tagging.TagArray, setID int) int {
	wayID, _ := leastRecentlyUsed(tags.Set(setID), anyLine)
	return wayID
}
