// Package replacement provides the strategies that decide which line of a full
// set is overwritten when a new block has to be brought into the cache.
package replacement

import "github.com/sarchlab/cachesim/mem/cache/tagging"

// A Policy decides which line of a set should be evicted.
//
// Per-line recency lives in the tag array. A policy must not be shared between
// caches.
type Policy interface {
	// Name returns the name the policy is selected by.
	Name() string

	// Visit records that the block with the tag in the set was just accessed.
	// The line holding the block must already be valid.
	Visit(tags *tagging.TagArray, setID int, tag uint64)

	// FindVictim returns the way, within the set, that should be evicted.
	// It is only called when the set is full.
	FindVictim(tags *tagging.TagArray, setID int) int
}

// Names of the built-in policies.
const (
	LRUName            = "lru"
	RandomName         = "rand"
	LRUPreferCleanName = "lru_prefer_clean"
)

// stampLastUsed is the recency bookkeeping shared by the LRU-based policies.
func stampLastUsed(tags *tagging.TagArray, setID int, tag uint64) {
	now := tags.Tick()

	line, ok := tags.FindLine(setID, tag)
	if !ok {
		return
	}

	line.LastUsed = now
}

// leastRecentlyUsed returns the way with the smallest LastUsed among the lines
// accepted by the filter. Ties go to the lowest way.
func leastRecentlyUsed(
	lines []tagging.Line,
	accept func(l tagging.Line) bool,
) (wayID int, found bool) {
	for i, line := range lines {
		if !accept(line) {
			continue
		}

		if !found || line.LastUsed < lines[wayID].LastUsed {
			wayID = i
			found = true
		}
	}

	return wayID, found
}

func anyLine(tagging.Line) bool { return true }
