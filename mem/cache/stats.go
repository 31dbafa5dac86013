package cache

// Stats are the counters a cache system keeps over a run.
//
// Hits and Misses only count primary accesses, the ones the trace asked for.
// Speculative reads issued by the prefetcher are counted in PrefetchHits and
// PrefetchMisses. Evictions count both kinds.
type Stats struct {
	Accesses        uint64 `json:"accesses"`
	Reads           uint64 `json:"reads"`
	Writes          uint64 `json:"writes"`
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Evictions       uint64 `json:"evictions"`
	DirtyEvictions  uint64 `json:"dirty_evictions"`
	LinesPrefetched uint64 `json:"lines_prefetched"`
	PrefetchHits    uint64 `json:"prefetch_hits"`
	PrefetchMisses  uint64 `json:"prefetch_misses"`
}

// HitRatio returns Hits/Accesses, or 0 before the first access.
func (s Stats) HitRatio() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses)
}

// MissRatio returns Misses/Accesses, or 0 before the first access.
func (s Stats) MissRatio() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Misses) / float64(s.Accesses)
}
