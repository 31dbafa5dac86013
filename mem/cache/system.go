// Package cache simulates a set-associative cache driven by a memory trace.
package cache

import (
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/mem/cache/prefetching"
	"github.com/sarchlab/cachesim/mem/cache/replacement"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Config is the resolved configuration of a cache system.
type Config struct {
	Name           string `json:"name"`
	NumSets        uint64 `json:"num_sets"`
	Associativity  uint64 `json:"associativity"`
	LineSize       uint64 `json:"line_size"`
	Policy         string `json:"policy"`
	Prefetcher     string `json:"prefetcher"`
	PrefetchAmount uint64 `json:"prefetch_amount"`
}

// TotalSize returns the capacity of the cache in bytes.
func (c Config) TotalSize() uint64 {
	return c.NumSets * c.Associativity * c.LineSize
}

// A System is a set-associative cache. It decides hits and misses, fills and
// evicts lines, and lets its prefetcher react to every primary access.
//
// A System is not safe for concurrent use.
type System struct {
	hooking.HookableBase

	config     Config
	tags       *tagging.TagArray
	policy     replacement.Policy
	prefetcher prefetching.Prefetcher
	stats      Stats
	closed     bool
}

// Name returns the name of the cache.
func (s *System) Name() string {
	return s.config.Name
}

// Config returns the configuration the cache was built with.
func (s *System) Config() Config {
	return s.config
}

// Tags returns the tag array of the cache.
func (s *System) Tags() *tagging.TagArray {
	return s.tags
}

// Policy returns the replacement policy, or nil after Close.
func (s *System) Policy() replacement.Policy {
	return s.policy
}

// Prefetcher returns the prefetcher. It is nil when prefetching is disabled
// or after Close.
func (s *System) Prefetcher() prefetching.Prefetcher {
	return s.prefetcher
}

// Stats returns a copy of the counters.
func (s *System) Stats() Stats {
	return s.stats
}

// ResetStats clears the counters. The content of the cache is kept.
func (s *System) ResetStats() {
	s.stats = Stats{}
}

// Reset empties the cache and clears the counters. A prefetcher that keeps a
// history forgets it. The state of a random replacement policy is kept.
func (s *System) Reset() {
	s.mustBeOpen()

	s.tags.Reset()
	s.stats = Stats{}

	if r, ok := s.prefetcher.(prefetching.Resetter); ok {
		r.Reset()
	}
}

// LineSize returns the size of a line in bytes.
func (s *System) LineSize() uint64 {
	return s.config.LineSize
}

// SetLines returns a copy of the lines of a set.
func (s *System) SetLines(setID int) ([]tagging.Line, error) {
	if setID < 0 || uint64(setID) >= s.config.NumSets {
		return nil, fmt.Errorf("set %d out of range [0, %d)",
			setID, s.config.NumSets)
	}

	lines := make([]tagging.Line, s.config.Associativity)
	copy(lines, s.tags.Set(setID))

	return lines, nil
}

// Occupancy returns the number of valid lines in the cache.
func (s *System) Occupancy() uint64 {
	n := uint64(0)

	for _, line := range s.tags.Lines {
		if line.IsValid {
			n++
		}
	}

	return n
}

// Access performs one primary access, the kind a trace entry asks for. When
// the access has completed, including any eviction, the prefetcher is given a
// chance to issue speculative reads.
func (s *System) Access(addr uint64, op Op) Outcome {
	s.mustBeOpen()

	outcome := s.access(addr, op, false)
	s.countPrimary(op, outcome)

	if s.prefetcher != nil {
		n := s.prefetcher.Observe(speculativeIssuer{s}, addr, outcome == Miss)
		s.stats.LinesPrefetched += n

		s.tracePrefetch(PrefetchInfo{
			Address:  addr,
			WasMiss:  outcome == Miss,
			NumLines: n,
		})
	}

	return outcome
}

func (s *System) countPrimary(op Op, outcome Outcome) {
	s.stats.Accesses++

	if op == Write {
		s.stats.Writes++
	} else {
		s.stats.Reads++
	}

	if outcome == Hit {
		s.stats.Hits++
	} else {
		s.stats.Misses++
	}
}

// speculativeIssuer is handed to the prefetcher. It can only reach the part
// of an access that does not involve the prefetcher.
type speculativeIssuer struct {
	s *System
}

func (i speculativeIssuer) LineSize() uint64 {
	return i.s.config.LineSize
}

func (i speculativeIssuer) Prefetch(addr uint64) {
	if i.s.access(addr, Read, true) == Hit {
		i.s.stats.PrefetchHits++
	} else {
		i.s.stats.PrefetchMisses++
	}
}

func (s *System) access(addr uint64, op Op, speculative bool) Outcome {
	setID, tag := s.tags.Decompose(addr)

	outcome := Miss

	wayID, found := s.tags.FindWay(setID, tag)
	if found {
		outcome = Hit

		if op == Write {
			s.tags.Line(setID, wayID).Status = tagging.Modified
		}
	} else {
		wayID = s.fill(setID, tag, op)
	}

	s.policy.Visit(s.tags, setID, tag)

	s.traceAccess(AccessInfo{
		Address:     addr,
		Op:          op,
		SetID:       setID,
		WayID:       wayID,
		Tag:         tag,
		Outcome:     outcome,
		Speculative: speculative,
		Time:        s.tags.Time,
	})

	return outcome
}

// fill installs the block in the set, evicting a line if the set is full,
// and returns the way it was installed in.
func (s *System) fill(setID int, tag uint64, op Op) int {
	wayID, ok := s.tags.FindEmpty(setID)
	if !ok {
		wayID = s.policy.FindVictim(s.tags, setID)
		s.mustBeWayInSet(wayID)
		s.evict(setID, wayID)
	}

	status := tagging.Exclusive
	if op == Write {
		status = tagging.Modified
	}

	line := s.tags.Line(setID, wayID)
	line.IsValid = true
	line.Tag = tag
	line.Status = status

	return wayID
}

func (s *System) evict(setID, wayID int) {
	line := s.tags.Line(setID, wayID)

	s.stats.Evictions++
	if line.Status == tagging.Modified {
		s.stats.DirtyEvictions++
	}

	s.traceEviction(EvictionInfo{
		Address: s.tags.BlockAddress(setID, line.Tag),
		SetID:   setID,
		WayID:   wayID,
		Tag:     line.Tag,
		Status:  line.Status,
		Time:    s.tags.Time,
	})

	line.IsValid = false
}

func (s *System) mustBeWayInSet(wayID int) {
	if wayID < 0 || uint64(wayID) >= s.config.Associativity {
		panic(fmt.Sprintf("policy %s chose way %d in a %d-way set",
			s.policy.Name(), wayID, s.config.Associativity))
	}
}

func (s *System) mustBeOpen() {
	if s.closed {
		panic("cache " + s.config.Name + " is closed")
	}
}

// Close releases the replacement policy and the prefetcher. Strategies that
// implement io.Closer are closed first. The cache cannot be accessed after
// Close; the statistics stay readable.
func (s *System) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	var firstErr error

	for _, strategy := range []any{s.policy, s.prefetcher} {
		closer, ok := strategy.(io.Closer)
		if !ok {
			continue
		}

		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.policy = nil
	s.prefetcher = nil

	return firstErr
}
