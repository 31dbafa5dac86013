package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// HookPosAccess marks that an access, primary or speculative, has completed.
var HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}

// HookPosEvict marks that a valid line is about to be overwritten.
var HookPosEvict = &hooking.HookPos{Name: "CacheEvict"}

// HookPosPrefetch marks that the prefetcher has finished reacting to a
// primary access.
var HookPosPrefetch = &hooking.HookPos{Name: "CachePrefetch"}

// AccessInfo is the item of a HookPosAccess hook.
type AccessInfo struct {
	Address     uint64
	Op          Op
	SetID       int
	WayID       int
	Tag         uint64
	Outcome     Outcome
	Speculative bool
	Time        uint64
}

// EvictionInfo is the item of a HookPosEvict hook.
type EvictionInfo struct {
	Address uint64
	SetID   int
	WayID   int
	Tag     uint64
	Status  tagging.Status
	Time    uint64
}

// PrefetchInfo is the item of a HookPosPrefetch hook.
type PrefetchInfo struct {
	Address  uint64
	WasMiss  bool
	NumLines uint64
}

func (s *System) traceAccess(info AccessInfo) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosAccess,
		Item:   info,
	})
}

func (s *System) traceEviction(info EvictionInfo) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosEvict,
		Item:   info,
	})
}

func (s *System) tracePrefetch(info PrefetchInfo) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosPrefetch,
		Item:   info,
	})
}
