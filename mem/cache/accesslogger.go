package cache

import (
	"log"

	"github.com/sarchlab/cachesim/sim/hooking"
)

// AccessLogger is a hook that prints every access and eviction of a cache.
type AccessLogger struct {
	hooking.LogHookBase

	// IncludeSpeculative makes the logger print prefetch-issued accesses too.
	IncludeSpeculative bool
}

// NewAccessLogger returns a new AccessLogger which will write into the logger.
func NewAccessLogger(logger *log.Logger) *AccessLogger {
	h := new(AccessLogger)
	h.Logger = logger

	return h
}

// Func writes the access information into the logger.
func (h *AccessLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosAccess:
		info := ctx.Item.(AccessInfo)
		if info.Speculative && !h.IncludeSpeculative {
			return
		}

		kind := "access"
		if info.Speculative {
			kind = "prefetch"
		}

		h.Printf("%d, %s, %s, 0x%x, set %d, way %d, tag 0x%x, %s",
			info.Time, kind, info.Op, info.Address,
			info.SetID, info.WayID, info.Tag, info.Outcome)
	case HookPosEvict:
		info := ctx.Item.(EvictionInfo)
		h.Printf("evict, 0x%x, set %d, way %d, tag 0x%x, %s",
			info.Address, info.SetID, info.WayID, info.Tag, info.Status)
	}
}
