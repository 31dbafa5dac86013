// Package prefetching provides strategies that bring lines into the cache
// before the trace asks for them.
package prefetching

// An Issuer is the only way a prefetcher can reach the cache. Reads issued
// through it are speculative: they fill the cache and update the replacement
// bookkeeping, but they never call a prefetcher again.
type Issuer interface {
	// LineSize returns the size of a cache line in bytes.
	LineSize() uint64

	// Prefetch issues a speculative read of the address.
	Prefetch(addr uint64)
}

// A Prefetcher observes every primary access and may prefetch lines it
// predicts will be needed soon.
type Prefetcher interface {
	// Name returns the name the prefetcher is selected by.
	Name() string

	// Observe is called after a primary access to addr has completed. It
	// returns the number of lines it prefetched.
	Observe(issuer Issuer, addr uint64, wasMiss bool) uint64
}

// A Resetter is a prefetcher that keeps a history it can forget.
type Resetter interface {
	Reset()
}

// Names of the built-in prefetchers.
const (
	NullName       = "null"
	SequentialName = "sequential"
	AdjacentName   = "adjacent"
	StridedName    = "custom"
)
