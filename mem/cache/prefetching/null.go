package prefetching

// NullPrefetcher never prefetches.
type NullPrefetcher struct{}

// NewNullPrefetcher creates a NullPrefetcher.
func NewNullPrefetcher() NullPrefetcher {
	return NullPrefetcher{}
}

// Name returns "null".
func (NullPrefetcher) Name() string {
	return NullName
}

// Observe does nothing.
func (NullPrefetcher) Observe(Issuer, uint64, bool) uint64 {
	return 0
}
