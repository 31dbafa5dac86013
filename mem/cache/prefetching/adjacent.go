package prefetching

// AdjacentPrefetcher fetches the line right after every accessed address.
type AdjacentPrefetcher struct{}

// NewAdjacentPrefetcher creates an AdjacentPrefetcher.
func NewAdjacentPrefetcher() AdjacentPrefetcher {
	return AdjacentPrefetcher{}
}

// Name returns "adjacent".
func (AdjacentPrefetcher) Name() string {
	return AdjacentName
}

// Observe prefetches addr+LineSize.
func (AdjacentPrefetcher) Observe(issuer Issuer, addr uint64, _ bool) uint64 {
	issuer.Prefetch(addr + issuer.LineSize())
	return 1
}
