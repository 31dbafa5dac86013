package prefetching

// SequentialPrefetcher prefetches a fixed number of lines following every
// accessed address.
type SequentialPrefetcher struct {
	amount uint64
}

// NewSequentialPrefetcher creates a prefetcher that fetches amount lines
// ahead.
func NewSequentialPrefetcher(amount uint64) *SequentialPrefetcher {
	return &SequentialPrefetcher{amount: amount}
}

// Name returns "sequential".
func (p *SequentialPrefetcher) Name() string {
	return SequentialName
}

// Amount returns the number of lines fetched per access.
func (p *SequentialPrefetcher) Amount() uint64 {
	return p.amount
}

// Observe prefetches addr+k*LineSize for k in 1..amount, hit or miss.
func (p *SequentialPrefetcher) Observe(
	issuer Issuer,
	addr uint64,
	_ bool,
) uint64 {
	lineSize := issuer.LineSize()

	for k := uint64(1); k <= p.amount; k++ {
		issuer.Prefetch(addr + k*lineSize)
	}

	return p.amount
}
