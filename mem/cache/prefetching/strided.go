package prefetching

// StridedPrefetcher detects a constant stride from the last two jumps between
// accessed addresses. When the two jumps agree it prefetches one stride ahead,
// otherwise it prefetches the next line.
//
// The first access has no previous address, so it records a jump of one line.
// That provisional jump takes part in the comparison made two accesses later.
type StridedPrefetcher struct {
	lastAddress  uint64
	lastJump     int64
	lastLastJump int64

	// numJumps counts recorded jumps, saturating at 2. A comparison is only
	// made once both jump slots hold a recorded value.
	numJumps int
}

// NewStridedPrefetcher creates a StridedPrefetcher with no history.
func NewStridedPrefetcher() *StridedPrefetcher {
	return &StridedPrefetcher{}
}

// Name returns "custom".
func (p *StridedPrefetcher) Name() string {
	return StridedName
}

// Observe prefetches one line and updates the jump history.
func (p *StridedPrefetcher) Observe(
	issuer Issuer,
	addr uint64,
	_ bool,
) uint64 {
	lineSize := issuer.LineSize()

	var jump int64

	if p.numJumps == 0 {
		issuer.Prefetch(addr + lineSize)
		jump = int64(lineSize)
	} else {
		if p.strideLocked() {
			issuer.Prefetch(addr + uint64(p.lastJump))
		} else {
			issuer.Prefetch(addr + lineSize)
		}

		jump = int64(addr - p.lastAddress)
	}

	p.lastLastJump = p.lastJump
	p.lastJump = jump
	p.lastAddress = addr

	if p.numJumps < 2 {
		p.numJumps++
	}

	return 1
}

func (p *StridedPrefetcher) strideLocked() bool {
	return p.numJumps >= 2 && p.lastJump == p.lastLastJump
}

var _ Resetter = (*StridedPrefetcher)(nil)

// Reset forgets the access history.
func (p *StridedPrefetcher) Reset() {
	*p = StridedPrefetcher{}
}
