package cache

// Op is the kind of a memory access.
type Op int

// Memory operations found in a trace.
const (
	Read Op = iota
	Write
)

func (o Op) String() string {
	switch o {
	case Read:
		return "R"
	case Write:
		return "W"
	default:
		return "?"
	}
}

// Outcome tells whether an access found its block in the cache.
type Outcome int

// Access outcomes.
const (
	Miss Outcome = iota
	Hit
)

func (o Outcome) String() string {
	if o == Hit {
		return "hit"
	}

	return "miss"
}
