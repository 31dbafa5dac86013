package tagging

// Status is the coherency state of a cache line.
type Status int

// Line states. The zero value is Invalid.
const (
	Invalid Status = iota
	Shared
	Exclusive
	Modified
)

func (s Status) String() string {
	switch s {
	case Invalid:
		return "Invalid"
	case Shared:
		return "Shared"
	case Exclusive:
		return "Exclusive"
	case Modified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// IsClean reports whether the line holds the only copy and it is unmodified.
func (s Status) IsClean() bool {
	return s == Exclusive
}
