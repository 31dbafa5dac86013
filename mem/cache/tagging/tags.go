// Package tagging keeps the metadata of a set-associative cache: which block
// every line holds, its coherency state and when it was last touched.
package tagging

// A Line of a cache is the information that is associated with a cache line.
// Tag, Status and LastUsed are meaningless when IsValid is false.
type Line struct {
	IsValid  bool
	Tag      uint64
	Status   Status
	LastUsed uint64
}

// A TagArray stores the lines of all the sets in a flat slice. The lines of
// set s occupy Lines[s*NumWays : (s+1)*NumWays].
//
// Time is the logical clock that recency-based replacement policies stamp on
// the lines. It is advanced by the policies, not by the tag array.
type TagArray struct {
	NumSets  uint64
	NumWays  uint64
	LineSize uint64
	Lines    []Line
	Time     uint64
}

// NewTagArray creates a tag array with all lines invalid. The geometry must
// already be validated by the caller.
func NewTagArray(numSets, numWays, lineSize uint64) *TagArray {
	t := &TagArray{
		NumSets:  numSets,
		NumWays:  numWays,
		LineSize: lineSize,
	}

	t.Reset()

	return t
}

// TotalSize returns the maximum number of bytes can be stored in the cache.
func (t *TagArray) TotalSize() uint64 {
	return t.NumSets * t.NumWays * t.LineSize
}

// Decompose splits an address into the set it maps to and the tag that
// identifies its block within that set.
func (t *TagArray) Decompose(addr uint64) (setID int, tag uint64) {
	block := addr / t.LineSize
	setID = int(block % t.NumSets)
	tag = block / t.NumSets

	return setID, tag
}

// BlockAddress is the inverse of Decompose. It returns the address of the
// first byte of the block identified by the set and the tag.
func (t *TagArray) BlockAddress(setID int, tag uint64) uint64 {
	return (tag*t.NumSets + uint64(setID)) * t.LineSize
}

// Set returns the lines of a set. The returned slice aliases the tag array.
func (t *TagArray) Set(setID int) []Line {
	start := uint64(setID) * t.NumWays
	return t.Lines[start : start+t.NumWays]
}

// Line returns the line at a way of a set.
func (t *TagArray) Line(setID, wayID int) *Line {
	return &t.Lines[uint64(setID)*t.NumWays+uint64(wayID)]
}

// FindLine returns the first valid line in the set that holds the tag.
func (t *TagArray) FindLine(setID int, tag uint64) (*Line, bool) {
	wayID, ok := t.FindWay(setID, tag)
	if !ok {
		return nil, false
	}

	return t.Line(setID, wayID), true
}

// FindWay is FindLine, returning the way index instead of the line.
func (t *TagArray) FindWay(setID int, tag uint64) (int, bool) {
	for i, line := range t.Set(setID) {
		if line.IsValid && line.Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// FindEmpty returns the first invalid way of the set, if there is one.
func (t *TagArray) FindEmpty(setID int) (int, bool) {
	for i, line := range t.Set(setID) {
		if !line.IsValid {
			return i, true
		}
	}

	return 0, false
}

// NumValid returns the number of valid lines in a set.
func (t *TagArray) NumValid(setID int) int {
	n := 0

	for _, line := range t.Set(setID) {
		if line.IsValid {
			n++
		}
	}

	return n
}

// Tick returns the current logical time and advances the clock by one.
func (t *TagArray) Tick() uint64 {
	now := t.Time
	t.Time++

	return now
}

// Reset will mark all the lines invalid and rewind the clock.
func (t *TagArray) Reset() {
	t.Lines = make([]Line, t.NumSets*t.NumWays)
	t.Time = 0
}
