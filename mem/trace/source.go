// Package trace reads memory traces and records what a cache does with them.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// An Entry is one memory reference of a trace.
type Entry struct {
	Op      cache.Op
	Address uint64
}

// A Source produces trace entries one at a time. Next returns io.EOF when the
// trace is exhausted.
type Source interface {
	Next() (Entry, error)
}

// ErrUnknownOp is returned when a trace line names an operation that is
// neither a read nor a write.
var ErrUnknownOp = errors.New("unknown operation")

// ErrMalformedLine is returned when a trace line does not have exactly two
// fields.
var ErrMalformedLine = errors.New("expected \"<op> <address>\"")

// ParseError reports a line of a text trace that cannot be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader parses a text trace. Each line holds an operation (R, W, READ or
// WRITE, in any case) and an address in decimal or 0x-prefixed hex. Blank
// lines and lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader that parses r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next entry of the trace.
func (r *Reader) Next() (Entry, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		entry, err := ParseLine(text)
		if err != nil {
			return Entry{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return entry, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Entry{}, err
	}

	return Entry{}, io.EOF
}

// ParseLine parses a single "<op> <address>" line.
func ParseLine(text string) (Entry, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return Entry{}, ErrMalformedLine
	}

	op, err := ParseOp(fields[0])
	if err != nil {
		return Entry{}, err
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Op: op, Address: addr}, nil
}

// ParseOp parses the operation field of a trace line.
func ParseOp(s string) (cache.Op, error) {
	switch strings.ToUpper(s) {
	case "R", "READ":
		return cache.Read, nil
	case "W", "WRITE":
		return cache.Write, nil
	default:
		return cache.Read, fmt.Errorf("%w: %s", ErrUnknownOp, s)
	}
}

// SliceSource serves entries from memory.
type SliceSource struct {
	entries []Entry
	next    int
}

// NewSliceSource creates a source that serves the given entries in order.
func NewSliceSource(entries []Entry) *SliceSource {
	return &SliceSource{entries: entries}
}

// Next returns the next entry.
func (s *SliceSource) Next() (Entry, error) {
	if s.next >= len(s.entries) {
		return Entry{}, io.EOF
	}

	e := s.entries[s.next]
	s.next++

	return e, nil
}

// Len returns the total number of entries.
func (s *SliceSource) Len() int {
	return len(s.entries)
}

// ReadAll drains a source.
func ReadAll(src Source) ([]Entry, error) {
	var entries []Entry

	for {
		e, err := src.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}

		if err != nil {
			return entries, err
		}

		entries = append(entries, e)
	}
}
