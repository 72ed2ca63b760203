// Package puzzle defines the core types shared by the fetch, extract, and write stages.
package puzzle

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
)

// LetterCount is the number of letters in every puzzle.
const LetterCount = 7

var (
	// ErrInvalidRange is returned when a Range fails validation.
	ErrInvalidRange = errors.New("invalid puzzle range")
	// ErrInvalidLetterSet is returned when a LetterSet breaks its invariant.
	ErrInvalidLetterSet = errors.New("invalid letter set")
)

// ID addresses one remote puzzle page.
type ID int

// Valid reports whether the identifier is positive.
func (id ID) Valid() bool {
	return id > 0
}

// Range is an inclusive span of puzzle identifiers.
type Range struct {
	Start ID `json:"start"`
	End   ID `json:"end"`
}

// Validate enforces positive bounds and End >= Start.
func (r Range) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: bounds must be positive (got %d..%d)", ErrInvalidRange, r.Start, r.End)
	}
	if r.End < r.Start {
		return fmt.Errorf("%w: end %d is before start %d", ErrInvalidRange, r.End, r.Start)
	}
	return nil
}

// Len returns the number of identifiers in the range, or 0 when invalid.
func (r Range) Len() int {
	if r.Validate() != nil {
		return 0
	}
	return int(r.End-r.Start) + 1
}

// IDs enumerates the identifiers in ascending order.
func (r Range) IDs() []ID {
	n := r.Len()
	ids := make([]ID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, r.Start+ID(i))
	}
	return ids
}

// LetterSet holds the center letter followed by the six other letters sorted alphabetically.
type LetterSet string

// NewLetterSet builds a LetterSet from the center letter and the remaining letters in any order.
func NewLetterSet(center rune, others []rune) (LetterSet, error) {
	if len(others) != LetterCount-1 {
		return "", fmt.Errorf("%w: need %d letters, got %d", ErrInvalidLetterSet, LetterCount, len(others)+1)
	}
	rest := make([]rune, 0, len(others))
	for _, r := range others {
		rest = append(rest, unicode.ToUpper(r))
	}
	slices.Sort(rest)

	var b strings.Builder
	b.WriteRune(unicode.ToUpper(center))
	for _, r := range rest {
		b.WriteRune(r)
	}
	ls := LetterSet(b.String())
	if err := ls.Validate(); err != nil {
		return "", err
	}
	return ls, nil
}

// Validate checks length, case, and ordering of the letter set.
func (ls LetterSet) Validate() error {
	if len(ls) != LetterCount {
		return fmt.Errorf("%w: length %d", ErrInvalidLetterSet, len(ls))
	}
	for i := 0; i < len(ls); i++ {
		c := ls[i]
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("%w: %q is not an uppercase letter", ErrInvalidLetterSet, rune(c))
		}
		if i > 1 && ls[i-1] > c {
			return fmt.Errorf("%w: %q is not sorted", ErrInvalidLetterSet, string(ls))
		}
	}
	return nil
}

// Center returns the designated center letter, or 0 for an empty set.
func (ls LetterSet) Center() rune {
	if ls == "" {
		return 0
	}
	return rune(ls[0])
}

// String implements fmt.Stringer.
func (ls LetterSet) String() string {
	return string(ls)
}

// Record pairs a puzzle's letters with its pangram answers.
type Record struct {
	ID       ID        `json:"id"`
	Letters  LetterSet `json:"letters"`
	Pangrams []string  `json:"pangrams"`
}

// FetchResponse is the raw page returned by a fetcher.
type FetchResponse struct {
	ID         ID
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// WorkerCount sizes the worker pool from the number of puzzles: n/divisor clamped to [floor, ceiling].
func WorkerCount(n, floor, ceiling, divisor int) int {
	if divisor <= 0 {
		divisor = 1
	}
	if floor <= 0 {
		floor = 1
	}
	if ceiling < floor {
		ceiling = floor
	}
	return min(ceiling, max(floor, n/divisor))
}
