package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

var errNoInput = errors.New("input closed before a valid range was entered")

// promptRange asks for the starting and ending ids until both parse as a valid range.
func promptRange(in io.Reader, out io.Writer) (puzzle.Range, error) {
	scanner := bufio.NewScanner(in)
	for {
		start, ok := readID(scanner, out, "Enter starting puzzle ID: ")
		if !ok {
			return puzzle.Range{}, errNoInput
		}
		end, ok := readID(scanner, out, "Enter ending puzzle ID: ")
		if !ok {
			return puzzle.Range{}, errNoInput
		}
		if start == nil || end == nil {
			_, _ = fmt.Fprintln(out, "Please enter valid numbers")
			continue
		}
		rng := puzzle.Range{Start: *start, End: *end}
		switch {
		case !rng.Start.Valid() || !rng.End.Valid():
			_, _ = fmt.Fprintln(out, "Please enter positive numbers")
		case rng.End < rng.Start:
			_, _ = fmt.Fprintln(out, "Ending ID must not be before starting ID")
		default:
			return rng, nil
		}
	}
}

// readID returns ok=false on EOF and a nil id when the line is not an integer.
func readID(scanner *bufio.Scanner, out io.Writer, label string) (*puzzle.ID, bool) {
	_, _ = fmt.Fprint(out, label)
	if !scanner.Scan() {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, true
	}
	id := puzzle.ID(n)
	return &id, true
}

// rangeFromFlags builds a range when both bounds were given on the command line.
// ok is false when either bound is missing, in which case the caller prompts.
func rangeFromFlags(start, end int) (puzzle.Range, bool, error) {
	if start == 0 || end == 0 {
		return puzzle.Range{}, false, nil
	}
	rng := puzzle.Range{Start: puzzle.ID(start), End: puzzle.ID(end)}
	if err := rng.Validate(); err != nil {
		return puzzle.Range{}, true, err
	}
	return rng, true, nil
}
