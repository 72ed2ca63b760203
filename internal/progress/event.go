package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageItemStart Stage = "ITEM_START"
	StageItemDone  Stage = "ITEM_DONE"
	StageItemError Stage = "ITEM_ERROR"
	StageItemWarn  Stage = "ITEM_WARN"
)

// Event captures a single milestone of a crawl run.
type Event struct {
	// RunID identifies the batch run that emitted the event.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// PuzzleID scopes item events to one puzzle.
	PuzzleID int
	URL      string
	// Bytes is the size of the fetched page.
	Bytes int64
	// Letters and Pangrams summarize a successful extraction.
	Letters  string
	Pangrams int
	// Dur captures fetch+extract latency for items and wall time for runs.
	Dur time.Duration
	// Note carries low-volume context such as a warning or run totals.
	Note string
	// Err is set on ITEM_ERROR events.
	Err error
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageItemStart, StageItemDone, StageItemWarn:
		if e.PuzzleID <= 0 {
			return fmt.Errorf("%s requires puzzle id", e.Stage)
		}
	case StageItemError:
		if e.PuzzleID <= 0 {
			return fmt.Errorf("%s requires puzzle id", e.Stage)
		}
		if e.Err == nil && e.Note == "" {
			return errors.New("item error requires an error or note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
