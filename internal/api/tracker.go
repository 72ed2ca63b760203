package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/spellingbee-crawler/internal/progress"
)

// RunState is the lifecycle state of the tracked run.
type RunState string

// Run states reported by /v1/run.
const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
	RunStateDone    RunState = "done"
)

// RunStatus is the JSON snapshot of a run.
type RunStatus struct {
	RunID      string     `json:"run_id,omitempty"`
	State      RunState   `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	InFlight   int        `json:"in_flight"`
	Extracted  int        `json:"extracted"`
	Failed     int        `json:"failed"`
	Warnings   int        `json:"warnings"`
	Pangrams   int        `json:"pangrams"`
}

// Failure describes one skipped puzzle.
type Failure struct {
	PuzzleID int    `json:"puzzle_id"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error"`
}

// RunTracker folds progress events into counters served over HTTP.
// It implements progress.Emitter and is safe for concurrent use.
type RunTracker struct {
	mu       sync.RWMutex
	status   RunStatus
	started  map[int]struct{}
	failures map[int]Failure
}

// NewRunTracker returns an idle tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{
		status:   RunStatus{State: RunStateIdle},
		started:  make(map[int]struct{}),
		failures: make(map[int]Failure),
	}
}

// Emit implements progress.Emitter.
func (t *RunTracker) Emit(evt progress.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt.Stage {
	case progress.StageRunStart:
		ts := evt.TS
		t.status = RunStatus{RunID: runIDString(evt.RunID), State: RunStateRunning, StartedAt: &ts}
		t.started = make(map[int]struct{})
		t.failures = make(map[int]Failure)
	case progress.StageRunDone:
		ts := evt.TS
		t.status.State = RunStateDone
		t.status.FinishedAt = &ts
		clear(t.started)
	case progress.StageItemStart:
		t.started[evt.PuzzleID] = struct{}{}
	case progress.StageItemDone:
		delete(t.started, evt.PuzzleID)
		t.status.Extracted++
		t.status.Pangrams += evt.Pangrams
	case progress.StageItemError:
		// Canceled submissions fail without ever starting.
		delete(t.started, evt.PuzzleID)
		t.status.Failed++
		f := Failure{PuzzleID: evt.PuzzleID, URL: evt.URL}
		if evt.Err != nil {
			f.Error = evt.Err.Error()
		}
		t.failures[evt.PuzzleID] = f
	case progress.StageItemWarn:
		t.status.Warnings++
	}
	t.status.InFlight = len(t.started)
}

// Snapshot returns a copy of the current counters.
func (t *RunTracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Failures returns the failed puzzles ordered by id.
func (t *RunTracker) Failures() []Failure {
	t.mu.RLock()
	out := make([]Failure, 0, len(t.failures))
	for _, f := range t.failures {
		out = append(out, f)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PuzzleID < out[j].PuzzleID })
	return out
}

func runIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
