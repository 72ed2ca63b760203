// Package batch fans puzzle fetch+extract work out over a bounded worker pool.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/extract"
	"github.com/JakeFAU/spellingbee-crawler/internal/metrics"
	"github.com/JakeFAU/spellingbee-crawler/internal/pool"
	"github.com/JakeFAU/spellingbee-crawler/internal/progress"
	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// Fetcher downloads one puzzle page.
type Fetcher interface {
	Fetch(ctx context.Context, id puzzle.ID) (puzzle.FetchResponse, error)
}

// Extractor parses one puzzle page.
type Extractor interface {
	Extract(r io.Reader) (extract.Result, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}

// Result is the outcome of one run. Records are in completion order.
type Result struct {
	RunID    uuid.UUID
	Records  []puzzle.Record
	Failures map[puzzle.ID]error
}

// Orchestrator runs the per-puzzle pipeline across a range of identifiers.
type Orchestrator struct {
	fetcher   Fetcher
	extractor Extractor
	clock     Clock
	ids       IDGenerator
	emitter   progress.Emitter
	logger    *zap.Logger
}

// New constructs an Orchestrator. A nil emitter discards progress events.
func New(
	fetcher Fetcher,
	extractor Extractor,
	clock Clock,
	ids IDGenerator,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Orchestrator {
	if emitter == nil {
		emitter = progress.Nop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		clock:     clock,
		ids:       ids,
		emitter:   emitter,
		logger:    logger,
	}
}

type outcome struct {
	record puzzle.Record
	url    string
	bytes  int
	dur    time.Duration
}

// Run processes every identifier in rng with at most workers concurrent units and
// returns the records that were extracted. Per-puzzle failures are reported through
// the emitter and Result.Failures; they never fail the run.
func (o *Orchestrator) Run(ctx context.Context, rng puzzle.Range, workers int) (Result, error) {
	if err := rng.Validate(); err != nil {
		return Result{}, err
	}
	runID, err := o.ids.NewRunID()
	if err != nil {
		return Result{}, fmt.Errorf("new run id: %w", err)
	}
	started := o.clock.Now()
	o.emit(progress.Event{
		RunID: runID,
		Stage: progress.StageRunStart,
		Note:  fmt.Sprintf("puzzles %d..%d workers=%d", rng.Start, rng.End, workers),
	})

	result := Result{RunID: runID, Failures: make(map[puzzle.ID]error)}
	process := func(ctx context.Context, id puzzle.ID) (outcome, error) {
		return o.process(ctx, runID, id)
	}
	for res := range pool.Stream(ctx, rng.IDs(), workers, process) {
		if res.Err != nil {
			result.Failures[res.Item] = res.Err
			o.emit(progress.Event{
				RunID:    runID,
				Stage:    progress.StageItemError,
				PuzzleID: int(res.Item),
				URL:      res.Value.url,
				Dur:      res.Value.dur,
				Err:      res.Err,
			})
			continue
		}
		result.Records = append(result.Records, res.Value.record)
		o.emit(progress.Event{
			RunID:    runID,
			Stage:    progress.StageItemDone,
			PuzzleID: int(res.Item),
			URL:      res.Value.url,
			Bytes:    int64(res.Value.bytes),
			Letters:  res.Value.record.Letters.String(),
			Pangrams: len(res.Value.record.Pangrams),
			Dur:      res.Value.dur,
		})
	}

	o.emit(progress.Event{
		RunID: runID,
		Stage: progress.StageRunDone,
		Dur:   o.clock.Now().Sub(started),
		Note:  fmt.Sprintf("extracted=%d failed=%d", len(result.Records), len(result.Failures)),
	})
	return result, nil
}

func (o *Orchestrator) process(ctx context.Context, runID uuid.UUID, id puzzle.ID) (outcome, error) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := o.clock.Now()
	o.emit(progress.Event{RunID: runID, Stage: progress.StageItemStart, PuzzleID: int(id)})

	resp, err := o.fetcher.Fetch(ctx, id)
	out := outcome{url: resp.URL, bytes: len(resp.Body)}
	if err != nil {
		out.dur = o.clock.Now().Sub(start)
		return out, fmt.Errorf("fetch puzzle %d: %w", id, err)
	}

	parsed, err := o.extractor.Extract(bytes.NewReader(resp.Body))
	out.dur = o.clock.Now().Sub(start)
	if err != nil {
		return out, fmt.Errorf("extract puzzle %d: %w", id, err)
	}
	if len(parsed.Unrecognized) > 0 {
		o.emit(progress.Event{
			RunID:    runID,
			Stage:    progress.StageItemWarn,
			PuzzleID: int(id),
			URL:      resp.URL,
			Note:     "unrecognized pangram category: " + strings.Join(parsed.Unrecognized, "; "),
		})
	}
	if parsed.MissingAnswers > 0 {
		o.emit(progress.Event{
			RunID:    runID,
			Stage:    progress.StageItemWarn,
			PuzzleID: int(id),
			URL:      resp.URL,
			Note:     fmt.Sprintf("%d pangram rows without an answer link", parsed.MissingAnswers),
		})
	}
	out.record = parsed.Record(id)
	return out, nil
}

func (o *Orchestrator) emit(evt progress.Event) {
	evt.TS = o.clock.Now()
	if err := evt.Validate(); err != nil {
		o.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	o.emitter.Emit(evt)
}
