// Package csvfile appends puzzle records to a CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/metrics"
	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// Header is written once when the file is created.
var Header = []string{"letters", "panagrams"}

// DefaultDelimiter joins pangrams within one field. It never appears inside a word.
const DefaultDelimiter = "|"

// Writer appends records to a CSV file.
type Writer struct {
	path      string
	delimiter string
	logger    *zap.Logger
}

// New creates a Writer for path.
func New(path string, delimiter string, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if delimiter == "," {
		return nil, fmt.Errorf("pangram delimiter must differ from the csv separator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{path: path, delimiter: delimiter, logger: logger}, nil
}

// Path returns the target file.
func (w *Writer) Path() string {
	return w.path
}

// Write appends one row per record and returns the number of data rows written.
// The header is emitted only when the file is new or empty.
func (w *Writer) Write(ctx context.Context, records []puzzle.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context canceled: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	needHeader := false
	info, err := os.Stat(w.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		needHeader = true
	case err != nil:
		return 0, fmt.Errorf("stat %s: %w", w.path, err)
	case info.IsDir():
		return 0, fmt.Errorf("output path %s is a directory", w.path)
	case info.Size() == 0:
		needHeader = true
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", w.path, err)
	}

	// Rows end in CRLF so appends match files produced by other csv tooling.
	cw := csv.NewWriter(f)
	cw.UseCRLF = true
	rows, writeErr := w.writeRows(cw, records, needHeader)
	if closeErr := f.Close(); closeErr != nil && writeErr == nil {
		writeErr = fmt.Errorf("close %s: %w", w.path, closeErr)
	}
	metrics.AddRowsWritten(rows)
	return rows, writeErr
}

func (w *Writer) writeRows(cw *csv.Writer, records []puzzle.Record, header bool) (int, error) {
	if header {
		if err := cw.Write(Header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}
	rows := 0
	for _, rec := range records {
		letters := strings.ToUpper(strings.TrimSpace(rec.Letters.String()))
		if len(letters) < puzzle.LetterCount {
			w.logger.Debug("skipping record with short letter set",
				zap.Int("puzzle_id", int(rec.ID)),
				zap.String("letters", letters),
			)
			continue
		}
		if err := cw.Write([]string{letters, strings.Join(rec.Pangrams, w.delimiter)}); err != nil {
			return rows, fmt.Errorf("write puzzle %d: %w", rec.ID, err)
		}
		rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}
