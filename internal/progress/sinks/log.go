package sinks

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/progress"
)

// LogSink emits structured logs for each progress event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the emitter interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Emit logs evt at a level matching its stage.
func (s *LogSink) Emit(evt progress.Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.PuzzleID > 0 {
		fields = append(fields, zap.Int("puzzle_id", evt.PuzzleID))
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL))
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("dur", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}

	switch evt.Stage {
	case progress.StageItemStart:
		s.logger.Debug("fetching puzzle", fields...)
	case progress.StageItemDone:
		fields = append(fields,
			zap.String("letters", evt.Letters),
			zap.Int("pangrams", evt.Pangrams),
			zap.Int64("bytes", evt.Bytes),
		)
		s.logger.Info("puzzle extracted", fields...)
	case progress.StageItemWarn:
		s.logger.Warn("puzzle page warning", fields...)
	case progress.StageItemError:
		s.logger.Warn("puzzle skipped", append(fields, zap.Error(evt.Err))...)
	case progress.StageRunStart:
		s.logger.Info("run started", fields...)
	case progress.StageRunDone:
		s.logger.Info("run finished", fields...)
	default:
		s.logger.Debug("progress event", fields...)
	}
}
