package sinks

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/spellingbee-crawler/internal/progress"
)

// PrometheusSink exports per-puzzle progress via Prometheus.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runDuration   prometheus.Histogram

	puzzles      *prometheus.CounterVec
	warnings     prometheus.Counter
	itemDuration *prometheus.HistogramVec
	pangrams     prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bee_runs_started_total",
			Help: "Total batch runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bee_runs_completed_total",
			Help: "Total batch runs that have finished.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bee_run_duration_seconds",
			Help:    "Wall time per batch run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		puzzles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bee_puzzles_total",
			Help: "Puzzles processed partitioned by result.",
		}, []string{"result"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bee_puzzle_warnings_total",
			Help: "Unrecognized pangram notes and incomplete answer rows.",
		}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bee_puzzle_duration_seconds",
			Help:    "Fetch and extract time per puzzle partitioned by result.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"result"}),
		pangrams: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bee_pangrams_total",
			Help: "Pangram answers extracted.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.puzzles,
		s.warnings,
		s.itemDuration,
		s.pangrams,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Emit updates the collectors for evt.
func (s *PrometheusSink) Emit(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.Inc()
		s.runDuration.Observe(evt.Dur.Seconds())
	case progress.StageItemDone:
		s.puzzles.WithLabelValues("success").Inc()
		s.itemDuration.WithLabelValues("success").Observe(evt.Dur.Seconds())
		s.pangrams.Add(float64(evt.Pangrams))
	case progress.StageItemError:
		s.puzzles.WithLabelValues("error").Inc()
		s.itemDuration.WithLabelValues("error").Observe(evt.Dur.Seconds())
	case progress.StageItemWarn:
		s.warnings.Inc()
	}
}
