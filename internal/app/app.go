// Package app wires configuration into a runnable batch: fetcher, extractor,
// orchestrator, CSV writer, optional exporters and the operator endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/api"
	"github.com/JakeFAU/spellingbee-crawler/internal/batch"
	"github.com/JakeFAU/spellingbee-crawler/internal/clock"
	"github.com/JakeFAU/spellingbee-crawler/internal/config"
	"github.com/JakeFAU/spellingbee-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/spellingbee-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/spellingbee-crawler/internal/id/uuid"
	"github.com/JakeFAU/spellingbee-crawler/internal/metrics"
	"github.com/JakeFAU/spellingbee-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/spellingbee-crawler/internal/progress"
	"github.com/JakeFAU/spellingbee-crawler/internal/progress/sinks"
	beepubsub "github.com/JakeFAU/spellingbee-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
	"github.com/JakeFAU/spellingbee-crawler/internal/storage/csvfile"
	"github.com/JakeFAU/spellingbee-crawler/internal/storage/gcs"
	"github.com/JakeFAU/spellingbee-crawler/internal/storage/local"
	"github.com/JakeFAU/spellingbee-crawler/internal/storage/postgres"
)

// ErrExport marks failures that happened after the CSV was written.
var ErrExport = errors.New("export failed")

// Exporter ships extracted records to a secondary destination.
type Exporter interface {
	Name() string
	Export(ctx context.Context, runID string, records []puzzle.Record) error
}

// Uploader copies the finished CSV somewhere durable and returns its URI.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) (string, error)
}

// Summary reports the outcome of one Run.
type Summary struct {
	RunID       string
	Range       puzzle.Range
	Workers     int
	Requested   int
	Extracted   int
	Failed      int
	RowsWritten int
	// Output is the CSV path; empty when nothing was extracted.
	Output     string
	URI        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	exporters  []Exporter
	uploader   Uploader
	clock      batch.Clock
	ids        batch.IDGenerator
	fetcher    batch.Fetcher
	overrides  bool
}

// WithRegistry registers progress collectors against reg. /metrics serves reg
// merged with the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// WithExporters replaces the config-driven exporters and uploader.
func WithExporters(uploader Uploader, exporters ...Exporter) Option {
	return func(o *options) {
		o.uploader = uploader
		o.exporters = exporters
		o.overrides = true
	}
}

// WithClock overrides the wall clock.
func WithClock(c batch.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(ids batch.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithFetcher overrides the Colly fetcher.
func WithFetcher(f batch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// App holds the long-lived services for one crawler process.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	clock        batch.Clock
	orchestrator *batch.Orchestrator
	server       *api.Server
	exporters    []Exporter
	uploader     Uploader
	closers      []func()
}

// New builds an App from cfg. Exporters are created only for the destinations cfg enables.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.NewSystem()
	}
	if o.ids == nil {
		o.ids = uuid.New()
	}

	a := &App{cfg: cfg, logger: logger, clock: o.clock}

	fetcher := o.fetcher
	if fetcher == nil {
		limiter := ratelimit.New(ratelimit.Config{
			Delay:        cfg.Delay(),
			DefaultRPS:   cfg.Scraper.MaxRPS,
			DefaultBurst: 1,
		})
		fetcher = collyfetcher.New(collyfetcher.Config{
			BaseURL:       cfg.Scraper.BaseURL,
			UserAgent:     cfg.Scraper.UserAgent,
			RespectRobots: cfg.Scraper.RespectRobots,
			Timeout:       cfg.Timeout(),
		}, limiter, logger.Named("fetcher"))
	}
	extractor := extract.New(extract.Config{
		ContainerClass: cfg.Extract.ContainerClass,
		NoteClass:      cfg.Extract.NoteClass,
		AnswerClass:    cfg.Extract.AnswerClass,
		CenterPrefix:   cfg.Extract.CenterPrefix,
		Categories:     cfg.Extract.Categories,
	})

	promSink, err := sinks.NewPrometheusSink(o.registerer)
	if err != nil {
		return nil, err
	}
	tracker := api.NewRunTracker()
	emitter := progress.Multi(sinks.NewLogSink(logger.Named("progress")), promSink, tracker)

	a.orchestrator = batch.New(fetcher, extractor, o.clock, o.ids, emitter, logger.Named("batch"))

	if cfg.Server.Port > 0 {
		a.server = api.NewServer(tracker, metrics.Handler(o.gatherer), logger.Named("api"))
	}

	if o.overrides {
		a.uploader = o.uploader
		a.exporters = o.exporters
		return a, nil
	}
	if err := a.buildExporters(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildExporters(ctx context.Context) error {
	if a.cfg.DB.DSN != "" {
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:             a.cfg.DB.DSN,
			Table:           a.cfg.DB.Table,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("init postgres exporter: %w", err)
		}
		a.exporters = append(a.exporters, store)
		a.closers = append(a.closers, store.Close)
		a.logger.Info("postgres exporter enabled", zap.String("table", a.cfg.DB.Table))
	}
	if a.cfg.PubSub.ProjectID != "" {
		client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		pub := beepubsub.New(client.Topic(a.cfg.PubSub.TopicName))
		a.exporters = append(a.exporters, pub)
		a.closers = append(a.closers, pub.Stop, func() { _ = client.Close() })
		a.logger.Info("pubsub exporter enabled", zap.String("topic", a.cfg.PubSub.TopicName))
	}
	if a.cfg.Storage.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket, Prefix: a.cfg.Storage.Prefix})
		if err != nil {
			return fmt.Errorf("init gcs uploader: %w", err)
		}
		a.uploader = store
		a.logger.Info("gcs upload enabled", zap.String("bucket", a.cfg.Storage.GCSBucket))
	} else if a.cfg.Storage.ArchiveDir != "" {
		archive, err := local.New(local.Config{Dir: a.cfg.Storage.ArchiveDir})
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		a.uploader = archive
		a.logger.Info("local archive enabled", zap.String("dir", a.cfg.Storage.ArchiveDir))
	}
	return nil
}

// Run crawls rng, writes the CSV when anything was extracted, then runs the exporters.
// Canceling ctx stops new fetches; records already extracted are still written.
func (a *App) Run(ctx context.Context, rng puzzle.Range) (Summary, error) {
	summary := Summary{
		Range:     rng,
		StartedAt: a.clock.Now(),
		Workers:   a.cfg.Workers(rng.Len()),
		Requested: rng.Len(),
	}
	if err := rng.Validate(); err != nil {
		return summary, fmt.Errorf("run: %w", err)
	}

	stopServer := a.startServer(ctx)
	defer stopServer()

	res, err := a.orchestrator.Run(ctx, rng, summary.Workers)
	if err != nil {
		return summary, fmt.Errorf("run batch: %w", err)
	}
	summary.RunID = res.RunID.String()
	summary.Extracted = len(res.Records)
	summary.Failed = len(res.Failures)

	if len(res.Records) == 0 {
		summary.FinishedAt = a.clock.Now()
		a.logger.Warn("no puzzles extracted", zap.String("run_id", summary.RunID))
		return summary, nil
	}

	// Finish the write and exports even after an interrupt.
	out := context.WithoutCancel(ctx)

	path := a.cfg.OutputPath(rng)
	writer, err := csvfile.New(path, csvfile.DefaultDelimiter, a.logger.Named("csv"))
	if err != nil {
		return summary, fmt.Errorf("init writer: %w", err)
	}
	rows, err := writer.Write(out, res.Records)
	summary.RowsWritten = rows
	summary.Output = path
	if err != nil {
		summary.FinishedAt = a.clock.Now()
		return summary, fmt.Errorf("write csv: %w", err)
	}
	a.logger.Info("csv written", zap.String("path", path), zap.Int("rows", rows))

	exportErr := a.export(out, &summary, res.Records)
	summary.FinishedAt = a.clock.Now()
	return summary, exportErr
}

func (a *App) export(ctx context.Context, summary *Summary, records []puzzle.Record) error {
	var errs []error
	if a.uploader != nil {
		uri, err := a.uploader.UploadFile(ctx, summary.Output)
		if err != nil {
			a.logger.Error("csv upload failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("upload: %w", err))
		} else {
			summary.URI = uri
			a.logger.Info("csv uploaded", zap.String("uri", uri))
		}
	}
	for _, exp := range a.exporters {
		if err := exp.Export(ctx, summary.RunID, records); err != nil {
			a.logger.Error("export failed", zap.String("exporter", exp.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name(), err))
			continue
		}
		a.logger.Info("export complete", zap.String("exporter", exp.Name()), zap.Int("records", len(records)))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrExport, errors.Join(errs...))
}

// startServer serves the operator endpoint for the duration of a run.
func (a *App) startServer(ctx context.Context) func() {
	if a.server == nil {
		return func() {}
	}
	serverCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
		if err := a.server.ListenAndServe(serverCtx, addr); err != nil {
			a.logger.Error("operator endpoint stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// Handler exposes the operator endpoint, or nil when server.port is 0.
func (a *App) Handler() http.Handler {
	if a.server == nil {
		return nil
	}
	return a.server.Handler()
}

// Close releases exporter clients.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
