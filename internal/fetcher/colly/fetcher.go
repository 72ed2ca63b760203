// Package collyfetcher downloads puzzle pages using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/metrics"
	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

// Throttle delays a request before it is issued.
type Throttle interface {
	Wait(ctx context.Context, url string) error
}

// Config controls collector behavior.
type Config struct {
	BaseURL       string
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher downloads puzzle pages through a Colly collector.
type Fetcher struct {
	cfg           Config
	throttle      Throttle
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. A nil throttle issues requests immediately.
func New(cfg Config, throttle Throttle, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	// Clones share the base collector's http.Client, so everything that
	// touches it is set here once and never per fetch.
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		throttle:      throttle,
		baseCollector: c,
		logger:        logger,
	}
}

// URL returns the page address for a puzzle.
func (f *Fetcher) URL(id puzzle.ID) string {
	return f.cfg.BaseURL + "/s/" + strconv.Itoa(int(id))
}

// Fetch waits on the throttle, then issues a single GET for the puzzle page.
func (f *Fetcher) Fetch(ctx context.Context, id puzzle.ID) (puzzle.FetchResponse, error) {
	url := f.URL(id)
	if f.throttle != nil {
		if err := f.throttle.Wait(ctx, url); err != nil {
			return puzzle.FetchResponse{}, fmt.Errorf("throttle %s: %w", url, err)
		}
	}

	var (
		result   = puzzle.FetchResponse{ID: id, URL: url}
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector()
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	f.logger.Debug("fetching puzzle", zap.Int("puzzle_id", int(id)), zap.String("url", url))
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		code := 0
		if ctx.Err() == nil {
			code = result.StatusCode
		}
		metrics.ObserveFetch(url, code, 0, time.Since(start))
		return puzzle.FetchResponse{}, err
	}
	metrics.ObserveFetch(url, result.StatusCode, len(result.Body), result.Duration)
	return result, nil
}

func (f *Fetcher) buildCollector() *colly.Collector {
	return f.baseCollector.Clone()
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *puzzle.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.Duration = time.Since(start)
		if r.StatusCode < 200 || r.StatusCode > 299 {
			*fetchErr = statusError(r.StatusCode)
			return
		}
		result.Body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			result.StatusCode = r.StatusCode
			*fetchErr = statusError(r.StatusCode)
			return
		}
		*fetchErr = err
	})
}

func statusError(code int) error {
	return fmt.Errorf("%w: %d %s", ErrStatus, code, http.StatusText(code))
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
