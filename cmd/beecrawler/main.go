// Package main runs the spelling bee crawler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/spellingbee-crawler/internal/app"
	"github.com/JakeFAU/spellingbee-crawler/internal/config"
	"github.com/JakeFAU/spellingbee-crawler/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("beecrawler", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "Path to config file")
	start := fs.Int("start", 0, "First puzzle id (prompted when omitted)")
	end := fs.Int("end", 0, "Last puzzle id (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config failed: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	rng, ok, err := rangeFromFlags(*start, *end)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid range: %v\n", err)
		return 2
	}
	if !ok {
		rng, err = promptRange(stdin, stdout)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	crawler, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("app init failed", zap.Error(err))
		return 1
	}
	defer crawler.Close()

	workers := cfg.Workers(rng.Len())
	_, _ = fmt.Fprintf(stdout, "\nStarting to scrape puzzles from %d to %d\n", rng.Start, rng.End)
	_, _ = fmt.Fprintf(stdout, "Using %d parallel workers for scraping...\n", workers)

	summary, err := crawler.Run(ctx, rng)
	if err != nil && !errors.Is(err, app.ErrExport) {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	printSummary(stdout, summary)
	if err != nil {
		logger.Error("run finished with export errors", zap.Error(err))
		return 1
	}
	return 0
}

func printSummary(w io.Writer, s app.Summary) {
	if s.Extracted == 0 {
		_, _ = fmt.Fprintln(w, "No puzzles were successfully extracted")
		return
	}
	_, _ = fmt.Fprintf(w, "\nSuccessfully extracted %d puzzles!\n", s.Extracted)
	_, _ = fmt.Fprintf(w, "Saved to %s\n", s.Output)
	if s.URI != "" {
		_, _ = fmt.Fprintf(w, "Uploaded to %s\n", s.URI)
	}
	if s.Failed > 0 {
		_, _ = fmt.Fprintf(w, "Skipped %d of %d puzzles\n", s.Failed, s.Requested)
	}
}
