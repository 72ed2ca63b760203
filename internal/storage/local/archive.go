// Package local copies finished batch files into an archive directory.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local archive.
type Config struct {
	// Dir is the directory that receives a copy of each CSV.
	Dir string
}

// Archive writes copies of output files to the local filesystem.
type Archive struct {
	dir string
}

// New creates the archive directory if needed and checks that it is writable.
func New(cfg Config) (*Archive, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create archive directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat archive directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("archive path %s is not a directory", cfg.Dir)
	}

	probe, err := os.CreateTemp(cfg.Dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("archive directory is not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("remove probe file: %w", err)
	}
	return &Archive{dir: cfg.Dir}, nil
}

// UploadFile copies localPath into the archive under its base name and returns a file:// URI.
// The copy is written to a temp file first so readers never see a partial CSV.
func (a *Archive) UploadFile(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	// #nosec G304 -- path comes from operator config.
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	dest := filepath.Join(a.dir, filepath.Base(localPath))
	tmp, err := os.CreateTemp(a.dir, ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("copy %s: %w", localPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename into archive: %w", err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	return "file://" + abs, nil
}
