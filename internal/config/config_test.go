package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://www.sbsolver.com", cfg.Scraper.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Delay())
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, 5, cfg.Scraper.MinWorkers)
	assert.Equal(t, 20, cfg.Scraper.MaxWorkers)
	assert.Equal(t, 5, cfg.Scraper.WorkersDivisor)
	assert.Equal(t, []string{"pangram", "perfect pangram", "pangram, disallowed elsewhere"}, cfg.Extract.Categories)
	assert.Equal(t, "puzzles", cfg.DB.Table)
	assert.Equal(t, int32(4), cfg.DB.MaxConns)
	assert.Equal(t, int32(0), cfg.DB.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
scraper:
  base_url: http://127.0.0.1:9999
  user_agent: test-agent
  delay_ms: 0
  timeout_seconds: 3
  max_rps: 2.5
  respect_robots: true
  min_workers: 2
  max_workers: 4
  workers_divisor: 10
extract:
  container_class: letters
  categories: ["pangram"]
output:
  dir: /tmp/bees
logging:
  development: false
  level: debug
server:
  port: 9090
db:
  dsn: postgres://localhost/bees
  table: bee_puzzles
  max_conns: 8
  min_conns: 2
  max_conn_lifetime: 45s
storage:
  gcs_bucket: bucket
  prefix: exports
  archive_dir: /tmp/bee-archive
pubsub:
  project_id: proj
  topic_name: puzzles
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.Scraper.UserAgent)
	assert.Equal(t, time.Duration(0), cfg.Delay())
	assert.InDelta(t, 2.5, cfg.Scraper.MaxRPS, 0.001)
	assert.True(t, cfg.Scraper.RespectRobots)
	assert.Equal(t, "letters", cfg.Extract.ContainerClass)
	assert.Equal(t, "bee-note", cfg.Extract.NoteClass)
	assert.Equal(t, []string{"pangram"}, cfg.Extract.Categories)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "bee_puzzles", cfg.DB.Table)
	assert.Equal(t, int32(8), cfg.DB.MaxConns)
	assert.Equal(t, int32(2), cfg.DB.MinConns)
	assert.Equal(t, 45*time.Second, cfg.DB.MaxConnLifetime)
	assert.Equal(t, "exports", cfg.Storage.Prefix)
	assert.Equal(t, "/tmp/bee-archive", cfg.Storage.ArchiveDir)
	assert.Equal(t, "puzzles", cfg.PubSub.TopicName)
	assert.Equal(t, 4, cfg.Workers(1000))
	assert.Equal(t, 2, cfg.Workers(3))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.Scraper.BaseURL = "/s" }},
		{"negative delay", func(c *Config) { c.Scraper.DelayMs = -1 }},
		{"zero timeout", func(c *Config) { c.Scraper.TimeoutSeconds = 0 }},
		{"negative rps", func(c *Config) { c.Scraper.MaxRPS = -1 }},
		{"zero min workers", func(c *Config) { c.Scraper.MinWorkers = 0 }},
		{"ceiling below floor", func(c *Config) { c.Scraper.MaxWorkers = 1 }},
		{"zero divisor", func(c *Config) { c.Scraper.WorkersDivisor = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"negative max conns", func(c *Config) { c.DB.MaxConns = -1 }},
		{"min conns above max", func(c *Config) { c.DB.MinConns = 9 }},
		{"negative conn lifetime", func(c *Config) { c.DB.MaxConnLifetime = -time.Second }},
		{"pubsub half configured", func(c *Config) { c.PubSub.ProjectID = "p" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	cfg := Config{Output: OutputConfig{Dir: "out"}}
	assert.Equal(t, filepath.Join("out", "bee_puzzles_3_to_9.csv"), cfg.OutputPath(puzzle.Range{Start: 3, End: 9}))

	cfg.Output.File = "custom.csv"
	assert.Equal(t, "custom.csv", cfg.OutputPath(puzzle.Range{Start: 3, End: 9}))
}
