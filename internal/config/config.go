// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Extract ExtractConfig `mapstructure:"extract"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// ScraperConfig governs fetching and worker sizing.
type ScraperConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	UserAgent      string  `mapstructure:"user_agent"`
	DelayMs        int     `mapstructure:"delay_ms"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRPS         float64 `mapstructure:"max_rps"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
	MinWorkers     int     `mapstructure:"min_workers"`
	MaxWorkers     int     `mapstructure:"max_workers"`
	WorkersDivisor int     `mapstructure:"workers_divisor"`
}

// ExtractConfig overrides the page conventions used by the extractor.
type ExtractConfig struct {
	ContainerClass string   `mapstructure:"container_class"`
	NoteClass      string   `mapstructure:"note_class"`
	AnswerClass    string   `mapstructure:"answer_class"`
	CenterPrefix   string   `mapstructure:"center_prefix"`
	Categories     []string `mapstructure:"categories"`
}

// OutputConfig controls where the CSV lands.
type OutputConfig struct {
	Dir  string `mapstructure:"dir"`
	File string `mapstructure:"file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the operator HTTP endpoint. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls the optional Postgres exporter.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// StorageConfig sets where the finished CSV is copied. The bucket wins when both are set.
type StorageConfig struct {
	GCSBucket  string `mapstructure:"gcs_bucket"`
	Prefix     string `mapstructure:"prefix"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", "https://www.sbsolver.com")
	v.SetDefault("scraper.user_agent", "spellingbee-crawler/0.1")
	v.SetDefault("scraper.delay_ms", 500)
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("scraper.max_rps", 0)
	v.SetDefault("scraper.respect_robots", false)
	v.SetDefault("scraper.min_workers", 5)
	v.SetDefault("scraper.max_workers", 20)
	v.SetDefault("scraper.workers_divisor", 5)
	v.SetDefault("extract.container_class", "thinner-space-after")
	v.SetDefault("extract.note_class", "bee-note")
	v.SetDefault("extract.answer_class", "bee-hover")
	v.SetDefault("extract.center_prefix", "center letter ")
	v.SetDefault("extract.categories", []string{"pangram", "perfect pangram", "pangram, disallowed elsewhere"})
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.file", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.port", 0)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "puzzles")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "spellingbee")
	v.SetDefault("storage.archive_dir", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scraper.base_url must be an absolute URL")
	}
	if c.Scraper.DelayMs < 0 {
		return fmt.Errorf("scraper.delay_ms must be >= 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.MaxRPS < 0 {
		return fmt.Errorf("scraper.max_rps must be >= 0")
	}
	if c.Scraper.MinWorkers <= 0 {
		return fmt.Errorf("scraper.min_workers must be > 0")
	}
	if c.Scraper.MaxWorkers < c.Scraper.MinWorkers {
		return fmt.Errorf("scraper.max_workers must be >= scraper.min_workers")
	}
	if c.Scraper.WorkersDivisor <= 0 {
		return fmt.Errorf("scraper.workers_divisor must be > 0")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 {
		return fmt.Errorf("db.max_conns and db.min_conns must be >= 0")
	}
	if c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("db.min_conns must be <= db.max_conns")
	}
	if c.DB.MaxConnLifetime < 0 {
		return fmt.Errorf("db.max_conn_lifetime must be >= 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// Delay returns the politeness pause before each request.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scraper.DelayMs) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// Workers derives the pool size for a range of n puzzles.
func (c Config) Workers(n int) int {
	return puzzle.WorkerCount(n, c.Scraper.MinWorkers, c.Scraper.MaxWorkers, c.Scraper.WorkersDivisor)
}

// OutputPath returns output.file when set, otherwise bee_puzzles_<start>_to_<end>.csv inside output.dir.
func (c Config) OutputPath(rng puzzle.Range) string {
	if c.Output.File != "" {
		return c.Output.File
	}
	name := fmt.Sprintf("bee_puzzles_%d_to_%d.csv", rng.Start, rng.End)
	return filepath.Join(c.Output.Dir, name)
}
