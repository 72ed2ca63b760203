// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "puzzles"

// RecordStoreConfig controls the Postgres connection pool used for puzzle rows.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore upserts extracted puzzles into Postgres.
type RecordStore struct {
	pool  execCloser
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// poolConfig parses the DSN and applies the non-zero pool limits from cfg.
func poolConfig(cfg RecordStoreConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return poolCfg, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Name identifies the exporter in logs.
func (s *RecordStore) Name() string {
	return "postgres"
}

// Export upserts every record keyed by puzzle id. A later run overwrites the
// letters and pangrams of an id it fetches again.
func (s *RecordStore) Export(ctx context.Context, runID string, records []puzzle.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	puzzle_id,
	letters,
	center,
	pangrams,
	run_id
) VALUES (
	$1,$2,$3,$4,$5
)
ON CONFLICT (puzzle_id) DO UPDATE SET
	letters = EXCLUDED.letters,
	center = EXCLUDED.center,
	pangrams = EXCLUDED.pangrams,
	run_id = EXCLUDED.run_id`, s.table)

	for _, rec := range records {
		pangrams := rec.Pangrams
		if pangrams == nil {
			pangrams = []string{}
		}
		args := []any{
			int(rec.ID),
			rec.Letters.String(),
			string(rec.Letters.Center()),
			pangrams,
			runID,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert puzzle %d: %w", rec.ID, err)
		}
	}
	return nil
}
