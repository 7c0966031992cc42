// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists items, run history, enrichment caches, custom
// mode profiles and reader notes in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// DefaultPath is used when the config leaves the database path empty.
const DefaultPath = "data/oncopulse.db"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var (
	// ErrNotFound is returned when a row addressed by id or name is absent.
	ErrNotFound = errors.New("not found")
	// ErrRunFinished is returned when finalizing a run that is no longer
	// running.
	ErrRunFinished = errors.New("run already finished")
)

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens or creates the database at cfg.Path and ensures the
// schema exists.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			specialty TEXT NOT NULL,
			subcategory TEXT NOT NULL,
			mode_name TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT '',
			pmid TEXT NOT NULL DEFAULT '',
			doi TEXT NOT NULL DEFAULT '',
			nct_id TEXT NOT NULL DEFAULT '',
			pmcid TEXT NOT NULL DEFAULT '',
			venue TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '',
			abstract_or_text TEXT NOT NULL DEFAULT '',
			conditions TEXT NOT NULL DEFAULT '',
			interventions TEXT NOT NULL DEFAULT '',
			study_type TEXT NOT NULL DEFAULT '',
			phase TEXT NOT NULL DEFAULT '',
			primary_endpoints TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			score_explain_json TEXT NOT NULL DEFAULT '[]',
			summary_text TEXT NOT NULL DEFAULT '',
			citations INTEGER,
			citations_source TEXT NOT NULL DEFAULT '',
			full_text_source TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_scope ON items(specialty, subcategory)`,
		`CREATE INDEX IF NOT EXISTS idx_items_source ON items(source)`,
		`CREATE INDEX IF NOT EXISTS idx_items_published_at ON items(published_at)`,
		`CREATE TABLE IF NOT EXISTS notes (
			item_id INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
			starred INTEGER NOT NULL DEFAULT 0,
			note_text TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			specialty TEXT NOT NULL,
			subcategory TEXT NOT NULL,
			mode_name TEXT NOT NULL DEFAULT '',
			sources_key TEXT NOT NULL DEFAULT '',
			resolved_days_back INTEGER NOT NULL DEFAULT 0,
			force_full_refresh INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			ingested_count INTEGER NOT NULL DEFAULT 0,
			deduped_count INTEGER NOT NULL DEFAULT 0,
			error_text TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_lane ON run_history(specialty, subcategory, mode_name, sources_key, status)`,
		`CREATE TABLE IF NOT EXISTS citation_cache (
			cache_key TEXT PRIMARY KEY,
			cited_by_count INTEGER,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fulltext_cache (
			cache_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS custom_modes (
			name TEXT PRIMARY KEY,
			config_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// ClearAll deletes every item, note, run and cache entry.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notes", "items", "run_history", "citation_cache", "fulltext_cache"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func selectRows(ctx context.Context, q queryer, b sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return q.QueryContext(ctx, query, args...)
}
