package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"

	_ "modernc.org/sqlite"
)

// Document keys used by the SQLite store.
const (
	KeyState   = "state"
	KeyHistory = "history"
)

// SQLite implements Storage as a key/value table of JSON documents, using
// the same document shapes as the file store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) LoadState(ctx context.Context) (*model.State, error) {
	var state model.State
	found, err := s.get(ctx, KeyState, &state)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !found {
		return model.NewState(), nil
	}
	return normalizeState(&state), nil
}

func (s *SQLite) SaveState(ctx context.Context, state *model.State) error {
	if err := s.put(ctx, KeyState, normalizeState(state)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *SQLite) LoadHistory(ctx context.Context) ([]model.Snapshot, error) {
	var history []model.Snapshot
	if _, err := s.get(ctx, KeyHistory, &history); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

func (s *SQLite) SaveHistory(ctx context.Context, history []model.Snapshot) error {
	if history == nil {
		history = []model.Snapshot{}
	}
	if err := s.put(ctx, KeyHistory, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, key string, v any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLite) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
