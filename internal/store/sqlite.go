package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore is a durable key-value store mirroring the browser layout: the
// session id under one key with an expiry, and the whole history list as one
// JSON document under HistoryKey. Writes are last-writer-wins.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
	logger   logging.Logger
	now      func() time.Time
}

// OpenSQLiteStore opens (or creates) the database file at path.
func OpenSQLiteStore(path string, capacity int, logger logging.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure store dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}
	s, err := NewSQLiteStore(db, capacity, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore applies the schema to db and returns the store.
func NewSQLiteStore(db *sql.DB, capacity int, logger logging.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	// A single connection keeps read-modify-write upserts serialized.
	db.SetMaxOpenConns(1)
	if err := applySchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, capacity: capacity, logger: logger, now: time.Now}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements SessionStore.
func (s *SQLiteStore) Get(ctx context.Context) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, SessionKey).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session: %w", err)
	}
	if expiresAt.Valid && s.now().Unix() >= expiresAt.Int64 {
		return "", false, nil
	}
	return value, value != "", nil
}

// Set implements SessionStore.
func (s *SQLiteStore) Set(ctx context.Context, id string, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		SessionKey, id, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear implements SessionStore.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// List implements HistoryStore. An unreadable history document is logged and
// treated as empty so views still render.
func (s *SQLiteStore) List(ctx context.Context) ([]model.ScanRecord, error) {
	return s.readHistory(ctx, s.db)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) readHistory(ctx context.Context, q querier) ([]model.ScanRecord, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, HistoryKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.ScanRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var records []model.ScanRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		if s.logger != nil {
			s.logger.Warn("discarding unreadable scan history", logging.Err(err))
		}
		return []model.ScanRecord{}, nil
	}
	return records, nil
}

// Upsert implements HistoryStore.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	records, err := s.readHistory(ctx, tx)
	if err != nil {
		return err
	}
	records = upsertRecord(records, rec, s.capacity)

	enc, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, NULL, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		HistoryKey, string(enc), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return tx.Commit()
}

// Cap implements HistoryStore.
func (s *SQLiteStore) Cap() int { return s.capacity }
