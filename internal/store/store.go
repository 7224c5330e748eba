// Package store persists finished substance records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/thermobook/internal/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned by Get for an unknown CAS number
	ErrNotFound = errors.New("substance not found")
	// ErrDuplicate is returned by Insert when the CAS number is already stored
	ErrDuplicate = errors.New("substance already stored")
)

const schema = `
CREATE TABLE IF NOT EXISTS substances (
	cas              INTEGER PRIMARY KEY,
	name             TEXT NOT NULL,
	formula          TEXT NOT NULL DEFAULT '',
	molecular_weight REAL NOT NULL DEFAULT 0,
	image            TEXT NOT NULL DEFAULT '',
	document         TEXT NOT NULL,
	inserted_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS substances_by_name ON substances(name, cas);
`

// Summary is the listing projection of a stored substance
type Summary struct {
	Name            string  `json:"name"`
	CAS             int64   `json:"cas"`
	Formula         string  `json:"formula"`
	MolecularWeight float64 `json:"molecular_weight"`
	Image           string  `json:"image"`
}

// Store is a SQLite document store keyed by CAS number
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: mkdir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection keeps the per-connection pragmas in force and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether a record with the CAS number is stored
func (s *Store) Exists(ctx context.Context, cas int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM substances WHERE cas = ?`, cas).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists: %w", err)
	}
	return true, nil
}

// Insert stores the record. An existing CAS number is left untouched and
// reported as ErrDuplicate.
func (s *Store) Insert(ctx context.Context, sub *model.Substance) error {
	doc, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO substances (cas, name, formula, molecular_weight, image, document, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cas) DO NOTHING`,
		sub.CAS, sub.Name, sub.Formula, sub.MolecularWeight, sub.Image, string(doc),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// Get returns the stored JSON document of a substance
func (s *Store) Get(ctx context.Context, cas int64) (json.RawMessage, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM substances WHERE cas = ?`, cas).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return json.RawMessage(doc), nil
}

// List returns up to limit summaries ordered by name then CAS number
func (s *Store) List(ctx context.Context, offset, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, cas, formula, molecular_weight, image
		FROM substances
		ORDER BY name, cas
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []Summary{}
	for rows.Next() {
		var it Summary
		if err := rows.Scan(&it.Name, &it.CAS, &it.Formula, &it.MolecularWeight, &it.Image); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return items, nil
}

// Count returns the number of stored substances
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM substances`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
