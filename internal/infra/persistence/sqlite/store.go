// Package sqlite provides the embedded SQLite artifact store. The
// first-writer-wins contract is enforced by the primary key on the canonical
// name plus COALESCE in the conflict clause, so racing writers never replace
// a populated field.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"luminary/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion.
var _ domain.ArtifactStore = (*Store)(nil)

const schemaDDL = `CREATE TABLE IF NOT EXISTS artifacts (
	key TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	biography TEXT,
	portrait_url TEXT,
	created_at TEXT NOT NULL
)`

// Store persists artifact records to a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the SQLite database at path and applies the
// artifact schema.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "luminary.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Lookup returns the record for key, reporting whether one exists.
func (s *Store) Lookup(ctx context.Context, key string) (domain.ArtifactRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, display_name, biography, portrait_url, created_at FROM artifacts WHERE key = ?`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ArtifactRecord{}, false, nil
	}
	if err != nil {
		return domain.ArtifactRecord{}, false, &domain.StoreUnavailableError{Op: "lookup", Err: err}
	}
	return rec, true, nil
}

// PutBiography stores biography markup for key unless one is already present.
func (s *Store) PutBiography(ctx context.Context, key, displayName, biography string) (domain.ArtifactRecord, error) {
	const stmt = `INSERT INTO artifacts(key, display_name, biography, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET biography = COALESCE(artifacts.biography, excluded.biography)`
	return s.put(ctx, "put biography", stmt, key, displayName, biography)
}

// PutPortrait stores a portrait URL for key unless one is already present.
func (s *Store) PutPortrait(ctx context.Context, key, displayName, portraitURL string) (domain.ArtifactRecord, error) {
	const stmt = `INSERT INTO artifacts(key, display_name, portrait_url, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET portrait_url = COALESCE(artifacts.portrait_url, excluded.portrait_url)`
	return s.put(ctx, "put portrait", stmt, key, displayName, portraitURL)
}

func (s *Store) put(ctx context.Context, op, stmt, key, displayName, value string) (domain.ArtifactRecord, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, stmt, key, displayName, value, createdAt); err != nil {
		return domain.ArtifactRecord{}, &domain.StoreUnavailableError{Op: op, Err: err}
	}
	rec, found, err := s.Lookup(ctx, key)
	if err != nil {
		return domain.ArtifactRecord{}, err
	}
	if !found {
		return domain.ArtifactRecord{}, &domain.StoreUnavailableError{Op: op, Err: sql.ErrNoRows}
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.ArtifactRecord, error) {
	var (
		rec       domain.ArtifactRecord
		biography sql.NullString
		portrait  sql.NullString
		createdAt string
	)
	if err := row.Scan(&rec.Key, &rec.DisplayName, &biography, &portrait, &createdAt); err != nil {
		return domain.ArtifactRecord{}, err
	}
	rec.Biography = biography.String
	rec.PortraitURL = portrait.String
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.ArtifactRecord{}, fmt.Errorf("decode created_at: %w", err)
	}
	rec.CreatedAt = ts
	return rec, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
