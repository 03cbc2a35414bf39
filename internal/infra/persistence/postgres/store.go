// Package postgres provides a Postgres-backed artifact store with the same
// first-writer-wins conflict contract as the SQLite backend. The schema is
// applied on startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"luminary/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion.
var _ domain.ArtifactStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/luminary?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS artifacts (
	key TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	biography TEXT,
	portrait_url TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`

// Store persists artifact records to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), pings the server, and ensures the artifacts table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}
	return &Store{db: db}, nil
}

// Lookup returns the record for key, reporting whether one exists.
func (s *Store) Lookup(ctx context.Context, key string) (domain.ArtifactRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, display_name, biography, portrait_url, created_at FROM artifacts WHERE key = $1`, key)
	var (
		rec       domain.ArtifactRecord
		biography sql.NullString
		portrait  sql.NullString
	)
	err := row.Scan(&rec.Key, &rec.DisplayName, &biography, &portrait, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ArtifactRecord{}, false, nil
	}
	if err != nil {
		return domain.ArtifactRecord{}, false, &domain.StoreUnavailableError{Op: "lookup", Err: err}
	}
	rec.Biography = biography.String
	rec.PortraitURL = portrait.String
	return rec, true, nil
}

// PutBiography stores biography markup for key unless one is already present.
func (s *Store) PutBiography(ctx context.Context, key, displayName, biography string) (domain.ArtifactRecord, error) {
	const stmt = `INSERT INTO artifacts(key, display_name, biography, created_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(key) DO UPDATE SET biography = COALESCE(artifacts.biography, excluded.biography)`
	return s.put(ctx, "put biography", stmt, key, displayName, biography)
}

// PutPortrait stores a portrait URL for key unless one is already present.
func (s *Store) PutPortrait(ctx context.Context, key, displayName, portraitURL string) (domain.ArtifactRecord, error) {
	const stmt = `INSERT INTO artifacts(key, display_name, portrait_url, created_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(key) DO UPDATE SET portrait_url = COALESCE(artifacts.portrait_url, excluded.portrait_url)`
	return s.put(ctx, "put portrait", stmt, key, displayName, portraitURL)
}

func (s *Store) put(ctx context.Context, op, stmt, key, displayName, value string) (domain.ArtifactRecord, error) {
	if _, err := s.db.ExecContext(ctx, stmt, key, displayName, value, time.Now().UTC()); err != nil {
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

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
