// Package memory provides the in-memory artifact store used by tests and
// ephemeral deployments. It is the reference implementation of the
// first-writer-wins persistence contract.
package memory

import (
	"context"
	"sync"
	"time"

	"luminary/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.ArtifactStore = (*Store)(nil)

// Store keeps artifact records in a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ArtifactRecord
	now     func() time.Time
}

// NewStore constructs an empty in-memory artifact store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.ArtifactRecord),
		now:     time.Now,
	}
}

// Lookup returns the record for key, reporting whether one exists.
func (s *Store) Lookup(_ context.Context, key string) (domain.ArtifactRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

// PutBiography stores biography markup for key unless one is already present.
func (s *Store) PutBiography(_ context.Context, key, displayName, biography string) (domain.ArtifactRecord, error) {
	return s.put(key, displayName, func(rec *domain.ArtifactRecord) {
		if rec.Biography == "" {
			rec.Biography = biography
		}
	}), nil
}

// PutPortrait stores a portrait URL for key unless one is already present.
func (s *Store) PutPortrait(_ context.Context, key, displayName, portraitURL string) (domain.ArtifactRecord, error) {
	return s.put(key, displayName, func(rec *domain.ArtifactRecord) {
		if rec.PortraitURL == "" {
			rec.PortraitURL = portraitURL
		}
	}), nil
}

func (s *Store) put(key, displayName string, apply func(*domain.ArtifactRecord)) domain.ArtifactRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = domain.ArtifactRecord{
			Key:         key,
			DisplayName: displayName,
			CreatedAt:   s.now().UTC(),
		}
	}
	apply(&rec)
	s.records[key] = rec
	return rec
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
