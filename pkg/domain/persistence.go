package domain

import "context"

// ArtifactStore is the persistent artifact cache.
//
// Both Put operations are first-writer-wins per field: when the targeted
// field already holds a value, the incoming value is silently dropped and the
// surviving record is returned without error. The record is created on the
// first Put for a key, whichever field arrives first. Implementations must
// uphold this under concurrent writers (unique key constraint plus
// conflict-tolerant update, or equivalent).
type ArtifactStore interface {
	// Lookup returns the record for key, reporting whether one exists.
	Lookup(ctx context.Context, key string) (ArtifactRecord, bool, error)
	// PutBiography stores biography markup for key unless one is already present.
	PutBiography(ctx context.Context, key, displayName, biography string) (ArtifactRecord, error)
	// PutPortrait stores a portrait URL for key unless one is already present.
	PutPortrait(ctx context.Context, key, displayName, portraitURL string) (ArtifactRecord, error)
}
