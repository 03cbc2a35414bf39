// Package domain defines the artifact record schema, key normalization, and
// the persistence contract shared by the generation coordinator and the
// storage backends.
package domain

import (
	"strings"
	"time"
)

// ArtifactKind distinguishes the two independently generated artifact fields.
type ArtifactKind string

const (
	KindBiography ArtifactKind = "biography"
	KindPortrait  ArtifactKind = "portrait"
)

// ArtifactRecord is the persisted cache entry for one canonical name.
// Biography and PortraitURL are populated independently by the two generation
// paths and are final once non-empty. CreatedAt is set at the first write of
// the record and never updated.
type ArtifactRecord struct {
	Key         string    `json:"key"`
	DisplayName string    `json:"display_name"`
	Biography   string    `json:"biography,omitempty"`
	PortraitURL string    `json:"portrait_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize maps a free-text display name to its canonical cache key by
// lowercasing and trimming surrounding whitespace. It is the only key
// derivation in the system; every store access goes through it.
func Normalize(displayName string) string {
	return strings.ToLower(strings.TrimSpace(displayName))
}
