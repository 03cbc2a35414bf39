package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidName reports a missing or empty display name. It is the only
// pipeline error surfaced to callers as a client fault.
var ErrInvalidName = errors.New("name is required")

// StoreUnavailableError wraps a persistence failure. The coordinator logs it
// and keeps serving; the generation result is returned uncached.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("artifact store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// GeneratorUnavailableError reports a missing credential or an external
// generator failure. The biography path masks it with the synthesized
// fallback; the portrait path absorbs it without caching.
type GeneratorUnavailableError struct {
	Kind ArtifactKind
	Err  error
}

func (e *GeneratorUnavailableError) Error() string {
	return fmt.Sprintf("%s generator unavailable: %v", e.Kind, e.Err)
}

func (e *GeneratorUnavailableError) Unwrap() error { return e.Err }

// UpstreamMalformedError reports a generator response that could not be
// parsed into the expected shape. Treated like GeneratorUnavailableError.
type UpstreamMalformedError struct {
	Kind   ArtifactKind
	Detail string
}

func (e *UpstreamMalformedError) Error() string {
	return fmt.Sprintf("%s generator returned malformed response: %s", e.Kind, e.Detail)
}
