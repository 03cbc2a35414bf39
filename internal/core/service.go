package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"luminary/pkg/domain"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// TextGenerator produces biography markup for a display name. Calls are
// bounded by the coordinator's biography timeout.
type TextGenerator interface {
	GenerateBiography(ctx context.Context, displayName string) (string, error)
}

// ImageGenerator requests a portrait URL for a display name. Latency may be
// tens of seconds; the coordinator never awaits it inline with a request.
type ImageGenerator interface {
	RequestPortrait(ctx context.Context, displayName string) (string, error)
}

// BiographyResult is the façade-visible outcome of a biography lookup.
type BiographyResult struct {
	Biography string
	Cached    bool
	CreatedAt time.Time // zero unless Cached
}

// PortraitResult is the façade-visible outcome of a portrait lookup.
type PortraitResult struct {
	ImageURL   string
	Cached     bool
	Generating bool
	Message    string
}

type ticket struct {
	key  string
	kind domain.ArtifactKind
}

// Service is the generation coordinator. For each (key, kind) it serves
// cache hits immediately, coalesces concurrent biography callers onto one
// in-flight generation, and completes portrait generation on a detached
// background task so callers never wait out the webhook latency. Successful
// results are persisted write-if-absent; failures are never cached.
type Service struct {
	store   domain.ArtifactStore
	text    TextGenerator
	image   ImageGenerator
	logger  *log.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer

	biographyTimeout time.Duration
	portraitTimeout  time.Duration
	placeholderURL   string
	generatingHint   string

	flight singleflight.Group

	mu      sync.Mutex
	tickets map[ticket]struct{}

	background sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics recorder for coordinator operations.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithBiographyTimeout bounds a single text generation call.
func WithBiographyTimeout(d time.Duration) Option {
	return func(s *Service) { s.biographyTimeout = d }
}

// WithPortraitTimeout bounds a single background portrait generation.
func WithPortraitTimeout(d time.Duration) Option {
	return func(s *Service) { s.portraitTimeout = d }
}

// WithPlaceholderURL sets the image reference returned while a portrait is
// still generating.
func WithPlaceholderURL(url string) Option {
	return func(s *Service) { s.placeholderURL = url }
}

// NewService constructs a coordinator over the given store and generators.
// Either generator may be nil: a nil text generator always falls back to the
// synthesized biography, a nil image generator makes portrait requests fail
// as unconfigured.
func NewService(store domain.ArtifactStore, text TextGenerator, image ImageGenerator, opts ...Option) *Service {
	s := &Service{
		store:            store,
		text:             text,
		image:            image,
		logger:           log.New(io.Discard),
		tracer:           otel.Tracer("luminary/internal/core"),
		biographyTimeout: 30 * time.Second,
		portraitTimeout:  2 * time.Minute,
		placeholderURL:   "/static/portrait-placeholder.svg",
		generatingHint:   "Portrait generation started, check back in a moment.",
		tickets:          make(map[ticket]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Biography returns the biography for displayName, generating and caching it
// on first request. Concurrent callers for the same canonical key share one
// generation. The caller always receives readable text: generator failures
// are masked by the synthesized fallback, store failures only forgo caching.
func (s *Service) Biography(ctx context.Context, displayName string) (BiographyResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "coordinator.biography")
	defer span.End()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return BiographyResult{}, domain.ErrInvalidName
	}
	key := domain.Normalize(displayName)

	if rec, ok := s.lookup(ctx, key); ok && rec.Biography != "" {
		s.observe(ctx, "biography", true, time.Since(start))
		return BiographyResult{Biography: rec.Biography, Cached: true, CreatedAt: rec.CreatedAt}, nil
	}

	// Coalesce concurrent misses for the same key onto a single generation.
	// The flight runs on a detached context so one caller's cancellation
	// cannot poison the shared outcome.
	v, _, _ := s.flight.Do(key, func() (any, error) {
		return s.generateBiography(key, displayName), nil
	})
	s.observe(ctx, "biography", true, time.Since(start))
	return BiographyResult{Biography: v.(string)}, nil
}

func (s *Service) generateBiography(key, displayName string) string {
	ctx, cancel := context.WithTimeout(context.Background(), s.biographyTimeout)
	defer cancel()

	text, err := s.generateText(ctx, displayName)
	if err != nil {
		s.logger.Warn("biography generation failed, serving fallback", "name", displayName, "err", err)
		text = FallbackBiography(displayName)
	}
	rec, err := s.store.PutBiography(ctx, key, displayName, text)
	if err != nil {
		s.logger.Error("biography not cached", "key", key, "err", err)
		return text
	}
	// A racing writer may have won; serve whatever the store kept so repeat
	// lookups stay byte-identical.
	return rec.Biography
}

func (s *Service) generateText(ctx context.Context, displayName string) (string, error) {
	if s.text == nil {
		return "", &domain.GeneratorUnavailableError{Kind: KindBiography, Err: errors.New("no text generator configured")}
	}
	return s.text.GenerateBiography(ctx, displayName)
}

// Portrait returns the cached portrait URL for displayName, or a placeholder
// while a detached background task completes the generation. The background
// task outlives the request; its result is persisted for future lookups even
// if the caller goes away.
func (s *Service) Portrait(ctx context.Context, displayName string) (PortraitResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "coordinator.portrait")
	defer span.End()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return PortraitResult{}, domain.ErrInvalidName
	}
	key := domain.Normalize(displayName)

	if rec, ok := s.lookup(ctx, key); ok && rec.PortraitURL != "" {
		s.observe(ctx, "portrait", true, time.Since(start))
		return PortraitResult{ImageURL: rec.PortraitURL, Cached: true}, nil
	}
	if s.image == nil {
		s.observe(ctx, "portrait", false, time.Since(start))
		return PortraitResult{}, &domain.GeneratorUnavailableError{Kind: KindPortrait, Err: errors.New("no image generator configured")}
	}

	if s.acquire(key, KindPortrait) {
		s.background.Add(1)
		go s.completePortrait(key, displayName)
	}
	s.observe(ctx, "portrait", true, time.Since(start))
	return PortraitResult{
		ImageURL:   s.placeholderURL,
		Generating: true,
		Message:    s.generatingHint,
	}, nil
}

// completePortrait runs detached from any request. On success the URL is
// persisted write-if-absent; on failure nothing is persisted so the next
// lookup starts a fresh generation.
func (s *Service) completePortrait(key, displayName string) {
	defer s.background.Done()
	defer s.release(key, KindPortrait)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.portraitTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "coordinator.portrait_complete")
	defer span.End()

	url, err := s.image.RequestPortrait(ctx, displayName)
	if err != nil {
		s.logger.Warn("portrait generation failed", "name", displayName, "err", err)
		s.observe(ctx, "portrait_complete", false, time.Since(start))
		return
	}
	if _, err := s.store.PutPortrait(ctx, key, displayName, url); err != nil {
		s.logger.Error("portrait not cached", "key", key, "err", err)
	} else {
		s.logger.Info("portrait ready", "key", key, "url", url)
	}
	s.observe(ctx, "portrait_complete", true, time.Since(start))
}

// lookup reads the store, treating unavailability as a miss so generation can
// still serve the caller.
func (s *Service) lookup(ctx context.Context, key string) (domain.ArtifactRecord, bool) {
	rec, found, err := s.store.Lookup(ctx, key)
	if err != nil {
		s.logger.Error("cache lookup failed", "key", key, "err", err)
		return domain.ArtifactRecord{}, false
	}
	return rec, found
}

// acquire performs the atomic check-then-insert on the in-flight ticket
// table. It reports true when the caller won the ticket and must dispatch.
func (s *Service) acquire(key string, kind domain.ArtifactKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := ticket{key: key, kind: kind}
	if _, inflight := s.tickets[t]; inflight {
		return false
	}
	s.tickets[t] = struct{}{}
	return true
}

func (s *Service) release(key string, kind domain.ArtifactKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, ticket{key: key, kind: kind})
}

// InFlight reports whether a generation ticket is currently held for the
// canonical key and kind.
func (s *Service) InFlight(key string, kind domain.ArtifactKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tickets[ticket{key: key, kind: kind}]
	return ok
}

// Close waits for outstanding background portrait tasks to settle.
func (s *Service) Close() {
	s.background.Wait()
}

func (s *Service) observe(ctx context.Context, operation string, success bool, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, operation, success, d)
}
