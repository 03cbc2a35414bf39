// Package api exposes the request façade consumed by the presentation
// layer: biography and portrait lookups, search suggestions, and the image
// proxy.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"luminary/internal/core"
	"luminary/pkg/domain"

	"github.com/charmbracelet/log"
)

// Suggester completes a partial search query into name suggestions.
type Suggester interface {
	Suggest(ctx context.Context, query string) []string
}

// Handler routes the public API surface.
type Handler struct {
	Service   *core.Service
	Suggester Suggester
	Proxy     *ImageProxy
	Logger    *log.Logger
}

// NewHandler constructs the façade handler.
func NewHandler(service *core.Service, suggester Suggester, proxy *ImageProxy, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{Service: service, Suggester: suggester, Proxy: proxy, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && path == "/api/v1/biography":
		h.handleBiography(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/portrait":
		h.handlePortrait(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/suggestions":
		h.handleSuggestions(w, r)
	case r.Method == http.MethodGet && path == "/api/v1/image-proxy":
		if h.Proxy == nil {
			http.NotFound(w, r)
			return
		}
		h.Proxy.serve(w, r)
	case r.Method == http.MethodGet && path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		http.NotFound(w, r)
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type biographyResponse struct {
	Biography string     `json:"biography"`
	Cached    bool       `json:"cached"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (h *Handler) handleBiography(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	result, err := h.Service.Biography(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		h.Logger.Error("biography request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch biography")
		return
	}
	resp := biographyResponse{Biography: result.Biography, Cached: result.Cached}
	if result.Cached && !result.CreatedAt.IsZero() {
		createdAt := result.CreatedAt
		resp.CreatedAt = &createdAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type portraitResponse struct {
	ImageURL   string `json:"imageUrl"`
	Cached     bool   `json:"cached"`
	Generating bool   `json:"generating,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (h *Handler) handlePortrait(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	result, err := h.Service.Portrait(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		var unavailable *domain.GeneratorUnavailableError
		if errors.As(err, &unavailable) {
			writeError(w, http.StatusServiceUnavailable, "portrait generation unavailable")
			return
		}
		h.Logger.Error("portrait request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch portrait")
		return
	}
	writeJSON(w, http.StatusOK, portraitResponse{
		ImageURL:   result.ImageURL,
		Cached:     result.Cached,
		Generating: result.Generating,
		Message:    result.Message,
	})
}

type suggestionsRequest struct {
	Query string `json:"query"`
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	suggestions := []string{}
	if h.Suggester != nil {
		if got := h.Suggester.Suggest(r.Context(), req.Query); got != nil {
			suggestions = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
