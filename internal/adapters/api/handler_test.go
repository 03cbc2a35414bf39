package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"luminary/internal/adapters/api"
	"luminary/internal/blob"
	"luminary/internal/core"
	"luminary/internal/infra/persistence/memory"
)

type fixedText struct{ text string }

func (f fixedText) GenerateBiography(_ context.Context, _ string) (string, error) {
	return f.text, nil
}

type fixedImage struct{ url string }

func (f fixedImage) RequestPortrait(_ context.Context, _ string) (string, error) {
	return f.url, nil
}

type fixedSuggester struct{ names []string }

func (f fixedSuggester) Suggest(_ context.Context, query string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return f.names
}

func newTestHandler(t *testing.T, text core.TextGenerator, image core.ImageGenerator) (*api.Handler, *core.Service) {
	t.Helper()
	svc := core.NewService(memory.NewStore(), text, image)
	handler := api.NewHandler(svc, fixedSuggester{names: []string{"Ada Lovelace"}}, nil, nil)
	return handler, svc
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestBiographyEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, fixedText{text: "<p><strong>Marie Curie</strong> ...</p>"}, nil)

	resp := postJSON(t, handler, "/api/v1/biography", `{"name":"Marie Curie"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	var body struct {
		Biography string     `json:"biography"`
		Cached    bool       `json:"cached"`
		CreatedAt *time.Time `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Biography == "" || body.Cached {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.CreatedAt != nil {
		t.Fatalf("created_at should be omitted on a miss")
	}

	resp = postJSON(t, handler, "/api/v1/biography", `{"name":"marie curie "}`)
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Cached || body.CreatedAt == nil {
		t.Fatalf("variant lookup should be cached with created_at: %+v", body)
	}
}

func TestBiographyRequiresName(t *testing.T) {
	handler, _ := newTestHandler(t, fixedText{text: "x"}, nil)
	for _, body := range []string{`{}`, `{"name":"  "}`, `not json`} {
		resp := postJSON(t, handler, "/api/v1/biography", body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status %d, want 400", body, resp.Code)
		}
	}
}

func TestPortraitEndpointFlow(t *testing.T) {
	handler, svc := newTestHandler(t, nil, fixedImage{url: "https://cdn.example.com/p.png"})

	type portraitBody struct {
		ImageURL   string `json:"imageUrl"`
		Cached     bool   `json:"cached"`
		Generating bool   `json:"generating"`
		Message    string `json:"message"`
	}

	resp := postJSON(t, handler, "/api/v1/portrait", `{"name":"Marie Curie"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	var first portraitBody
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Cached || !first.Generating || first.Message == "" {
		t.Fatalf("expected generating placeholder response: %+v", first)
	}
	if first.ImageURL == "https://cdn.example.com/p.png" {
		t.Fatalf("first call must not block on generation")
	}

	svc.Close() // let the background task persist the URL

	resp = postJSON(t, handler, "/api/v1/portrait", `{"name":"marie curie "}`)
	var second portraitBody
	if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !second.Cached || second.Generating || second.Message != "" {
		t.Fatalf("expected cache hit: %+v", second)
	}
	if second.ImageURL != "https://cdn.example.com/p.png" {
		t.Fatalf("unexpected url: %q", second.ImageURL)
	}
}

func TestPortraitUnavailableWithoutGenerator(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)
	resp := postJSON(t, handler, "/api/v1/portrait", `{"name":"Marie Curie"}`)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.Code)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	resp := postJSON(t, handler, "/api/v1/suggestions", `{"query":"ad"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0] != "Ada Lovelace" {
		t.Fatalf("unexpected suggestions: %v", body.Suggestions)
	}

	resp = postJSON(t, handler, "/api/v1/suggestions", `{"query":""}`)
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Suggestions) != 0 {
		t.Fatalf("empty query should yield no suggestions: %v", body.Suggestions)
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
}

func TestImageProxyCachesFetchedBytes(t *testing.T) {
	var upstreamHits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstreamHits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	proxy := api.NewImageProxy(upstream.Client(), blob.NewMemory(), nil)
	handler := api.NewHandler(nil, nil, proxy, nil)

	fetch := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/image-proxy?url="+upstream.URL+"/p.png", nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	resp := fetch()
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	if got := resp.Body.String(); got != "png-bytes" {
		t.Fatalf("unexpected body: %q", got)
	}
	if got := resp.Header().Get("Cache-Control"); !strings.Contains(got, "immutable") {
		t.Fatalf("unexpected cache-control: %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected CORS header: %q", got)
	}

	resp = fetch()
	if resp.Code != http.StatusOK || resp.Body.String() != "png-bytes" {
		t.Fatalf("cached fetch failed: %d %q", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("content type lost on cache hit: %q", resp.Header().Get("Content-Type"))
	}
	if upstreamHits != 1 {
		t.Fatalf("upstream fetched %d times, want 1", upstreamHits)
	}
}

func TestImageProxyRequiresURL(t *testing.T) {
	handler := api.NewHandler(nil, nil, api.NewImageProxy(nil, nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/image-proxy", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
}

func TestImageProxyUpstreamMiss(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	handler := api.NewHandler(nil, nil, api.NewImageProxy(upstream.Client(), nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/image-proxy?url="+upstream.URL+"/missing.png", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
}
