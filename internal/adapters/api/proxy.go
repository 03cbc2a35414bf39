package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"luminary/internal/blob"

	"github.com/charmbracelet/log"
)

const (
	proxyUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	proxyCacheHeader = "public, max-age=31536000, immutable"
	maxProxyBody     = 20 << 20
)

// ImageProxy fetches external portrait images on behalf of the browser to
// route around cross-origin restrictions. Fetched bytes are cached in the
// blob store keyed by URL hash, so an immutable portrait is pulled from the
// external host at most once.
type ImageProxy struct {
	Client *http.Client
	Cache  blob.Store // optional
	Logger *log.Logger
}

// NewImageProxy constructs a proxy with an optional blob-backed byte cache.
func NewImageProxy(client *http.Client, cache blob.Store, logger *log.Logger) *ImageProxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ImageProxy{Client: client, Cache: cache, Logger: logger}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "proxy/" + hex.EncodeToString(sum[:])
}

func (p *ImageProxy) serve(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL parameter is required")
		return
	}
	ctx := r.Context()
	key := cacheKey(url)

	if p.Cache != nil {
		if info, rc, err := p.Cache.Get(ctx, key); err == nil {
			defer func() { _ = rc.Close() }()
			p.writeImageHeaders(w, info.ContentType, info.Size)
			_, _ = io.Copy(w, rc)
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	req.Header.Set("User-Agent", proxyUserAgent)
	resp, err := p.Client.Do(req)
	if err != nil {
		p.Logger.Warn("image fetch failed", "url", url, "err", err)
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	if p.Cache != nil {
		if _, err := p.Cache.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{ContentType: contentType}); err != nil {
			p.Logger.Warn("image not cached", "url", url, "err", err)
		}
	}

	p.writeImageHeaders(w, contentType, int64(len(body)))
	_, _ = w.Write(body)
}

func (p *ImageProxy) writeImageHeaders(w http.ResponseWriter, contentType string, size int64) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", proxyCacheHeader)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
}
