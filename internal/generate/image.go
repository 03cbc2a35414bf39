package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"luminary/pkg/domain"
)

const maxWebhookBody = 1 << 20

// WebhookPortraitClient requests portrait generation from an external
// webhook. The webhook is slow (tens of seconds); callers are expected to
// invoke it only from a detached background task.
type WebhookPortraitClient struct {
	url    string
	client *http.Client
}

// NewWebhookPortraitClient targets the given webhook URL. A nil client uses
// a default with no overall timeout; the caller's context bounds the call.
func NewWebhookPortraitClient(url string, client *http.Client) *WebhookPortraitClient {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookPortraitClient{url: url, client: client}
}

// RequestPortrait posts the display name to the webhook and returns the
// resolved portrait URL. Share links for known file hosts are rewritten to
// their direct-content-serving form.
func (c *WebhookPortraitClient) RequestPortrait(ctx context.Context, displayName string) (string, error) {
	payload, err := json.Marshal(map[string]string{"name": displayName})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &domain.GeneratorUnavailableError{Kind: domain.KindPortrait, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.GeneratorUnavailableError{
			Kind: domain.KindPortrait,
			Err:  fmt.Errorf("webhook returned %s", resp.Status),
		}
	}

	imageURL, err := parseWebhookBody(resp)
	if err != nil {
		return "", err
	}
	return RewriteShareURL(imageURL), nil
}

// parseWebhookBody accepts either a JSON object carrying the URL under one of
// several keys, or a raw text body containing the URL itself.
func parseWebhookBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return "", &domain.GeneratorUnavailableError{Kind: domain.KindPortrait, Err: err}
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var decoded struct {
			ImageURL string `json:"imageUrl"`
			URL      string `json:"url"`
			Link     string `json:"link"`
			Image    string `json:"image"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", &domain.UpstreamMalformedError{Kind: domain.KindPortrait, Detail: err.Error()}
		}
		for _, candidate := range []string{decoded.ImageURL, decoded.URL, decoded.Link, decoded.Image} {
			if candidate != "" {
				return candidate, nil
			}
		}
		return "", &domain.UpstreamMalformedError{Kind: domain.KindPortrait, Detail: "no image URL in response"}
	}
	url := strings.TrimSpace(string(body))
	if url == "" {
		return "", &domain.UpstreamMalformedError{Kind: domain.KindPortrait, Detail: "empty response body"}
	}
	return url, nil
}

var (
	sharePathID  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	shareQueryID = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
)

// RewriteShareURL converts Google Drive share links to the direct
// image-serving form. URLs already in direct form, or with no recoverable
// file identifier, pass through unchanged.
func RewriteShareURL(url string) string {
	if url == "" || !strings.Contains(url, "drive.google.com") || strings.Contains(url, "drive.google.com/uc?") {
		return url
	}
	fileID := ""
	if m := sharePathID.FindStringSubmatch(url); m != nil {
		fileID = m[1]
	} else if m := shareQueryID.FindStringSubmatch(url); m != nil {
		fileID = m[1]
	}
	if fileID == "" {
		return url
	}
	return "https://drive.google.com/uc?export=view&id=" + fileID
}

// DefaultWebhookHTTPClient returns the HTTP client used for webhook calls
// when none is supplied, with a generous timeout as a backstop behind the
// coordinator's own deadline.
func DefaultWebhookHTTPClient() *http.Client {
	return &http.Client{Timeout: 3 * time.Minute}
}
