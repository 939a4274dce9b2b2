package schemestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kastheco/monothematic/palette"
)

// HTTPClient reads the scheme from a remote scheme store server. Connection
// errors are wrapped with "scheme store unreachable" so callers can detect
// and surface them gracefully.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new client pointing at baseURL.
// The underlying http.Client has a 5-second timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// do executes an HTTP request.
// It wraps connection errors with "scheme store unreachable".
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheme store unreachable: %w", err)
	}
	return resp, nil
}

// decodeError reads an error response body and returns a formatted error.
// 503 maps to ErrNoScheme.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("scheme store: %w", ErrNoScheme)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("scheme store: %s (status %d)", errResp.Error, resp.StatusCode)
	}
	return fmt.Errorf("scheme store: unexpected status %d", resp.StatusCode)
}

// Ping checks that the server is up.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/ping", nil)
	if err != nil {
		return fmt.Errorf("scheme store: build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Scheme fetches and parses the current palette.
func (c *HTTPClient) Scheme(ctx context.Context) (palette.Palette, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/scheme", nil)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("scheme store: build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return palette.Palette{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return palette.Palette{}, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("scheme store: read response: %w", err)
	}
	return palette.ParseScheme(data)
}

// Color fetches one named palette entry as {oklch, hex}.
func (c *HTTPClient) Color(ctx context.Context, name string) (oklch, hex string, err error) {
	u := c.baseURL + "/v1/scheme/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", fmt.Errorf("scheme store: build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", decodeError(resp)
	}

	var entry colorEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return "", "", fmt.Errorf("scheme store: decode response: %w", err)
	}
	return entry.OKLCH, entry.Hex, nil
}

// Recolor sends text to the server and returns it recolored against the
// server's current palette.
func (c *HTTPClient) Recolor(ctx context.Context, text string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recolor", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("scheme store: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("scheme store: read response: %w", err)
	}
	return string(out), nil
}
