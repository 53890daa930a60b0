package launch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxResponseBytes caps how much of a backend response is read. Backend
// output is forwarded into conversation history, so it must stay small.
const maxResponseBytes = 64 * 1024

// apiClient is the shared HTTP client for all launch tools.
type apiClient struct {
	http   *http.Client
	logger *slog.Logger
}

// do sends a request with an optional JSON body and returns the
// response body as a string. Non-2xx responses are errors carrying a
// body snippet.
func (c *apiClient) do(ctx context.Context, method, url string, body any) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("launch: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return "", fmt.Errorf("launch: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("launch: %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("launch: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", fmt.Errorf("launch: %s %s: HTTP %d: %s", method, url, resp.StatusCode, snippet)
	}

	return string(data), nil
}
