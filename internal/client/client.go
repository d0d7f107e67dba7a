// Package client calls the platform services the auth service depends on.
// Calls are synchronous with a hard timeout and are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NewHTTPClient returns the pooled client shared by every outbound call
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// StatusError is returned when a service answers with a non-2xx status
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s service returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

type internalClient struct {
	service string
	baseURL string
	token   string
	http    *http.Client
}

// postJSON sends body to path with the internal bearer token
func (c *internalClient) postJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", c.service, err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s service request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: c.service, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
