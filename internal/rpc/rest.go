package rpc

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

// RESTClient is a small JSON-over-HTTP client for chain APIs that are not
// JSON-RPC: Cosmos LCD endpoints and Stellar Horizon. Same retry and backoff
// behavior as Client.
type RESTClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// NewRESTClient creates a REST client rooted at baseURL.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RESTClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
}

// BaseURL returns the configured base URL.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

// GetJSON fetches path and decodes the JSON body into result.
func (c *RESTClient) GetJSON(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// PostJSON posts a JSON body to path and decodes the response into result.
func (c *RESTClient) PostJSON(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, result)
}

// PostForm posts a URL-encoded form (Horizon's transaction submission format).
func (c *RESTClient) PostForm(ctx context.Context, path string, form string, result interface{}) error {
	return c.doWith(ctx, http.MethodPost, path, []byte(form), "application/x-www-form-urlencoded", result)
}

func (c *RESTClient) do(ctx context.Context, method, path string, body []byte, result interface{}) error {
	return c.doWith(ctx, method, path, body, "application/json", result)
}

func (c *RESTClient) doWith(ctx context.Context, method, path string, body []byte, contentType string, result interface{}) error {
	url := c.baseURL + path

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		// 4xx responses carry an application error; do not retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// HTTPError is a non-retryable application-level HTTP error.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}
