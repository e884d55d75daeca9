package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	requestTimeout = 12 * time.Second
	maxAttempts    = 3
)

// apiError is a non-retryable provider response (4xx).
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("provider HTTP %d: %s", e.StatusCode, e.Body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// doJSON sends a request and decodes the JSON response into out. Transport
// errors and 5xx responses are retried with backoff and surface as
// ErrProviderUnavailable once attempts run out; 4xx responses are returned
// as *apiError without retrying.
func doJSON(ctx context.Context, client *http.Client, method, url, secretKey string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cannot encode payload: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(250<<(attempt-1)) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("cannot build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if secretKey != "" {
			req.Header.Set("Authorization", "Bearer "+secretKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBytes, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBytes))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &apiError{StatusCode: resp.StatusCode, Body: string(respBytes)}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("JSON parse error: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}
