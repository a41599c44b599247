package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"parkfinder/internal/apperr"
)

// maxErrorBody caps how much of a failed response body ends up in errors
const maxErrorBody = 256

// StatusError is returned for non-200 responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// jsonClient performs GET requests against one upstream and decodes JSON bodies
type jsonClient struct {
	httpClient *http.Client
	userAgent  string
}

func newJSONClient(httpClient *http.Client, timeout time.Duration, userAgent string) jsonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return jsonClient{httpClient: httpClient, userAgent: userAgent}
}

// get fetches url and unmarshals the body into out. Non-200 responses yield
// a *StatusError; raw is returned so callers can inspect error payloads.
func (c jsonClient) get(ctx context.Context, url string, out any) (raw []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return body, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return body, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return body, nil
}

// classify turns an infrastructure error into a typed error of the given
// kind, or a timeout error when the context deadline expired.
func classify(ctx context.Context, err error, kind apperr.Kind, message string) *apperr.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, message, err)
	}
	return apperr.Wrap(kind, message, err)
}
