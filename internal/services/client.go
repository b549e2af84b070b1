package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/tdx/internal/shared"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request id so client and server logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("task service error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("task service error: status %d", e.StatusCode)
}

// Unwrap lets callers match [shared.ErrAPIRequest] and, for 401, [shared.ErrNotAuthenticated].
func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized {
		return []error{shared.ErrAPIRequest, shared.ErrNotAuthenticated}
	}
	return []error{shared.ErrAPIRequest}
}

// IsStatus reports whether err is an [APIError] with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// request describes a single call to the service.
type request struct {
	method   string
	endpoint string
	query    map[string]string
	body     any
	authed   bool
}

// httpClient returns a client that attaches token as a bearer credential when non-empty.
func (c *TaskClient) httpClient(token string) *http.Client {
	client := &http.Client{Transport: c.transport, Timeout: c.timeout}
	if token == "" {
		return client
	}

	client.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   c.transport,
	}
	return client
}

func (c *TaskClient) doRequest(ctx context.Context, r request, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if len(r.query) > 0 {
		q := req.URL.Query()
		for k, v := range r.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	requestID := shared.GenerateID()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if r.authed {
		token, _ = c.token()
	}

	c.logger.Debug("task service request", "method", r.method, "endpoint", r.endpoint, "request_id", requestID)

	resp, err := c.httpClient(token).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		if data, err := io.ReadAll(resp.Body); err == nil {
			apiErr.Detail = parseDetail(data)
		}
		c.logger.Debug("task service error", "status", resp.StatusCode, "detail", apiErr.Detail, "request_id", requestID)
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseDetail extracts the FastAPI "detail" field, which is a string for most errors and a
// list of objects for validation failures.
func parseDetail(data []byte) string {
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &errResp); err != nil || len(errResp.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var s string
	if err := json.Unmarshal(errResp.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(errResp.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(errResp.Detail)
}
