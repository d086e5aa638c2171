package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/rules"
)

// ValidatePath is the worker endpoint that accepts a Bundle
const ValidatePath = "/api/v1/worker/validate"

// CorrelationHeader carries the run correlation id between instances
const CorrelationHeader = "X-Correlation-ID"

// maxErrorBody bounds how much of a failed response is kept for the error message
const maxErrorBody = 4096

// Response is the body returned by the worker endpoint
type Response struct {
	Errors []rules.ValidationError `json:"errors"`
}

// ErrorResponse is the body returned by the worker endpoint on failure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RemoteError is a non-2xx answer from a remote worker
type RemoteError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker %s returned %d: %s", e.URL, e.StatusCode, e.Message)
}

// HTTPWorker sends bundles to a remote instance's worker endpoint
type HTTPWorker struct {
	url    string
	client *http.Client
}

// NewHTTPWorker creates a client for the worker at baseURL
func NewHTTPWorker(baseURL string, timeout time.Duration) *HTTPWorker {
	return &HTTPWorker{
		url: strings.TrimRight(baseURL, "/") + ValidatePath,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: timeout,
		},
	}
}

// URL returns the endpoint the worker posts to
func (w *HTTPWorker) URL() string {
	return w.url
}

// Validate posts bundle and decodes the validation errors of the response
func (w *HTTPWorker) Validate(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error) {
	body, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set(CorrelationHeader, id)
	} else if bundle.CorrelationID != "" {
		req.Header.Set(CorrelationHeader, bundle.CorrelationID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("worker %s: %w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readRemoteError(w.url, resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode worker response: %w", err)
	}
	return out.Errors, nil
}

func readRemoteError(url string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(raw))

	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		message = body.Error
		if body.Details != "" {
			message += ": " + body.Details
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{URL: url, StatusCode: resp.StatusCode, Message: message}
}

// IsRemoteError reports whether err came back from a remote worker
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
