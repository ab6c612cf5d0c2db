// Package client talks to the students REST backend.
//
// Endpoints (relative to the configured base URL):
//
//	GET    /students        → []Student
//	POST   /students        → created Student   (body: StudentInput)
//	PUT    /students/{id}   → updated Student   (body: Student)
//	DELETE /students/{id}   → no content
//
// No call is retried. Every failure comes back as an error; a non-2xx
// response is an *APIError carrying the status code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/metrics"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// Students is the set of backend operations the dashboard depends on.
// Components accept this interface so tests can substitute a fake.
type Students interface {
	List(ctx context.Context) ([]types.Student, error)
	Create(ctx context.Context, in types.StudentInput) (types.Student, error)
	Update(ctx context.Context, id string, s types.Student) (types.Student, error)
	Delete(ctx context.Context, id string) error
}

// APIError is returned when the backend answered with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Status implements metrics.StatusCoder.
func (e *APIError) Status() int { return e.StatusCode }

// StatusCode returns the HTTP status carried by err, or 0 when the failure
// happened before a response arrived.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// HTTPClient is the REST implementation of Students.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) List(ctx context.Context) ([]types.Student, error) {
	students := make([]types.Student, 0)
	if err := c.do(ctx, "list", http.MethodGet, "/students", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (c *HTTPClient) Create(ctx context.Context, in types.StudentInput) (types.Student, error) {
	var created types.Student
	if err := c.do(ctx, "create", http.MethodPost, "/students", in, &created); err != nil {
		return types.Student{}, err
	}
	// Some backends answer with only an acknowledgement. Fall back to what
	// was sent so callers always get a usable record.
	if created.ID == "" {
		created = in.Student(created.Progress)
	}
	return created, nil
}

func (c *HTTPClient) Update(ctx context.Context, id string, s types.Student) (types.Student, error) {
	var updated types.Student
	if err := c.do(ctx, "update", http.MethodPut, "/students/"+url.PathEscape(id), s, &updated); err != nil {
		return types.Student{}, err
	}
	if updated.ID == "" {
		updated = s
	}
	return updated, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/students/"+url.PathEscape(id), nil, nil)
}

// errorEnvelope is the {"status":"error","error":"..."} body the backend
// sends with failures.
type errorEnvelope struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("students", op, start, err) }()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client.%s: marshal: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client.%s: new request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("calling students backend",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client.%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client.%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client.%s: decode: %w", op, err)
	}
	return nil
}
