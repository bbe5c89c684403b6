// Package ssg is the HTTP client for the remote training-management API.
// It knows the per-kind endpoints and payload envelopes; the pipeline only
// hands it mapped records.
package ssg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ssgtools/tpconsole/internal/config"
	"github.com/ssgtools/tpconsole/internal/mapping"
)

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "Authentication failed. Check API credentials."
	case e.StatusCode == http.StatusForbidden:
		return "Access denied. Check API permissions."
	case e.StatusCode == http.StatusNotFound:
		return "Resource not found. Check the course reference number."
	case e.StatusCode == http.StatusUnprocessableEntity:
		return "The API rejected the record: " + e.Body
	case e.StatusCode == http.StatusTooManyRequests:
		return "Rate limit exceeded. Try again later."
	case e.StatusCode >= 500:
		return fmt.Sprintf("The API returned a server error (%d).", e.StatusCode)
	default:
		return fmt.Sprintf("The API returned an unexpected status (%d).", e.StatusCode)
	}
}

// Client submits mapped records to the training-management API.
type Client struct {
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	uen          string
}

// NewClient builds a client from config. The timeout bounds each request.
func NewClient(cfg config.SSGConfig) *Client {
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		uen:          cfg.UEN,
	}
}

// Submit delivers one record of the given kind. It satisfies the pipeline's
// submission interface.
func (c *Client) Submit(ctx context.Context, kind string, record mapping.Record) error {
	switch kind {
	case "course_runs":
		return c.PublishCourseRun(ctx, record)
	case "enrolments":
		return c.CreateEnrolment(ctx, record)
	case "assessments":
		return c.CreateAssessment(ctx, record)
	default:
		return fmt.Errorf("no submission endpoint for kind %q", kind)
	}
}

// PublishCourseRun publishes one course run. The API takes the course
// reference number and training provider at the course level, with the run
// fields nested under runs.
func (c *Client) PublishCourseRun(ctx context.Context, record mapping.Record) error {
	run := make(mapping.Record, len(record))
	for k, v := range record {
		run[k] = v
	}
	ref := run["courseReferenceNumber"]
	delete(run, "courseReferenceNumber")

	payload := map[string]any{
		"course": map[string]any{
			"courseReferenceNumber": ref,
			"trainingProvider":      map[string]any{"uen": c.uen},
			"runs":                  []mapping.Record{run},
		},
	}
	return c.post(ctx, "/courses/courseRuns/publish", payload)
}

// CreateEnrolment creates one enrolment.
func (c *Client) CreateEnrolment(ctx context.Context, record mapping.Record) error {
	return c.post(ctx, "/tpg/enrolments", map[string]any{"enrolment": record})
}

// CreateAssessment creates one assessment result.
func (c *Client) CreateAssessment(ctx context.Context, record mapping.Record) error {
	return c.post(ctx, "/tpg/assessments", map[string]any{"assessment": record})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("clientId", c.clientID)
	req.Header.Set("clientSecret", c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("The request timed out. Try again later.")
		}
		return errors.New("Could not reach the API. Check network connectivity.")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	// Cap the error body so a misbehaving upstream can't flood logs.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: detail(raw)}
	slog.Warn("api request failed", "path", path, "status", resp.StatusCode)
	return apiErr
}

// detail extracts a human-readable message from an error response body.
func detail(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(bytes.TrimSpace(raw))
}
