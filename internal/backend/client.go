// Package backend is the HTTP client for the receipt-processing API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zombor/receipt-client/internal/receipt"
)

// DefaultBaseURL is where the receipt API listens in local development
const DefaultBaseURL = "http://localhost:8000"

var (
	// ErrUploadFailed is returned for any non-2xx upload response
	ErrUploadFailed = errors.New("Upload failed")
	// ErrNotFound is returned for any non-2xx status lookup, 404 included
	ErrNotFound = errors.New("Not found")
)

// StatusError describes a non-2xx answer. The body is kept as unstructured
// text since the backend's error payload has no fixed shape.
type StatusError struct {
	Reason error
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Reason, e.Code)
}

func (e *StatusError) Unwrap() error {
	return e.Reason
}

// Client talks to the receipt API
type Client struct {
	http *resty.Client
}

var _ receipt.Backend = (*Client)(nil)

// Option configures a Client
type Option func(*resty.Client)

// WithTimeout bounds every request. Zero leaves the transport default in place.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// NewClient creates a Client for the API at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	for _, opt := range opts {
		opt(c)
	}
	return &Client{http: c}
}

// UploadReceipt posts the file as multipart field "file"
func (c *Client) UploadReceipt(ctx context.Context, filename, contentType string, body io.Reader) (*receipt.UploadResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", filename, contentType, body).
		Post("/receipts/upload")
	if err != nil {
		return nil, fmt.Errorf("posting receipt: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Reason: ErrUploadFailed, Code: resp.StatusCode(), Body: resp.String()}
	}

	var result struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if result.ID == nil || *result.ID == 0 {
		return nil, fmt.Errorf("%w: response has no receipt id", ErrUploadFailed)
	}
	return &receipt.UploadResult{ID: *result.ID}, nil
}

// GetReceipt fetches the record for id
func (c *Client) GetReceipt(ctx context.Context, id string) (*receipt.Record, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/receipts/{id}")
	if err != nil {
		return nil, fmt.Errorf("fetching receipt %s: %w", id, err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Reason: ErrNotFound, Code: resp.StatusCode(), Body: resp.String()}
	}

	var record receipt.Record
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return nil, fmt.Errorf("decoding receipt %s: %w", id, err)
	}
	return &record, nil
}
