// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP gateway to the chattai RAG server.
//
// The backend exposes a small REST API for querying the knowledge base,
// uploading documents for ingestion, and tracking ingestion jobs. This
// package implements the client for that API, including SSE streaming
// for query answers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL of a locally running backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 120 * time.Second

	// DefaultHealthTimeout bounds the health probe so a dead backend is
	// reported quickly.
	DefaultHealthTimeout = 4 * time.Second

	// apiPrefix is the common path prefix for all API endpoints.
	apiPrefix = "/api/v1"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client with connection pooling for all backend requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common backend errors.
var (
	// ErrRateLimited indicates the backend rejected the request with 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrJobNotFound indicates the requested ingestion job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnsupportedFile indicates the backend rejected the file type.
	ErrUnsupportedFile = errors.New("file type not supported")
)

// BackendError represents an error response from the backend API.
type BackendError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, http.StatusText(e.Status))
}

// UserDetail returns the human-readable error detail, falling back to the
// HTTP status text when the backend sent no detail.
func (e *BackendError) UserDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.Status)
}

// detailResponse is the error body shape the backend uses.
type detailResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// QueryRequest is a retrieval query against the knowledge base.
type QueryRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryResponse is a complete, non-streamed answer. Some engine versions
// name the field "result" instead of "answer".
type QueryResponse struct {
	Answer string `json:"answer"`
	Result string `json:"result"`
}

// Text returns the answer regardless of which field the engine used.
func (r QueryResponse) Text() string {
	if r.Answer != "" {
		return r.Answer
	}
	return r.Result
}

// IngestResponse is returned when a file is accepted for ingestion.
// Status is "queued" for new files and "skipped" for duplicates; skipped
// uploads carry an empty JobID.
type IngestResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Skipped reports whether the backend deduplicated the upload.
func (r IngestResponse) Skipped() bool {
	return r.Status == "skipped"
}

// JobStatusResponse describes the state of an ingestion job.
type JobStatusResponse struct {
	JobID       string `json:"job_id"`
	JobType     string `json:"job_type"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StatsResponse holds backend workspace statistics.
type StatsResponse struct {
	Workspace     string `json:"workspace"`
	WorkingDir    string `json:"working_dir"`
	ActiveJobs    int    `json:"active_jobs"`
	CompletedJobs int    `json:"completed_jobs"`
	FailedJobs    int    `json:"failed_jobs"`
}

// DeleteDocResponse is returned when a document deletion is requested.
type DeleteDocResponse struct {
	Success bool   `json:"success"`
	DocID   string `json:"doc_id"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for communicating with the chattai backend API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	streamClient  *http.Client
	healthTimeout time.Duration
	userAgent     string
}

// NewClient creates a new backend client for the given base URL.
// An empty base URL falls back to DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    sharedHTTPClient,
		streamClient:  sharedStreamingClient,
		healthTimeout: DefaultHealthTimeout,
		userAgent:     "chattai/1.0",
	}
}

// WithTimeout sets the request timeout for non-streaming requests.
// Replaces the shared client with a dedicated one carrying the timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	dedicated := *sharedHTTPClient
	dedicated.Timeout = timeout
	c.httpClient = &dedicated
	return c
}

// WithHealthTimeout sets the timeout used by CheckHealth.
func (c *Client) WithHealthTimeout(timeout time.Duration) *Client {
	c.healthTimeout = timeout
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// endpoint joins the base URL, API prefix, and path.
func (c *Client) endpoint(path string) string {
	return c.baseURL + apiPrefix + path
}

// setHeaders sets the common headers for backend API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// logRequest logs an API request without exposing the body.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// readResponse reads the response body with size limits.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	detail := ""
	var dr detailResponse
	if err := json.Unmarshal(body, &dr); err == nil {
		detail = dr.Detail
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, detail)
		}
		return ErrRateLimited
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrJobNotFound, detail)
		}
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(detail), "not supported") {
			return fmt.Errorf("%w: %s", ErrUnsupportedFile, detail)
		}
	}

	return &BackendError{Status: statusCode, Detail: detail}
}

// do performs a request against the shared pooled client, logging request
// and response, and mapping non-2xx responses to backend errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.logRequest(req)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(startTime))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return body, nil
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// =============================================================================
// HEALTH
// =============================================================================

// CheckHealth probes the backend health endpoint. It returns true when the
// backend answers with a 2xx status within the health timeout, false
// otherwise. Probe failures are reported as unreachable, never as errors.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// =============================================================================
// QUERY (NON-STREAMING)
// =============================================================================

// Query performs a blocking query and returns the complete answer.
func (c *Client) Query(ctx context.Context, query QueryRequest) (*QueryResponse, error) {
	bodyBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/query"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &queryResp, nil
}

// =============================================================================
// INGESTION
// =============================================================================

// UploadFile uploads a file from disk for ingestion.
func (c *Client) UploadFile(ctx context.Context, path string) (*IngestResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return c.UploadReader(ctx, filepath.Base(path), f)
}

// UploadReader uploads file content from a reader for ingestion.
// The content is sent as a multipart form with a single "file" field.
func (c *Client) UploadReader(ctx context.Context, filename string, r io.Reader) (*IngestResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/ingest/file"), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(body, &ingestResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &ingestResp, nil
}

// JobStatus retrieves the status of an ingestion job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	var status JobStatusResponse
	if err := c.getJSON(ctx, "/ingest/jobs/"+jobID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Stats retrieves workspace statistics from the backend.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var stats StatsResponse
	if err := c.getJSON(ctx, "/admin/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListDocuments retrieves the manifest of indexed documents.
// The manifest maps content hashes to stored file paths.
func (c *Client) ListDocuments(ctx context.Context) (map[string]string, error) {
	docs := map[string]string{}
	if err := c.getJSON(ctx, "/admin/docs", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument requests deletion of an indexed document.
func (c *Client) DeleteDocument(ctx context.Context, docID string) (*DeleteDocResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/admin/docs/"+docID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var deleteResp DeleteDocResponse
	if err := json.Unmarshal(body, &deleteResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &deleteResp, nil
}
