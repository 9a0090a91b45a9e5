// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB)
const MaxChunkSize = 64 * 1024

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Fragment is a single piece of a streamed answer. Either Token carries
// answer text or Err carries a stream failure; the channel is closed after
// the final fragment.
type Fragment struct {
	Token string
	Err   error
}

// streamPayload covers both frame shapes the backend emits: token frames
// while generating and a single answer frame for non-streaming responses
// proxied over SSE.
type streamPayload struct {
	Token  string `json:"token"`
	Answer string `json:"answer"`
}

// text returns the answer text carried by the payload.
func (p streamPayload) text() string {
	if p.Token != "" {
		return p.Token
	}
	return p.Answer
}

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type and data. The event type is typically empty for
// backend responses. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var total int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		// Trim trailing newline and carriage return
		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		// Parse field
		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			dataLines = append(dataLines, data)
			total += len(data)
			if total > MaxChunkSize {
				return "", nil, fmt.Errorf("event too large: %d bytes", total)
			}
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMING QUERY
// =============================================================================

// StreamQuery performs a query and streams the answer as it is generated.
//
// The returned channel delivers answer fragments in order and is closed when
// the stream completes, fails, or the context is cancelled. Cancelling the
// context closes the underlying connection. Errors are delivered through the
// Fragment.Err field as the final fragment.
//
// A backend that does not stream answers responds with a plain JSON body;
// that case is surfaced as a single fragment carrying the full answer.
func (c *Client) StreamQuery(ctx context.Context, query QueryRequest) (<-chan Fragment, error) {
	bodyBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/query"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logRequest(req)
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	// Handle error responses before starting the stream
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	fragments := make(chan Fragment, 64)

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/event-stream") {
		// Non-streaming backend: whole answer in one JSON body
		go c.deliverJSONAnswer(resp.Body, fragments)
		return fragments, nil
	}

	go c.processStream(ctx, resp.Body, fragments)
	return fragments, nil
}

// deliverJSONAnswer reads a plain JSON query response and delivers it as a
// single fragment.
func (c *Client) deliverJSONAnswer(body io.ReadCloser, fragments chan<- Fragment) {
	defer close(fragments)
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		fragments <- Fragment{Err: fmt.Errorf("read error: %w", err)}
		return
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(data, &queryResp); err != nil {
		fragments <- Fragment{Err: fmt.Errorf("failed to parse response: %w", err)}
		return
	}

	fragments <- Fragment{Token: queryResp.Text()}
}

// processStream reads SSE events and delivers answer fragments until the
// stream ends or fails.
func (c *Client) processStream(ctx context.Context, body io.ReadCloser, fragments chan<- Fragment) {
	defer close(fragments)
	defer body.Close()

	reader := NewSSEReader(body)
	var received int

	for {
		select {
		case <-ctx.Done():
			fragments <- Fragment{Err: ctx.Err()}
			return
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return
			}
			fragments <- Fragment{Err: &StreamError{
				Partial: fmt.Sprintf("%d fragments", received),
				Err:     err,
			}}
			return
		}

		// Check for [DONE] signal
		if bytes.Equal(data, []byte("[DONE]")) {
			return
		}

		token := parseFrame(data)
		if token == "" {
			continue
		}

		received++
		select {
		case fragments <- Fragment{Token: token}:
		case <-ctx.Done():
			fragments <- Fragment{Err: ctx.Err()}
			return
		}
	}
}

// parseFrame extracts answer text from a single SSE data payload.
// JSON frames carry either a token or a complete answer field; anything
// that fails to parse as JSON is treated as raw answer text.
func parseFrame(data []byte) string {
	var payload streamPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		if text := payload.text(); text != "" {
			return text
		}
		// Well-formed JSON without recognized fields carries no text
		if json.Valid(data) && bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			return ""
		}
	}
	return string(data)
}

// =============================================================================
// ACCUMULATED STREAMING
// =============================================================================

// StreamQueryAccumulate performs a streaming query but returns the full
// answer at the end. Useful when streaming progress is not needed.
func (c *Client) StreamQueryAccumulate(ctx context.Context, query QueryRequest) (string, error) {
	fragments, err := c.StreamQuery(ctx, query)
	if err != nil {
		return "", err
	}

	var accumulated strings.Builder
	for fragment := range fragments {
		if fragment.Err != nil {
			return accumulated.String(), fragment.Err
		}
		accumulated.WriteString(fragment.Token)
	}
	return accumulated.String(), nil
}
