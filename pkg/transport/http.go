package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/stream"
)

// HTTPTransport posts turns to a chat endpoint that answers with SSE frames
// or, for non-streaming turns, a single JSON object.
type HTTPTransport struct {
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for url. timeout bounds non-streaming
// turns only; streaming turns are bounded by the caller's context.
func NewHTTPTransport(url, apiKey, model string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the underlying client
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	t.httpClient = c
	return t
}

// Open posts req and streams the response body line by line.
func (t *HTTPTransport) Open(ctx context.Context, req Request) (*Stream, error) {
	req.AcceptsStreaming = true

	ctx, cancel := context.WithCancel(ctx)
	resp, err := t.post(ctx, req, "text/event-stream")
	if err != nil {
		cancel()
		return nil, err
	}

	s, frames := NewStream(cancel)

	if isJSON(resp) {
		// The server chose not to stream; replay its single reply as a complete frame.
		go t.replayJSON(ctx, resp.Body, frames)
		return s, nil
	}

	go t.readStream(ctx, resp.Body, frames, s.ID)
	return s, nil
}

// OpenOnce posts req and decodes a single JSON reply.
func (t *HTTPTransport) OpenOnce(ctx context.Context, req Request) (FinalResult, error) {
	req.AcceptsStreaming = false

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.post(ctx, req, "application/json")
	if err != nil {
		return FinalResult{}, err
	}
	defer resp.Body.Close()

	var result FinalResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return FinalResult{}, &TransportError{Op: "decode response", Cause: err}
	}
	return result, nil
}

func (t *HTTPTransport) post(ctx context.Context, req Request, accept string) (*http.Response, error) {
	if req.Model == "" {
		req.Model = t.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "request", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &TransportError{Op: "request", StatusCode: resp.StatusCode, Message: errorBody(resp.Body)}
	}
	return resp, nil
}

// readStream forwards each line of body as a frame
func (t *HTTPTransport) readStream(ctx context.Context, body io.ReadCloser, frames chan<- Frame, streamID string) {
	defer close(frames)
	defer body.Close()

	reader := stream.NewFrameReader(body)
	count := 0
	for {
		line, err := reader.Next()
		if errors.Is(err, io.EOF) {
			log.Debug("stream %s ended after %d frames", streamID, count)
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				send(ctx, frames, Frame{Err: &TransportError{Op: "read stream", Cause: err}})
			}
			return
		}

		count++
		if !send(ctx, frames, Frame{Data: line}) {
			return
		}
	}
}

func (t *HTTPTransport) replayJSON(ctx context.Context, body io.ReadCloser, frames chan<- Frame) {
	defer close(frames)
	defer body.Close()

	var result FinalResult
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		send(ctx, frames, Frame{Err: &TransportError{Op: "decode response", Cause: err}})
		return
	}
	result.Type = stream.TypeComplete

	data, err := json.Marshal(result)
	if err != nil {
		send(ctx, frames, Frame{Err: &TransportError{Op: "encode response", Cause: err}})
		return
	}
	send(ctx, frames, Frame{Data: data})
}

func isJSON(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// errorBody extracts a readable message from an error response
func errorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return fmt.Sprintf("failed to read error response: %v", err)
	}

	var parsed struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		switch e := parsed.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(bytes.TrimSpace(data))
}
