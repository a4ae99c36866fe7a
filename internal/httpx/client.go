// Package httpx wraps net/http for the service's outbound calls. Every
// failure is surfaced as a typed *Error carrying the upstream status and raw
// body, so callers can turn it into a result value instead of aborting.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin wrapper around http.Client bound to one base URL.
// Timeouts are applied per call through the context so a request-level
// override can exceed the shared default.
type Client struct {
	client         *http.Client
	timeout        time.Duration
	baseURL        string
	defaultHeaders map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the shared timeout for all calls through this client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithBaseURL sets the base URL prepended to every request path.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient builds a Client with the given options.
func NewClient(options ...Option) *Client {
	c := &Client{
		client:  &http.Client{},
		timeout: 30 * time.Second,
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Request is one outbound call. A non-zero Timeout overrides the client's
// shared timeout for this call only.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    interface{}
	Timeout time.Duration
}

// Response is the raw upstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// DecodeJSON unmarshals the body into target.
func (r *Response) DecodeJSON(target interface{}) error {
	return json.Unmarshal(r.Body, target)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Error is a non-2xx reply or a transport failure. Response is nil when the
// request never produced a reply.
type Error struct {
	StatusCode int
	Message    string
	Response   *Response
}

func (e *Error) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Message)
}

// Do executes req and returns the response, or *Error on transport failure
// or a non-2xx status.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target := req.Path
	if c.baseURL != "" {
		target = c.baseURL + target
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	response := &Response{StatusCode: resp.StatusCode, Body: raw}
	if !response.IsSuccess() {
		return response, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
			Response:   response,
		}
	}
	return response, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query, Headers: headers})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body, Headers: headers})
}
