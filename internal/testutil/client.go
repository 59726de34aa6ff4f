// Package testutil holds helpers shared by handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"testing"
)

// Client calls a running server and, when it has a validator, checks every
// response against the OpenAPI document.
type Client struct {
	baseURL   string
	headers   http.Header
	http      *http.Client
	validator *OpenAPIValidator
	t         *testing.T
}

// NewClientWithValidator returns a client for baseURL. The validator may be nil.
func NewClientWithValidator(baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		baseURL:   baseURL,
		headers:   http.Header{},
		http:      &http.Client{},
		validator: validator,
	}
}

// SetT sets the test that receives validation errors.
func (c *Client) SetT(t *testing.T) {
	c.t = t
}

// WithoutValidation returns a copy that skips response validation.
func (c *Client) WithoutValidation() *Client {
	return c.derive(func(cc *Client) { cc.validator = nil })
}

// WithToken returns a copy sending a bearer token.
func (c *Client) WithToken(token string) *Client {
	return c.WithHeader("Authorization", "Bearer "+token)
}

// WithHeader returns a copy sending an extra header.
func (c *Client) WithHeader(key, value string) *Client {
	return c.derive(func(cc *Client) { cc.headers.Set(key, value) })
}

func (c *Client) derive(apply func(*Client)) *Client {
	cc := *c
	cc.headers = maps.Clone(c.headers)
	apply(&cc)
	return &cc
}

func (c *Client) GET(path string) (*http.Response, error) {
	return c.send(http.MethodGet, path, "", nil)
}

// POST sends body as JSON. A nil body sends no payload.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.sendJSON(http.MethodPost, path, body)
}

// PUT sends body as JSON.
func (c *Client) PUT(path string, body interface{}) (*http.Response, error) {
	return c.sendJSON(http.MethodPut, path, body)
}

// PostRaw sends body unchanged, the way a webhook sender would.
func (c *Client) PostRaw(path, contentType string, body []byte) (*http.Response, error) {
	return c.send(http.MethodPost, path, contentType, body)
}

func (c *Client) sendJSON(method, path string, body interface{}) (*http.Response, error) {
	if body == nil {
		return c.send(method, path, "", nil)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return c.send(method, path, "application/json", raw)
}

func (c *Client) send(method, path, contentType string, body []byte) (*http.Response, error) {
	req, err := c.newRequest(method, path, contentType, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if c.validator != nil && c.t != nil {
		// The sent request's body is drained; validate against a fresh copy.
		probe, err := c.newRequest(method, path, contentType, body)
		if err != nil {
			return nil, err
		}
		c.validator.ValidateRequestResponse(c.t, probe, resp)
	}
	return resp, nil
}

func (c *Client) newRequest(method, path, contentType string, body []byte) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.headers.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// DecodeJSON decodes and closes the response body, failing the test on error.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
