package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestIDHeader carries the identifier shared by every attempt of one call
const RequestIDHeader = "X-Request-ID"

// Request describes one logical backend call. The Executor never modifies it,
// so the same value can be issued again after a renewal.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// NewRequest creates a request with an optional raw body
func NewRequest(method, url string, body []byte) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// NewJSONRequest creates a request whose body is v encoded as JSON
func NewJSONRequest(method, url string, v interface{}) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req := NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// build creates a fresh *http.Request for one attempt
func (r *Request) build(ctx context.Context, accessToken, requestID string) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body *bytes.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	var httpReq *http.Request
	var err error
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, method, r.URL, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, method, r.URL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.Header != nil {
		httpReq.Header = r.Header.Clone()
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, requestID)
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return httpReq, nil
}
