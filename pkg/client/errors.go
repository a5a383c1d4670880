package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.StatusCode)
}

// IsNotFound reports whether the backend answered 404
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// newAPIError builds an APIError from resp, using fallback when the body
// carries no usable message
func newAPIError(resp *http.Response, fallback string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := extractDetail(body)
	if detail == "" {
		detail = fallback
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

func extractDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Detail) > 0 && string(parsed.Detail) != "null" {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		return string(parsed.Detail)
	}
	return parsed.Message
}
