package utils

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDrainBytes bounds how much of an unread body is discarded before close
// so the underlying connection can be reused.
const maxDrainBytes = 64 << 10

// HTTPClientConfig holds configuration for HTTP client creation
type HTTPClientConfig struct {
	Timeout   time.Duration
	Transport http.RoundTripper
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout: 30 * time.Second,
	}
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: config.Transport,
	}
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultHTTPClientConfig())
}

// DrainAndClose discards what is left of the response body and closes it.
func DrainAndClose(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("failed to close response body: %w", err)
	}
	return nil
}

// IsSuccess reports whether the status code is in the 2xx range
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
