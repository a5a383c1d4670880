// Package renewal exchanges a refresh token for a new access token.
//
// A Renewer performs the exchange and nothing else. Persisting the result is
// the caller's job, which keeps the exchange testable without storage.
package renewal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mood2food/storefront-client/pkg/utils"
)

// RefreshPath is the backend route that performs the exchange
const RefreshPath = "/auth/refresh"

var (
	// ErrRenewalRejected means the backend refused the refresh token
	ErrRenewalRejected = errors.New("refresh token rejected")

	// ErrNetworkFailure means the exchange could not be completed
	ErrNetworkFailure = errors.New("renewal request failed")
)

// Token is the result of a successful exchange. RefreshToken is empty
// unless the backend rotated it.
type Token struct {
	AccessToken  string
	RefreshToken string
}

// Renewer exchanges a refresh token for a new access token
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (*Token, error)
}

// RenewerFunc adapts a function to the Renewer interface
type RenewerFunc func(ctx context.Context, refreshToken string) (*Token, error)

// Renew calls f
func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (*Token, error) {
	return f(ctx, refreshToken)
}

// RejectedError carries the backend's explanation for a rejected refresh
type RejectedError struct {
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("refresh token rejected (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("refresh token rejected (HTTP %d): %s", e.StatusCode, e.Detail)
}

// Is makes errors.Is(err, ErrRenewalRejected) hold
func (e *RejectedError) Is(target error) bool {
	return target == ErrRenewalRejected
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// HTTPRenewer performs the exchange against the storefront backend
type HTTPRenewer struct {
	baseURL    string
	httpClient *http.Client
}

var _ Renewer = (*HTTPRenewer)(nil)

// NewHTTPRenewer creates a renewer for the backend at baseURL.
// A nil httpClient uses the default client configuration.
func NewHTTPRenewer(baseURL string, httpClient *http.Client) *HTTPRenewer {
	if httpClient == nil {
		httpClient = utils.NewDefaultHTTPClient()
	}
	return &HTTPRenewer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// maxResponseBytes bounds how much of a refresh response is read
const maxResponseBytes = 64 << 10

// Renew posts the refresh token and returns the new access token.
func (r *HTTPRenewer) Renew(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, &RejectedError{StatusCode: http.StatusUnauthorized, Detail: "no refresh token"}
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+RefreshPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer func() {
		_ = utils.DrainAndClose(resp)
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrNetworkFailure, err)
	}

	switch {
	case utils.IsSuccess(resp.StatusCode):
		var parsed refreshResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.AccessToken == "" {
			return nil, &RejectedError{StatusCode: resp.StatusCode, Detail: "response carried no access token"}
		}
		return &Token{AccessToken: parsed.AccessToken, RefreshToken: parsed.RefreshToken}, nil

	case isRejection(resp.StatusCode):
		return nil, &RejectedError{StatusCode: resp.StatusCode, Detail: parseDetail(respBody)}

	default:
		return nil, fmt.Errorf("%w: server returned status %d", ErrNetworkFailure, resp.StatusCode)
	}
}

// isRejection reports statuses that mean "this refresh token is no good"
func isRejection(statusCode int) bool {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// parseDetail extracts a FastAPI style "detail" (string or object) or a "message"
func parseDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return text
		}
		return string(parsed.Detail)
	}
	return parsed.Message
}
