// Package client is a typed client for the storefront backend.
//
// Every call, including sign in, goes through a session.Executor so that
// expired access tokens are renewed transparently.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/renewal"
	"github.com/mood2food/storefront-client/pkg/session"
	"github.com/mood2food/storefront-client/pkg/utils"
)

// Client represents a storefront client
type Client struct {
	baseURL  string
	store    credentials.Store
	executor *session.Executor
	log      zerolog.Logger
}

type clientOptions struct {
	httpClient  *http.Client
	renewer     renewal.Renewer
	log         zerolog.Logger
	sessionOpts []session.Option
}

// Option configures a Client
type Option func(*clientOptions)

// WithHTTPClient sets the client used for backend and renewal calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithRenewer replaces the HTTP renewer
func WithRenewer(renewer renewal.Renewer) Option {
	return func(o *clientOptions) {
		o.renewer = renewer
	}
}

// WithLogger sets the logger used by the client and its executor
func WithLogger(log zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.log = log
	}
}

// WithSessionOptions passes options through to the executor
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *clientOptions) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// NewClient creates a client for the backend at baseURL using store for credentials
func NewClient(baseURL string, store credentials.Store, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}

	o := &clientOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = utils.NewDefaultHTTPClient()
	}

	baseURL = strings.TrimRight(baseURL, "/")
	if o.renewer == nil {
		o.renewer = renewal.NewHTTPRenewer(baseURL, o.httpClient)
	}

	sessionOpts := append([]session.Option{
		session.WithHTTPClient(o.httpClient),
		session.WithLogger(o.log),
	}, o.sessionOpts...)

	executor, err := session.NewExecutor(store, o.renewer, sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	return &Client{
		baseURL:  baseURL,
		store:    store,
		executor: executor,
		log:      o.log,
	}, nil
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues a raw call against path and returns the response as received.
// The caller must close the response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	return c.executor.Execute(ctx, session.NewRequest(strings.ToUpper(method), c.url(path, nil), body))
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// call performs one JSON call. A non-2xx answer becomes an *APIError whose
// detail falls back to failure. out may be nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out interface{}, failure string) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req := session.NewRequest(method, c.url(path, query), body)
	req.Header.Set("Accept", "application/json")

	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !utils.IsSuccess(resp.StatusCode) {
		return newAPIError(resp, failure)
	}

	if out == nil {
		return nil
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsSessionExpired reports whether err means the user must sign in again
func IsSessionExpired(err error) bool {
	return errors.Is(err, session.ErrSessionExpired)
}
