// Package session performs authenticated calls against the storefront backend.
//
// Every call goes through an Executor. It attaches the stored access token,
// renews the session when the backend answers 401 and retries the call, and
// ends the session when renewal is impossible. At most MaxRenewals renewals
// are attempted per logical call.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/renewal"
	"github.com/mood2food/storefront-client/pkg/utils"
)

// MaxRenewals is the number of renewals one logical call may trigger
const MaxRenewals = 3

// ErrSessionExpired is returned once the session has been ended. The stored
// credentials are gone by the time a caller sees it.
var ErrSessionExpired = errors.New("session expired")

var errNoRefreshToken = errors.New("no refresh token stored")

// ExpiredFunc is notified when the executor ends the session
type ExpiredFunc func(cause error)

type quietExpiryKey struct{}

// WithoutExpiryNotice returns a context under which ending the session does
// not notify the ExpiredFunc. The session is still cleared and
// ErrSessionExpired is still returned.
func WithoutExpiryNotice(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietExpiryKey{}, true)
}

type state int

const (
	stateIssuing state = iota
	stateRenewing
	stateTerminated
)

// Executor issues requests with the stored credentials
type Executor struct {
	store       credentials.Store
	renewer     renewal.Renewer
	httpClient  *http.Client
	log         zerolog.Logger
	onExpired   ExpiredFunc
	metrics     *Metrics
	maxRenewals int
	coalesce    bool

	group singleflight.Group
}

// Option configures an Executor
type Option func(*Executor) error

// WithHTTPClient sets the client used for backend calls
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		e.httpClient = client
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) error {
		e.log = log
		return nil
	}
}

// WithOnSessionExpired sets the callback fired when the session ends
func WithOnSessionExpired(fn ExpiredFunc) Option {
	return func(e *Executor) error {
		e.onExpired = fn
		return nil
	}
}

// WithRegisterer registers the executor metrics on reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Executor) error {
		metrics, err := NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("failed to register session metrics: %w", err)
		}
		e.metrics = metrics
		return nil
	}
}

// WithMaxRenewals lowers the renewal ceiling. Values outside 0..MaxRenewals are rejected.
func WithMaxRenewals(n int) Option {
	return func(e *Executor) error {
		if n < 0 || n > MaxRenewals {
			return fmt.Errorf("max renewals must be between 0 and %d, got %d", MaxRenewals, n)
		}
		e.maxRenewals = n
		return nil
	}
}

// WithoutCoalescing lets concurrent calls renew independently. With a
// backend that rotates refresh tokens this ends the session on the second
// renewal; it exists to exercise that behaviour.
func WithoutCoalescing() Option {
	return func(e *Executor) error {
		e.coalesce = false
		return nil
	}
}

// NewExecutor creates an executor backed by store and renewer
func NewExecutor(store credentials.Store, renewer renewal.Renewer, opts ...Option) (*Executor, error) {
	if store == nil {
		return nil, errors.New("credential store cannot be nil")
	}
	if renewer == nil {
		return nil, errors.New("renewer cannot be nil")
	}

	e := &Executor{
		store:       store,
		renewer:     renewer,
		httpClient:  utils.NewDefaultHTTPClient(),
		log:         zerolog.Nop(),
		maxRenewals: MaxRenewals,
		coalesce:    true,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.metrics == nil {
		e.metrics, _ = NewMetrics(nil)
	}
	return e, nil
}

// Execute issues req with the stored access token. Responses other than 401
// are returned as received and the caller must close their body. Transport
// errors are returned unchanged. When the session cannot be renewed the
// store is cleared, the expiry callback fires and the returned error
// matches ErrSessionExpired.
func (e *Executor) Execute(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	requestID := uuid.NewString()
	log := e.log.With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("url", req.URL).
		Logger()
	e.metrics.Requests.Inc()

	access, err := e.storedAccessToken()
	if err != nil {
		return nil, err
	}

	var (
		current  = stateIssuing
		renewals int
		reason   string
		cause    error
	)

	for {
		switch current {
		case stateIssuing:
			log.Debug().Int("renewals", renewals).Bool("authenticated", access != "").Msg("issuing request")

			httpReq, err := req.build(ctx, access, requestID)
			if err != nil {
				return nil, err
			}
			resp, err := e.httpClient.Do(httpReq)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusUnauthorized {
				return resp, nil
			}

			_ = utils.DrainAndClose(resp)
			log.Debug().Int("renewals", renewals).Msg("access token rejected")
			current = stateRenewing

		case stateRenewing:
			if renewals >= e.maxRenewals {
				reason = reasonExhausted
				cause = fmt.Errorf("access token still rejected after %d renewals", renewals)
				current = stateTerminated
				continue
			}

			next, err := e.renew(ctx, log, access)
			switch {
			case err == nil:
				renewals++
				access = next
				current = stateIssuing

			case errors.Is(err, errNoRefreshToken), errors.Is(err, credentials.ErrNoCredentials):
				reason = reasonNoRefreshToken
				if !errors.Is(err, errNoRefreshToken) {
					reason = reasonCleared
				}
				cause = err
				current = stateTerminated

			case errors.Is(err, renewal.ErrRenewalRejected):
				reason = reasonRejected
				cause = err
				current = stateTerminated

			default:
				log.Debug().Err(err).Msg("renewal did not complete")
				return nil, err
			}

		case stateTerminated:
			return nil, e.terminate(ctx, log, reason, cause)
		}
	}
}

// storedAccessToken returns the stored access token, or "" when signed out
func (e *Executor) storedAccessToken() (string, error) {
	pair, err := e.store.Read()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// renew returns an access token to retry with after rejected was refused.
// When the store already holds a different token, another call renewed in
// the meantime and that token is used as is.
func (e *Executor) renew(ctx context.Context, log zerolog.Logger, rejected string) (string, error) {
	pair, err := e.store.Read()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return "", errNoRefreshToken
	}
	if err != nil {
		return "", err
	}
	if pair.AccessToken != rejected {
		e.metrics.Coalesced.Inc()
		log.Debug().Msg("using access token renewed by another call")
		return pair.AccessToken, nil
	}

	if !e.coalesce {
		return e.renewAndPersist(ctx, log, pair.RefreshToken)
	}

	var renewedHere bool
	ch := e.group.DoChan(pair.RefreshToken, func() (interface{}, error) {
		// A renewal that settled between our read and joining the group
		// has already stored a fresh token.
		current, err := e.store.Read()
		if err != nil {
			return "", err
		}
		if current.AccessToken != rejected {
			return current.AccessToken, nil
		}
		renewedHere = true
		return e.renewAndPersist(context.WithoutCancel(ctx), log, current.RefreshToken)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if !renewedHere {
			e.metrics.Coalesced.Inc()
			log.Debug().Msg("using access token renewed by another call")
		}
		return res.Val.(string), nil
	}
}

// renewAndPersist exchanges refreshToken and stores the result
func (e *Executor) renewAndPersist(ctx context.Context, log zerolog.Logger, refreshToken string) (string, error) {
	log.Debug().Msg("renewing session")

	token, err := e.renewer.Renew(ctx, refreshToken)
	if err != nil {
		result := resultFailed
		if errors.Is(err, renewal.ErrRenewalRejected) {
			result = resultRejected
		}
		e.metrics.Renewals.WithLabelValues(result).Inc()
		return "", err
	}
	e.metrics.Renewals.WithLabelValues(resultSuccess).Inc()

	// writes are conditional on refreshToken so a session cleared or
	// replaced while the exchange was in flight is left alone
	rotated := token.RefreshToken != "" && token.RefreshToken != refreshToken
	if rotated {
		pair := credentials.CredentialPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
		err = e.store.WriteRenewed(refreshToken, pair)
	} else {
		err = e.store.WriteAccess(refreshToken, token.AccessToken)
	}

	if errors.Is(err, credentials.ErrSessionChanged) {
		// a new sign-in replaced the session this renewal belonged to
		current, err := e.store.Read()
		if err != nil {
			return "", err
		}
		log.Debug().Msg("session replaced during renewal, using the stored access token")
		return current.AccessToken, nil
	}
	if err != nil {
		return "", err
	}

	log.Debug().Bool("rotated", rotated).Msg("session renewed")
	return token.AccessToken, nil
}

// terminate ends the session and returns the error handed to the caller
func (e *Executor) terminate(ctx context.Context, log zerolog.Logger, reason string, cause error) error {
	e.metrics.Terminations.WithLabelValues(reason).Inc()
	log.Warn().Str("reason", reason).Err(cause).Msg("session expired")

	if err := e.store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear credentials")
	}

	sessionErr := fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	if quiet, _ := ctx.Value(quietExpiryKey{}).(bool); e.onExpired != nil && !quiet {
		e.onExpired(sessionErr)
	}
	return sessionErr
}
