// Package fakebackend is an in-memory stand-in for the storefront backend.
// It serves the same routes and error bodies, issues short-lived JWT access
// tokens and opaque refresh tokens, and can be told to misbehave.
package fakebackend

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Options controls token lifetimes and failure injection
type Options struct {
	// Secret signs access tokens. A random secret is used when empty.
	Secret []byte
	// AccessTokenTTL is the lifetime of access tokens
	AccessTokenTTL time.Duration
	// RotateRefreshTokens makes every refresh token single use and returns a
	// new one from /auth/refresh
	RotateRefreshTokens bool
	// RejectRefresh makes /auth/refresh refuse every token
	RejectRefresh bool
	// AlwaysUnauthorized makes every authenticated route answer 401
	AlwaysUnauthorized bool
}

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		AccessTokenTTL: 15 * time.Minute,
	}
}

type user struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     string
}

type refreshGrant struct {
	UserID string
	Used   bool
}

// Server is the fake backend
type Server struct {
	echo    *echo.Echo
	log     zerolog.Logger
	tokens  *tokenIssuer
	options Options

	mu      sync.Mutex
	users   map[string]*user // by email
	grants  map[string]*refreshGrant
	meals   []*meal
	carts   map[string]*cart // by user id
	orders  []*order
	orderID int

	refreshCalls atomic.Int64
	authFailures atomic.Int64
}

// New creates a fake backend with a seeded catalog
func New(options Options, log zerolog.Logger) (*Server, error) {
	if options.AccessTokenTTL <= 0 {
		options.AccessTokenTTL = DefaultOptions().AccessTokenTTL
	}

	tokens, err := newTokenIssuer(options.Secret, options.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		echo:    echo.New(),
		log:     log,
		tokens:  tokens,
		options: options,
		users:   make(map[string]*user),
		grants:  make(map[string]*refreshGrant),
		meals:   seedMeals(),
		carts:   make(map[string]*cart),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug().
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.echo.POST("/auth/login", s.login)
	s.echo.POST("/auth/signup", s.signup)
	s.echo.POST("/auth/refresh", s.refresh)
	s.echo.GET("/catalog/meals", s.listMeals)

	authed := s.echo.Group("", s.requireUser)
	authed.POST("/auth/logout", s.logout)
	authed.DELETE("/auth/me", s.deleteAccount)
	authed.GET("/me", s.getProfile)
	authed.PATCH("/me", s.updateProfile)

	authed.GET("/cart", s.getCart)
	authed.DELETE("/cart", s.clearCart)
	authed.POST("/cart/items", s.addCartItem)
	authed.PATCH("/cart/items/:id", s.updateCartItem)
	authed.DELETE("/cart/items/:id", s.removeCartItem)
	authed.POST("/cart/checkout", s.checkout)

	authed.GET("/orders/mine", s.myOrders)
	authed.GET("/orders/:id", s.getOrder)
	authed.GET("/orders/:id/status", s.orderStatus)
	authed.PATCH("/orders/:id/cancel", s.cancelOrder)
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("fake backend listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// RefreshCalls returns how many times /auth/refresh was called
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// AuthFailures returns how many requests were answered 401
func (s *Server) AuthFailures() int64 {
	return s.authFailures.Load()
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.tokens.expireAll()
}

// SetRejectRefresh switches refresh rejection on or off
func (s *Server) SetRejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options.RejectRefresh = reject
}

// handleError renders errors as {"detail": "..."}
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	} else {
		s.log.Error().Err(err).Msg("request failed")
	}

	if code == http.StatusUnauthorized {
		s.authFailures.Add(1)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"detail": detail})
}

// requireUser rejects requests without a valid bearer token
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.options.AlwaysUnauthorized {
			return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
		}

		header := c.Request().Header.Get("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}

		userID, err := s.tokens.verify(header[len(prefix):])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
		}

		s.mu.Lock()
		u := s.userByID(userID)
		s.mu.Unlock()
		if u == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
		}

		c.Set("user", u)
		return next(c)
	}
}

func currentUser(c echo.Context) *user {
	u, _ := c.Get("user").(*user)
	return u
}

// userByID must be called with mu held
func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}
