package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/session"
)

// Login signs in and stores the returned credentials with the user profile
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	var resp LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Email: email, Password: password}, &resp, "login failed"); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, errors.New("login response carried no credentials")
	}

	pair := credentials.CredentialPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	snapshot := &credentials.SessionSnapshot{
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		DisplayName: resp.User.Name,
		Role:        resp.User.Role,
	}
	if err := c.store.Write(pair, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	c.log.Debug().Str("user_id", resp.User.ID).Msg("signed in")
	return &resp.User, nil
}

// Signup creates an account and signs in with it
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	var created User
	if err := c.call(ctx, http.MethodPost, "/auth/signup", nil, req, &created, "signup failed"); err != nil {
		return nil, err
	}
	c.log.Debug().Str("user_id", created.ID).Msg("account created")

	return c.Login(ctx, req.Email, req.Password)
}

// Logout tells the backend the session is over and always forgets the
// local credentials, even when the backend cannot be reached. A session that
// turns out to be expired already is not reported as one.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.store.Read(); err == nil {
		quiet := session.WithoutExpiryNotice(ctx)
		if err := c.call(quiet, http.MethodPost, "/auth/logout", nil, nil, nil, "logout failed"); err != nil {
			c.log.Debug().Err(err).Msg("backend logout failed")
		}
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// DeleteAccount deletes the signed-in account. Credentials are cleared
// only once the backend confirms.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.call(ctx, http.MethodDelete, "/auth/me", nil, nil, nil, "failed to delete account"); err != nil {
		return err
	}
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// CurrentUser returns the cached profile of the signed-in user without
// calling the backend. It returns credentials.ErrNoCredentials when signed out.
func (c *Client) CurrentUser() (*User, error) {
	snapshot, err := c.store.Snapshot()
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return &User{}, nil
	}
	return &User{
		ID:    snapshot.UserID,
		Email: snapshot.Email,
		Name:  snapshot.DisplayName,
		Role:  snapshot.Role,
	}, nil
}
