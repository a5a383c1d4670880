package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mood2food/storefront-client/pkg/credentials"
)

// GetProfile fetches the signed-in user's profile and refreshes the cached snapshot
func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/me", nil, nil, &user, "failed to get profile"); err != nil {
		return nil, err
	}
	c.cacheProfile(&user)
	return &user, nil
}

// UpdateProfile changes the display name. The cached snapshot follows the
// profile the backend returns.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	update.Name = strings.TrimSpace(update.Name)
	if update.Name == "" {
		return nil, errors.New("name is required")
	}

	var user User
	if err := c.call(ctx, http.MethodPatch, "/me", nil, update, &user, "failed to update profile"); err != nil {
		return nil, err
	}
	c.cacheProfile(&user)
	c.log.Debug().Str("user_id", user.ID).Msg("profile updated")
	return &user, nil
}

// cacheProfile stores user as the session snapshot. A session that ended in
// the meantime is left empty.
func (c *Client) cacheProfile(user *User) {
	err := c.store.WriteSnapshot(&credentials.SessionSnapshot{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		Role:        user.Role,
	})
	if err != nil && !errors.Is(err, credentials.ErrNoCredentials) {
		c.log.Warn().Err(err).Msg("failed to cache profile")
	}
}
