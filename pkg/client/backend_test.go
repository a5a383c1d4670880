package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mood2food/storefront-client/internal/fakebackend"
	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/session"
)

// Tests in this file run the client against the in-memory backend

func newBackendClient(t *testing.T, options fakebackend.Options, opts ...Option) (*fakebackend.Server, *Client, credentials.Store) {
	t.Helper()

	backend, err := fakebackend.New(options, zerolog.Nop())
	require.NoError(t, err)
	backend.AddUser("diner@example.com", "secret", "Dee")

	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	store := credentials.NewKVStore(credentials.NewMemoryBackend(), nil)
	c, err := NewClient(server.URL, store, opts...)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "diner@example.com", "secret")
	require.NoError(t, err)
	return backend, c, store
}

func TestBackend_OrderFlow(t *testing.T) {
	_, c, _ := newBackendClient(t, fakebackend.DefaultOptions())
	ctx := context.Background()

	meals, err := c.ListMeals(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, meals)

	cart, err := c.AddToCart(ctx, meals[0].ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	placed, err := c.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakebackend.StatusPending, placed.Status)
	assert.Equal(t, cart.CartTotal, placed.Total)

	orders, err := c.GetMyOrders(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.OrderID, orders[0].ID)

	details, err := c.GetOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Len(t, details.Items, 1)

	cancelled, err := c.CancelOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, fakebackend.StatusCancelled, cancelled.Status)

	timeline, err := c.GetOrderStatus(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, fakebackend.StatusCancelled, timeline.Current())

	_, err = c.GetOrder(ctx, "999")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "order not found", apiErr.Detail)
}

func TestBackend_RenewsExpiredAccessToken(t *testing.T) {
	backend, c, store := newBackendClient(t, fakebackend.DefaultOptions())
	ctx := context.Background()

	before, err := store.Read()
	require.NoError(t, err)

	backend.ExpireAccessTokens()

	_, err = c.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.RefreshCalls())
	assert.Equal(t, int64(1), backend.AuthFailures())

	after, err := store.Read()
	require.NoError(t, err)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.Equal(t, before.RefreshToken, after.RefreshToken)

	user, err := c.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "diner@example.com", user.Email)
}

func TestBackend_RotatingRefreshTokens(t *testing.T) {
	backend, c, store := newBackendClient(t, fakebackend.Options{RotateRefreshTokens: true})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		backend.ExpireAccessTokens()
		_, err := c.GetCart(ctx)
		require.NoError(t, err)

		pair, err := store.Read()
		require.NoError(t, err)
		assert.False(t, seen[pair.RefreshToken], "refresh token must rotate")
		seen[pair.RefreshToken] = true
	}
	assert.Equal(t, int64(3), backend.RefreshCalls())
}

func TestBackend_RejectedRefreshEndsSession(t *testing.T) {
	var expired atomic.Int32
	backend, c, store := newBackendClient(t, fakebackend.DefaultOptions(),
		WithSessionOptions(session.WithOnSessionExpired(func(error) { expired.Add(1) })))

	backend.SetRejectRefresh(true)
	backend.ExpireAccessTokens()

	_, err := c.GetCart(context.Background())
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, int32(1), expired.Load())

	_, err = store.Read()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)

	// public routes keep working once signed out
	_, err = c.ListMeals(context.Background())
	assert.NoError(t, err)
}

func TestBackend_AlwaysUnauthorizedIsBounded(t *testing.T) {
	backend, c, store := newBackendClient(t, fakebackend.Options{AlwaysUnauthorized: true})

	_, err := c.GetMyOrders(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, int64(session.MaxRenewals), backend.RefreshCalls())
	assert.Equal(t, int64(session.MaxRenewals+1), backend.AuthFailures())

	_, err = store.Read()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestBackend_ConcurrentCallsShareOneRenewal(t *testing.T) {
	backend, c, _ := newBackendClient(t, fakebackend.Options{RotateRefreshTokens: true})
	backend.ExpireAccessTokens()

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetCart(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), backend.RefreshCalls())
}

func TestBackend_LogoutRevokesRefreshToken(t *testing.T) {
	backend, c, store := newBackendClient(t, fakebackend.DefaultOptions())
	ctx := context.Background()

	pair, err := store.Read()
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	_, err = store.Read()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)

	// a stale copy of the old credentials cannot be renewed
	require.NoError(t, store.Write(*pair, nil))
	backend.ExpireAccessTokens()
	_, err = c.GetCart(ctx)
	assert.True(t, IsSessionExpired(err))
}

func TestBackend_Profile(t *testing.T) {
	backend, c, _ := newBackendClient(t, fakebackend.DefaultOptions())
	ctx := context.Background()

	profile, err := c.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "diner@example.com", profile.Email)
	assert.Equal(t, "Dee", profile.Name)
	assert.Equal(t, "customer", profile.Role)

	// the rename survives an access token renewal
	backend.ExpireAccessTokens()
	updated, err := c.UpdateProfile(ctx, ProfileUpdate{Name: "Dee Dee"})
	require.NoError(t, err)
	assert.Equal(t, "Dee Dee", updated.Name)
	assert.Equal(t, int64(1), backend.RefreshCalls())

	cached, err := c.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, updated, cached)

	profile, err = c.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dee Dee", profile.Name)

	_, err = c.Login(ctx, "diner@example.com", "secret")
	require.NoError(t, err)
	cached, err = c.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "Dee Dee", cached.Name, "login reports the new name")
}
