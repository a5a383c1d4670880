package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/session"
)

func loginHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail": "invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"access_token": "good-A",
			"token_type": "bearer",
			"refresh_token": "valid-R",
			"user": {"id": "u1", "email": "` + req.Email + `", "name": "Dana", "role": "customer"}
		}`))
	}
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", loginHandler(t))
	store := newMemoryStore(t, "", "")
	c := newTestClient(t, mux, store)

	user, err := c.Login(context.Background(), "dana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Email: "dana@example.com", Name: "Dana", Role: "customer"}, user)

	pair, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, &credentials.CredentialPair{AccessToken: "good-A", RefreshToken: "valid-R"}, pair)

	current, err := c.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, user, current)
}

func TestClient_LoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", loginHandler(t))
	store := newMemoryStore(t, "", "")
	c := newTestClient(t, mux, store)

	_, err := c.Login(context.Background(), "dana@example.com", "wrong")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Detail)

	_, err = store.Read()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)

	_, err = c.Login(context.Background(), "", "")
	assert.Error(t, err)
}

func TestClient_LoginWithoutTokens(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "good-A", "user": {"id": "u1"}}`))
	})
	store := newMemoryStore(t, "", "")
	c := newTestClient(t, handler, store)

	_, err := c.Login(context.Background(), "dana@example.com", "secret")
	assert.Error(t, err)

	_, err = store.Read()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestClient_Signup(t *testing.T) {
	var mu sync.Mutex
	var steps []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		steps = append(steps, step)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		record("signup")
		var req SignupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Dana", req.Name)
		_, _ = w.Write([]byte(`{"id": "u1", "email": "dana@example.com", "name": "Dana"}`))
	})
	login := loginHandler(t)
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		record("login")
		login(w, r)
	})
	store := newMemoryStore(t, "", "")
	c := newTestClient(t, mux, store)

	user, err := c.Signup(context.Background(), SignupRequest{Email: "dana@example.com", Password: "secret", Name: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	mu.Lock()
	assert.Equal(t, []string{"signup", "login"}, steps)
	mu.Unlock()

	_, err = store.Read()
	assert.NoError(t, err)
}

func TestClient_SignupRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": {"msg": "User already registered"}}`))
	})
	c := newTestClient(t, handler, newMemoryStore(t, "", ""))

	_, err := c.Signup(context.Background(), SignupRequest{Email: "dana@example.com", Password: "secret"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Detail, "User already registered")
}

func TestClient_Logout(t *testing.T) {
	tests := []struct {
		name          string
		signedIn      bool
		backendStatus int
		wantCalls     int32
	}{
		{name: "backend accepts", signedIn: true, backendStatus: http.StatusOK, wantCalls: 1},
		{name: "backend fails", signedIn: true, backendStatus: http.StatusInternalServerError, wantCalls: 1},
		{name: "session already revoked", signedIn: true, backendStatus: http.StatusUnauthorized, wantCalls: 1},
		{name: "already signed out", signedIn: false, backendStatus: http.StatusOK, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.backendStatus)
			})
			mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail": "Invalid Refresh Token"}`))
			})

			store := newMemoryStore(t, "", "")
			if tt.signedIn {
				store = newMemoryStore(t, "good-A", "valid-R")
			}
			var notified atomic.Int32
			c := newTestClient(t, mux, store,
				WithSessionOptions(session.WithOnSessionExpired(func(error) { notified.Add(1) })))

			require.NoError(t, c.Logout(context.Background()))
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Zero(t, notified.Load(), "signing out is not a session expiry")

			_, err := store.Read()
			assert.ErrorIs(t, err, credentials.ErrNoCredentials)
		})
	}
}

func TestClient_DeleteAccount(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/auth/me", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})
		store := newMemoryStore(t, "good-A", "valid-R")
		c := newTestClient(t, handler, store)

		require.NoError(t, c.DeleteAccount(context.Background()))
		_, err := store.Read()
		assert.ErrorIs(t, err, credentials.ErrNoCredentials)
	})

	t.Run("refused", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		store := newMemoryStore(t, "good-A", "valid-R")
		c := newTestClient(t, handler, store)

		err := c.DeleteAccount(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "failed to delete account", apiErr.Detail)

		_, err = store.Read()
		assert.NoError(t, err, "credentials stay until the backend confirms")
	})
}

func TestClient_CurrentUser(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), newMemoryStore(t, "", ""))
	_, err := c.CurrentUser()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)

	c = newTestClient(t, http.NotFoundHandler(), newMemoryStore(t, "good-A", "valid-R"))
	user, err := c.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, &User{}, user)
}

func TestClient_UpdateProfile(t *testing.T) {
	t.Run("refreshes the cached snapshot", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id": "u1", "email": "ana@example.com", "name": "Ana Lima", "role": "customer"}`))
		})
		store := newMemoryStore(t, "good-A", "valid-R")
		c := newTestClient(t, handler, store)

		_, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "Ana Lima"})
		require.NoError(t, err)

		cached, err := c.CurrentUser()
		require.NoError(t, err)
		assert.Equal(t, &User{ID: "u1", Email: "ana@example.com", Name: "Ana Lima", Role: "customer"}, cached)

		pair, err := store.Read()
		require.NoError(t, err)
		assert.Equal(t, &credentials.CredentialPair{AccessToken: "good-A", RefreshToken: "valid-R"}, pair)
	})

	t.Run("empty name is refused locally", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})
		c := newTestClient(t, handler, newMemoryStore(t, "good-A", "valid-R"))

		_, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "  "})
		assert.EqualError(t, err, "name is required")
		assert.Zero(t, calls.Load())
	})

	t.Run("backend refusal leaves the snapshot alone", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail": "name required"}`))
		})
		store := newMemoryStore(t, "good-A", "valid-R")
		require.NoError(t, store.WriteSnapshot(&credentials.SessionSnapshot{UserID: "u1", DisplayName: "Ana"}))
		c := newTestClient(t, handler, store)

		_, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "Ana Lima"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "name required", apiErr.Detail)

		cached, err := c.CurrentUser()
		require.NoError(t, err)
		assert.Equal(t, "Ana", cached.Name)
	})
}
