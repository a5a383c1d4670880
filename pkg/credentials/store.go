// Package credentials persists the session credentials of a storefront user:
// an access token, a refresh token and an advisory profile snapshot.
//
// The access and refresh tokens are stored and removed together. A Store
// never holds one without the other, and a snapshot is only reported while
// both tokens are present.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNoCredentials is returned when no credential pair is stored
var ErrNoCredentials = errors.New("no credentials stored")

// ErrSessionChanged is returned by the conditional writes when the stored
// pair no longer carries the refresh token they were given
var ErrSessionChanged = errors.New("stored session has changed")

// CredentialPair holds the opaque access and refresh tokens
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionSnapshot caches the signed-in user's profile for display.
// It is advisory: the backend may still reject the access token.
type SessionSnapshot struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Store is the contract the request executor and login flows depend on
type Store interface {
	// Read returns the stored pair or ErrNoCredentials
	Read() (*CredentialPair, error)

	// Snapshot returns the cached profile, or ErrNoCredentials when the pair is absent
	Snapshot() (*SessionSnapshot, error)

	// Write replaces pair and snapshot together. A nil snapshot removes the cached one.
	Write(pair CredentialPair, snapshot *SessionSnapshot) error

	// WriteAccess replaces the access token of the session identified by
	// expectedRefresh. It fails with ErrNoCredentials when the store is empty
	// and with ErrSessionChanged when another session is stored.
	WriteAccess(expectedRefresh, token string) error

	// WriteRenewed replaces the pair of the session identified by
	// expectedRefresh and keeps its snapshot. It fails like WriteAccess.
	WriteRenewed(expectedRefresh string, pair CredentialPair) error

	// WriteSnapshot replaces the cached profile of the stored session.
	// It fails with ErrNoCredentials when no pair is stored.
	WriteSnapshot(snapshot *SessionSnapshot) error

	// Clear removes the pair and the snapshot. Clearing an empty store is a no-op.
	Clear() error

	// Close releases the backend
	Close() error
}

// KVStore implements Store on top of a Backend
type KVStore struct {
	backend   Backend
	encrypter Encrypter
	// mu makes the read-check-write of the conditional writes atomic with
	// respect to Write and Clear
	mu sync.Mutex
}

var _ Store = (*KVStore)(nil)

// NewKVStore wraps backend. A nil encrypter stores secrets as plaintext.
func NewKVStore(backend Backend, encrypter Encrypter) *KVStore {
	if encrypter == nil {
		encrypter = NoopEncrypter{}
	}
	return &KVStore{
		backend:   backend,
		encrypter: encrypter,
	}
}

// Read returns the stored pair
func (s *KVStore) Read() (*CredentialPair, error) {
	values, err := s.backend.Load(KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return s.pairFrom(values)
}

// Snapshot returns the cached profile while a pair is stored
func (s *KVStore) Snapshot() (*SessionSnapshot, error) {
	values, err := s.backend.Load(allKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	if _, err := s.pairFrom(values); err != nil {
		return nil, err
	}

	raw, ok := values[KeyUser]
	if !ok || raw == "" {
		return nil, nil
	}

	var snapshot SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &snapshot, nil
}

// Write stores pair and snapshot in one backend operation
func (s *KVStore) Write(pair CredentialPair, snapshot *SessionSnapshot) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("credential pair must carry both an access and a refresh token")
	}

	set := make(map[string]string, len(allKeys))
	var remove []string

	access, err := sealValue(s.encrypter, KeyAccessToken, pair.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := sealValue(s.encrypter, KeyRefreshToken, pair.RefreshToken)
	if err != nil {
		return err
	}
	set[KeyAccessToken] = access
	set[KeyRefreshToken] = refresh

	if snapshot != nil {
		encoded, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode user snapshot: %w", err)
		}
		set[KeyUser] = string(encoded)
	} else {
		remove = append(remove, KeyUser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Apply(set, remove); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// WriteAccess replaces the access token while expectedRefresh is still the
// stored refresh token, so a late renewal cannot resurrect a cleared session
// or write into a newer one.
func (s *KVStore) WriteAccess(expectedRefresh, token string) error {
	if token == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	access, err := sealValue(s.encrypter, KeyAccessToken, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefreshLocked(expectedRefresh); err != nil {
		return err
	}
	if err := s.backend.Apply(map[string]string{KeyAccessToken: access}, nil); err != nil {
		return fmt.Errorf("failed to write access token: %w", err)
	}
	return nil
}

// WriteRenewed stores a rotated pair under the same condition as WriteAccess.
// The cached snapshot is left in place.
func (s *KVStore) WriteRenewed(expectedRefresh string, pair CredentialPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("credential pair must carry both an access and a refresh token")
	}

	access, err := sealValue(s.encrypter, KeyAccessToken, pair.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := sealValue(s.encrypter, KeyRefreshToken, pair.RefreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefreshLocked(expectedRefresh); err != nil {
		return err
	}
	set := map[string]string{KeyAccessToken: access, KeyRefreshToken: refresh}
	if err := s.backend.Apply(set, nil); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// WriteSnapshot replaces the cached profile. A nil snapshot removes it.
func (s *KVStore) WriteSnapshot(snapshot *SessionSnapshot) error {
	var (
		set    map[string]string
		remove []string
	)
	if snapshot != nil {
		encoded, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode user snapshot: %w", err)
		}
		set = map[string]string{KeyUser: string(encoded)}
	} else {
		remove = []string{KeyUser}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.backend.Load(KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	if values[KeyAccessToken] == "" || values[KeyRefreshToken] == "" {
		return ErrNoCredentials
	}
	if err := s.backend.Apply(set, remove); err != nil {
		return fmt.Errorf("failed to write user snapshot: %w", err)
	}
	return nil
}

// checkRefreshLocked reports whether expectedRefresh is the stored refresh
// token. s.mu must be held.
func (s *KVStore) checkRefreshLocked(expectedRefresh string) error {
	values, err := s.backend.Load(KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	pair, err := s.pairFrom(values)
	if err != nil {
		return err
	}
	if pair.RefreshToken != expectedRefresh {
		return ErrSessionChanged
	}
	return nil
}

// Clear removes every credential key
func (s *KVStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Apply(nil, allKeys); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close releases the backend
func (s *KVStore) Close() error {
	return s.backend.Close()
}

// pairFrom builds a pair from raw backend values. A lone token is treated
// as no session at all.
func (s *KVStore) pairFrom(values map[string]string) (*CredentialPair, error) {
	rawAccess, rawRefresh := values[KeyAccessToken], values[KeyRefreshToken]
	if rawAccess == "" || rawRefresh == "" {
		return nil, ErrNoCredentials
	}

	access, err := openValue(s.encrypter, KeyAccessToken, rawAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := openValue(s.encrypter, KeyRefreshToken, rawRefresh)
	if err != nil {
		return nil, err
	}

	return &CredentialPair{AccessToken: access, RefreshToken: refresh}, nil
}
