package fakebackend

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenIssuer signs HS256 access tokens. Bumping the generation makes every
// earlier token invalid.
type tokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	generation atomic.Int64
}

func newTokenIssuer(secret []byte, ttl time.Duration) (*tokenIssuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
	}
	return &tokenIssuer{secret: secret, ttl: ttl}, nil
}

func (t *tokenIssuer) issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
		"gen": t.generation.Load(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *tokenIssuer) verify(raw string) (string, error) {
	token, err := jwt.Parse(raw, t.key, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims")
	}
	gen, _ := claims["gen"].(float64)
	if int64(gen) != t.generation.Load() {
		return "", errors.New("token has been revoked")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

func (t *tokenIssuer) key(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}

func (t *tokenIssuer) expireAll() {
	t.generation.Add(1)
}
