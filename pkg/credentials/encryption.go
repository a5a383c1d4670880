package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultEncryptionKeyEnv names the env var holding a base64 encoded AES-256 key
const DefaultEncryptionKeyEnv = "STOREFRONT_ENCRYPTION_KEY"

const encryptedPrefix = "ENC:"

// ErrNoEncryptionKey is returned when an encrypted value is read without a key
var ErrNoEncryptionKey = errors.New("credential is encrypted but no encryption key is configured")

// Encrypter protects secret values before they reach a Backend
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Algorithm() string
}

// AESEncrypter encrypts with AES-256-GCM, prefixing the nonce to the ciphertext
type AESEncrypter struct {
	aead        cipher.AEAD
	fingerprint string
}

// NewAESEncrypter creates an encrypter from a 32 byte key
func NewAESEncrypter(key []byte) (*AESEncrypter, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	hash := sha256.Sum256(key)
	return &AESEncrypter{
		aead:        gcm,
		fingerprint: fmt.Sprintf("sha256:%x", hash[:8]),
	}, nil
}

// Encrypt seals plaintext and returns it base64 encoded
func (e *AESEncrypter) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (e *AESEncrypter) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes, expected at least %d bytes", len(raw), nonceSize)
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Algorithm returns "aes-256-gcm"
func (e *AESEncrypter) Algorithm() string {
	return "aes-256-gcm"
}

// KeyID returns a short fingerprint of the key
func (e *AESEncrypter) KeyID() string {
	return e.fingerprint
}

// NoopEncrypter stores values as plaintext
type NoopEncrypter struct{}

// Encrypt returns plaintext unchanged
func (NoopEncrypter) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt returns ciphertext unchanged
func (NoopEncrypter) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// Algorithm returns "noop"
func (NoopEncrypter) Algorithm() string { return "noop" }

// NewEncrypter picks an encrypter: key file, then env var, then noop.
func NewEncrypter(keyFile, keyEnv string) (Encrypter, error) {
	if keyEnv == "" {
		keyEnv = DefaultEncryptionKeyEnv
	}

	if keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read encryption key from file: %w", err)
		}
		return NewAESEncrypter(key)
	}

	if keyB64 := strings.TrimSpace(os.Getenv(keyEnv)); keyB64 != "" {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key from %s: %w", keyEnv, err)
		}
		return NewAESEncrypter(key)
	}

	return NoopEncrypter{}, nil
}

// isSecretKey reports whether values stored under key must be encrypted
func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "_token")
}

func sealValue(enc Encrypter, key, value string) (string, error) {
	if !isSecretKey(key) {
		return value, nil
	}
	if _, ok := enc.(NoopEncrypter); ok {
		return value, nil
	}
	sealed, err := enc.Encrypt(value)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return encryptedPrefix + sealed, nil
}

func openValue(enc Encrypter, key, value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	if _, ok := enc.(NoopEncrypter); ok {
		return "", fmt.Errorf("%s: %w", key, ErrNoEncryptionKey)
	}
	plaintext, err := enc.Decrypt(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plaintext, nil
}
