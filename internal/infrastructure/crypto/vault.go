// Package crypto encrypts aggregator access tokens at rest.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"finlink/internal/domain/syncerr"
)

// ErrInvalidKey is returned when the configured master key is too short
// to derive a safe cipher key from.
var ErrInvalidKey = errors.New("encryption key must be at least 32 bytes")

// keyInfo binds derived keys to this vault so the same master secret
// used elsewhere cannot decrypt our tokens.
const keyInfo = "finlink/token-vault/v1"

// Vault seals and opens access tokens with XChaCha20-Poly1305. The
// cipher key is derived from the configured master key via HKDF-SHA256,
// so rotating the master key invalidates all stored ciphertexts at once.
type Vault struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewVault derives the cipher key from masterKey and returns a ready vault.
func NewVault(masterKey string) (*Vault, error) {
	if len(masterKey) < chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}

	kdf := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(keyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
// Empty input is rejected: a blank access token is always a caller bug.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", syncerr.NewValidation("cannot encrypt empty value")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", &syncerr.CryptoError{Op: "encrypt", Err: err}
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed input, truncated ciphertext, and
// ciphertext produced under a different key all surface as CryptoError.
func (v *Vault) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", syncerr.NewValidation("cannot decrypt empty value")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &syncerr.CryptoError{Op: "decrypt", Err: err}
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", &syncerr.CryptoError{Op: "decrypt", Err: errors.New("ciphertext shorter than nonce")}
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &syncerr.CryptoError{Op: "decrypt", Err: err}
	}
	return string(plaintext), nil
}
