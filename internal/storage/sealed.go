package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "sealed:v1:"

var ErrInvalidKey = errors.New("encryption key must be 32 bytes hex encoded")

// SealedStore encrypts values at rest with XChaCha20-Poly1305. Keys are stored
// in the clear; each value carries its own random nonce.
type SealedStore struct {
	inner Store
	key   []byte
}

// ParseKey decodes a hex encoded 32 byte key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// Sealed wraps inner so that every value is encrypted with key.
func Sealed(inner Store, key []byte) (*SealedStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &SealedStore{inner: inner, key: k}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, fmt.Errorf("open %q: %w", key, err)
	}
	return plain, true, nil
}

func (s *SealedStore) SetMany(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, v := range values {
		ct, err := s.seal(k, v)
		if err != nil {
			return fmt.Errorf("seal %q: %w", k, err)
		}
		sealed[k] = ct
	}
	return s.inner.SetMany(ctx, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStore) Close() error {
	return s.inner.Close()
}

// The key name is bound as additional data so values cannot be swapped between keys.
func (s *SealedStore) seal(name, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(name, value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return "", errors.New("value is not sealed")
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
