// Package storage defines the durable key/value contract behind the token store.
package storage

import (
	"context"
	"errors"
)

var (
	ErrClosed     = errors.New("storage closed")
	ErrKeyInvalid = errors.New("storage key must not be empty")
)

// Store persists string values under fixed key names. Implementations must
// apply SetMany and Delete atomically: either every key changes or none does.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ValidateKeys rejects empty key names.
func ValidateKeys[T any](values map[string]T) error {
	for k := range values {
		if k == "" {
			return ErrKeyInvalid
		}
	}
	return nil
}
