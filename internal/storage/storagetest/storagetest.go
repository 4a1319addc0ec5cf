// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mergealert/internal/storage"
)

// Run exercises the storage.Store contract against a fresh store from open.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := open(t)
		v, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("set many then get", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetMany(ctx, map[string]string{"token": "abc", "refreshToken": "def"}))

		v, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "abc", v)

		v, ok, err = s.Get(ctx, "refreshToken")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "def", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetMany(ctx, map[string]string{"token": "one"}))
		require.NoError(t, s.SetMany(ctx, map[string]string{"token": "two"}))
		v, _, err := s.Get(ctx, "token")
		require.NoError(t, err)
		require.Equal(t, "two", v)
	})

	t.Run("delete removes every key", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetMany(ctx, map[string]string{"token": "abc", "refreshToken": "def", "lastActivityAt": "1"}))
		require.NoError(t, s.Delete(ctx, "token", "refreshToken"))

		_, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		require.False(t, ok)
		_, ok, err = s.Get(ctx, "refreshToken")
		require.NoError(t, err)
		require.False(t, ok)
		_, ok, err = s.Get(ctx, "lastActivityAt")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("delete missing key", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Delete(ctx, "nope"))
	})

	t.Run("empty key rejected", func(t *testing.T) {
		s := open(t)
		require.ErrorIs(t, s.SetMany(ctx, map[string]string{"": "x"}), storage.ErrKeyInvalid)
	})
}
