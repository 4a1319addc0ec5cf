package storage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mergealert/internal/storage"
	"mergealert/internal/storage/memory"
	"mergealert/internal/storage/storagetest"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealedContract(t *testing.T) {
	key, err := storage.ParseKey(testKeyHex)
	require.NoError(t, err)
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := storage.Sealed(memory.New(), key)
		require.NoError(t, err)
		return s
	})
}

func TestSealedValuesAreEncrypted(t *testing.T) {
	ctx := context.Background()
	key, err := storage.ParseKey(testKeyHex)
	require.NoError(t, err)
	inner := memory.New()
	s, err := storage.Sealed(inner, key)
	require.NoError(t, err)

	require.NoError(t, s.SetMany(ctx, map[string]string{"token": "secret-token"}))
	raw, ok, err := inner.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(raw, "sealed:v1:"))
	require.NotContains(t, raw, "secret-token")
}

func TestSealedRejectsSwappedValues(t *testing.T) {
	ctx := context.Background()
	key, err := storage.ParseKey(testKeyHex)
	require.NoError(t, err)
	inner := memory.New()
	s, err := storage.Sealed(inner, key)
	require.NoError(t, err)

	require.NoError(t, s.SetMany(ctx, map[string]string{"token": "a"}))
	raw, _, err := inner.Get(ctx, "token")
	require.NoError(t, err)
	require.NoError(t, inner.SetMany(ctx, map[string]string{"refreshToken": raw}))

	_, _, err = s.Get(ctx, "refreshToken")
	require.Error(t, err)
}

func TestParseKey(t *testing.T) {
	_, err := storage.ParseKey("abcd")
	require.ErrorIs(t, err, storage.ErrInvalidKey)
	_, err = storage.ParseKey("zz")
	require.ErrorIs(t, err, storage.ErrInvalidKey)
	key, err := storage.ParseKey(" " + testKeyHex + "\n")
	require.NoError(t, err)
	require.Len(t, key, 32)
}
