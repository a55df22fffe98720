package brokerage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenStore(t *testing.T) *tokenStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	return newTokenStore(path, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestTokenStore_Load_AbsentReturnsNil(t *testing.T) {
	store := testTokenStore(t)
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestTokenStore_SaveAndLoad_RoundTrips(t *testing.T) {
	store := testTokenStore(t)
	want := domain.TokenCache{
		AccessToken: "a-token-that-is-at-least-one-hundred-characters-long-000000000000000000000000000000000000000000",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CachedAt:    time.Now(),
		PID:         1234,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.PID, got.PID)
}

func TestTokenStore_Load_ShortTokenInvalidates(t *testing.T) {
	store := testTokenStore(t)
	require.NoError(t, store.Save(domain.TokenCache{
		AccessToken: "too-short",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestTokenStore_Load_ExpiredInvalidates(t *testing.T) {
	store := testTokenStore(t)
	longEnough := make([]byte, 120)
	for i := range longEnough {
		longEnough[i] = 'x'
	}
	require.NoError(t, store.Save(domain.TokenCache{
		AccessToken: string(longEnough),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}
