package brokerage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// tokenStore persists domain.TokenCache to a sibling-locked file, the
// cross-process cache the token lifecycle (spec §4.1) reads and writes.
// No dedicated file-locking library appears anywhere in the retrieval
// pack; golang.org/x/sys is already a transitive dependency of every
// pack repo via modernc.org/sqlite and gopsutil, so Flock on its .lock
// sibling is the closest pack-adjacent mechanism rather than a bespoke
// stdlib-only implementation (see DESIGN.md).
type tokenStore struct {
	path string
	log  zerolog.Logger
}

func newTokenStore(path string, log zerolog.Logger) *tokenStore {
	return &tokenStore{path: path, log: log.With().Str("component", "token-cache").Logger()}
}

func (s *tokenStore) lockPath() string { return s.path + ".lock" }

// Load reads and validates the cached token. Any validation failure
// (missing fields, short token, past expiry) deletes the cache file and
// returns (nil, nil) rather than an error, matching spec §4.1's "any
// validation failure deletes the cache".
func (s *tokenStore) Load() (*domain.TokenCache, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brokerage: read token cache: %w", err)
	}

	var tok domain.TokenCache
	if err := json.Unmarshal(data, &tok); err != nil {
		s.invalidate("corrupt json")
		return nil, nil
	}

	if len(tok.AccessToken) < 100 || tok.ExpiresAt.IsZero() || tok.ExpiresAt.Before(time.Now()) {
		s.invalidate("failed validation")
		return nil, nil
	}

	return &tok, nil
}

func (s *tokenStore) invalidate(reason string) {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Msg("failed to remove invalid token cache")
		return
	}
	s.log.Warn().Str("reason", reason).Msg("token cache invalidated")
}

// Save atomically writes tok behind an exclusive advisory lock on the
// sibling .lock file, per spec §4.1's cache file protocol.
func (s *tokenStore) Save(tok domain.TokenCache) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}

	lock, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}
	defer lock.Close()

	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)

	data, err := json.Marshal(tok)
	if err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errs.Wrap(errs.Storage, "tokenStore.Save", err)
	}
	return os.Chmod(s.path, 0o600)
}
