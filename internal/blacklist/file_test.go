package blacklist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestFileStore_Load_MissingFileInitializesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.json")
	s := newFileStore(path, discardLogger())

	doc, err := s.load()
	require.NoError(t, err)
	assert.Equal(t, fileVersion, doc.Version)
	assert.Len(t, doc.Blacklist, len(allRegions))

	_, err = os.Stat(path)
	assert.NoError(t, err, "missing file should be created on first load")
}

func TestFileStore_SaveAndLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.json")
	s := newFileStore(path, discardLogger())

	doc, err := s.load()
	require.NoError(t, err)
	doc.Blacklist[domain.RegionKR]["005930"] = domain.BlacklistEntry{
		AddedDate: time.Now().UTC(),
		Ticker:    "005930",
		Region:    domain.RegionKR,
		Reason:    "delisting risk",
		AddedBy:   "test",
	}
	require.NoError(t, s.save(doc))

	reloaded, err := s.load()
	require.NoError(t, err)
	assert.Equal(t, fileVersion, reloaded.Version)
	entry, ok := reloaded.Blacklist[domain.RegionKR]["005930"]
	require.True(t, ok)
	assert.Equal(t, "delisting risk", entry.Reason)
}

func TestFileStore_Load_CorruptFileQuarantinesAndReinitializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	s := newFileStore(path, discardLogger())
	doc, err := s.load()
	require.NoError(t, err)
	assert.Len(t, doc.Blacklist, len(allRegions))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if filepath.Base(e.Name()) != "blacklist.json" && filepath.Ext(e.Name()) != ".tmp" {
			found = true
		}
	}
	assert.True(t, found, "expected a quarantined backup file alongside the reinitialized store")
}
