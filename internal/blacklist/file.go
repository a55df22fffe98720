package blacklist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

const fileVersion = "2.0"

var allRegions = []domain.Region{
	domain.RegionKR, domain.RegionUS, domain.RegionHK,
	domain.RegionCN, domain.RegionJP, domain.RegionVN,
}

// fileDoc is the on-disk shape of the temporary blacklist file, versioned
// so future format changes can branch on it.
type fileDoc struct {
	Version     string                                        `json:"version"`
	LastUpdated time.Time                                      `json:"last_updated"`
	Blacklist   map[domain.Region]map[string]domain.BlacklistEntry `json:"blacklist"`
}

func emptyDoc() *fileDoc {
	doc := &fileDoc{Version: fileVersion, Blacklist: make(map[domain.Region]map[string]domain.BlacklistEntry)}
	for _, r := range allRegions {
		doc.Blacklist[r] = make(map[string]domain.BlacklistEntry)
	}
	return doc
}

// fileStore owns the temporary blacklist JSON file: load, quarantine a
// corrupted copy, and persist pretty-printed writes.
type fileStore struct {
	path string
	log  zerolog.Logger
}

func newFileStore(path string, log zerolog.Logger) *fileStore {
	return &fileStore{path: path, log: log.With().Str("component", "blacklist.file").Logger()}
}

// load reads the temp-blacklist file, initializing an empty versioned
// structure if the file is absent, and quarantining then reinitializing if
// the file exists but fails to parse.
func (s *fileStore) load() (*fileDoc, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		doc := emptyDoc()
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blacklist: read file: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("corrupt blacklist file, quarantining and reinitializing")
		if qErr := s.quarantine(raw); qErr != nil {
			return nil, qErr
		}
		doc := emptyDoc()
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	if doc.Blacklist == nil {
		doc.Blacklist = make(map[domain.Region]map[string]domain.BlacklistEntry)
	}
	for _, r := range allRegions {
		if doc.Blacklist[r] == nil {
			doc.Blacklist[r] = make(map[string]domain.BlacklistEntry)
		}
	}
	return &doc, nil
}

// quarantine copies the corrupted file content aside with a timestamp
// suffix so it can be inspected later, matching the original manager's
// backup-then-reinit recovery behavior.
func (s *fileStore) quarantine(raw []byte) error {
	backupPath := fmt.Sprintf("%s.backup.%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.WriteFile(backupPath, raw, 0o644); err != nil {
		return fmt.Errorf("blacklist: quarantine corrupt file: %w", err)
	}
	return nil
}

// save pretty-prints doc to the configured path via a temp-file-plus-rename
// so a crash mid-write never leaves a truncated file behind.
func (s *fileStore) save(doc *fileDoc) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("blacklist: mkdir: %w", err)
	}
	doc.Version = fileVersion
	doc.LastUpdated = time.Now().UTC()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("blacklist: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("blacklist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("blacklist: rename temp file: %w", err)
	}
	return nil
}
