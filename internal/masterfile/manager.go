// Package masterfile manages the authoritative overseas ticker universe
// (spec §4.2): HEAD-based change detection, atomic download, a backup
// ring, and master-file parsing, grounded on the teacher's
// reliability.BackupService rotation idiom and universe.historical_sync.go
// fetch-validate-persist shape.
package masterfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
)

const backupRingSize = 7

// Manager downloads, caches, and parses master files for the six markets
// (spec's MARKET_CODES table).
type Manager struct {
	baseURL   string
	cacheDir  string
	backupDir string
	http      *http.Client
	log       zerolog.Logger
}

func NewManager(baseURL, cacheDir string, log zerolog.Logger) *Manager {
	return &Manager{
		baseURL:   baseURL,
		cacheDir:  cacheDir,
		backupDir: filepath.Join(cacheDir, "backups"),
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       log.With().Str("component", "masterfile").Logger(),
	}
}

func (m *Manager) archivePath(market MarketCode) string {
	return filepath.Join(m.cacheDir, string(market)+"mst.cod.zip")
}

func (m *Manager) codPath(market MarketCode) string {
	return filepath.Join(m.cacheDir, string(market)+"mst.cod")
}

// needsUpdate issues an HTTP HEAD and compares Content-Length to the local
// archive size, per spec §4.2's change detection rule. A remote size
// smaller than local signals possible upstream corruption: the caller
// forces a download with backup-before-overwrite in that case too.
func (m *Manager) needsUpdate(market MarketCode) (download bool, possibleCorruption bool, err error) {
	localSize, err := fileSize(m.archivePath(market))
	if err != nil && !os.IsNotExist(err) {
		return false, false, fmt.Errorf("masterfile: stat local archive: %w", err)
	}
	if os.IsNotExist(err) {
		return true, false, nil
	}

	resp, err := m.http.Head(m.baseURL + "/" + string(market) + "mst.cod.zip")
	if err != nil {
		return false, false, fmt.Errorf("masterfile: HEAD %s: %w", market, err)
	}
	defer resp.Body.Close()

	remoteSize, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return false, false, fmt.Errorf("masterfile: HEAD %s missing Content-Length: %w", market, err)
	}

	if remoteSize == localSize {
		return false, false, nil
	}
	if remoteSize < localSize {
		return true, true, nil
	}
	return true, false, nil
}

// Sync refreshes market's cached master file if the upstream archive
// differs in size, then returns the normalized, common-stock-only ticker
// set.
func (m *Manager) Sync(region domain.Region, market MarketCode, forceRefresh bool) ([]domain.Ticker, error) {
	download, possibleCorruption, err := m.needsUpdate(market)
	if err != nil {
		return nil, err
	}

	if download || forceRefresh {
		if possibleCorruption {
			m.log.Warn().Str("market", string(market)).Msg("remote archive smaller than local copy, treating as possible corruption")
		}
		if err := m.backup(market); err != nil {
			m.log.Warn().Err(err).Str("market", string(market)).Msg("backup before overwrite failed")
		}
		if err := m.download(market); err != nil {
			if restoreErr := m.restoreLatestBackup(market); restoreErr != nil {
				return nil, fmt.Errorf("masterfile: download failed and restore failed: %w (download: %v)", restoreErr, err)
			}
			m.log.Warn().Err(err).Str("market", string(market)).Msg("download failed, restored from backup")
		}
		if err := m.extract(market); err != nil {
			if restoreErr := m.restoreLatestBackup(market); restoreErr != nil {
				return nil, fmt.Errorf("masterfile: extract failed and restore failed: %w (extract: %v)", restoreErr, err)
			}
			m.log.Warn().Err(err).Str("market", string(market)).Msg("extraction failed, restored from backup")
		}
	} else {
		m.log.Info().Str("market", string(market)).Msg("no update needed, using cached file")
	}

	file, err := os.Open(m.codPath(market))
	if err != nil {
		return nil, fmt.Errorf("masterfile: open cod file for %s: %w", market, err)
	}
	defer file.Close()

	records, err := ParseCOD(file)
	if err != nil {
		return nil, fmt.Errorf("masterfile: parse %s: %w", market, err)
	}

	currency := regionCurrency(region)
	tickers := make([]domain.Ticker, 0, len(records))
	for _, rec := range records {
		normalized, err := NormalizeTicker(market, rec.Symbol)
		if err != nil {
			m.log.Warn().Err(err).Str("market", string(market)).Str("symbol", rec.Symbol).Msg("skipping unnormalizable ticker")
			continue
		}
		tickers = append(tickers, domain.Ticker{
			Symbol:    normalized,
			Region:    region,
			Name:      rec.EnglishName,
			Exchange:  rec.ExchangeName,
			Currency:  currency,
			AssetType: domain.AssetStock,
			LotSize:   1,
			IsActive:  true,
		})
	}
	return tickers, nil
}

func regionCurrency(region domain.Region) domain.Currency {
	switch region {
	case domain.RegionUS:
		return domain.CurrencyUSD
	case domain.RegionHK:
		return domain.CurrencyHKD
	case domain.RegionCN:
		return domain.CurrencyCNY
	case domain.RegionJP:
		return domain.CurrencyJPY
	case domain.RegionVN:
		return domain.CurrencyVND
	default:
		return domain.CurrencyKRW
	}
}

// download streams the archive to a temp path and atomically renames it
// into place, per spec §4.2's download protocol.
func (m *Manager) download(market MarketCode) error {
	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return fmt.Errorf("masterfile: create cache dir: %w", err)
	}

	url := m.baseURL + "/" + string(market) + "mst.cod.zip"
	resp, err := m.http.Get(url)
	if err != nil {
		return fmt.Errorf("masterfile: download %s: %w", market, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("masterfile: download %s: status %d", market, resp.StatusCode)
	}

	tmpPath := m.archivePath(market) + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("masterfile: create temp file: %w", err)
	}

	written, err := io.Copy(tmp, resp.Body)
	tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("masterfile: write temp file: %w", err)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return fmt.Errorf("masterfile: downloaded archive for %s is empty", market)
	}

	if err := os.Rename(tmpPath, m.archivePath(market)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("masterfile: rename temp file: %w", err)
	}
	m.log.Info().Str("market", string(market)).Int64("bytes", written).Msg("master file downloaded")
	return nil
}

// extract unzips the downloaded archive's single .cod member into place.
// A klauspost/compress flate decompressor is registered over the stdlib
// zip reader's default implementation, the same acceleration other repos
// in the pack reach for when they touch compressed archives.
func (m *Manager) extract(market MarketCode) error {
	data, err := os.ReadFile(m.archivePath(market))
	if err != nil {
		return fmt.Errorf("masterfile: read archive: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("masterfile: open zip: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("masterfile: open zip member %s: %w", f.Name, err)
		}
		out, err := os.Create(m.codPath(market))
		if err != nil {
			rc.Close()
			return fmt.Errorf("masterfile: create cod file: %w", err)
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return fmt.Errorf("masterfile: extract %s: %w", f.Name, copyErr)
		}
		return nil
	}
	return fmt.Errorf("masterfile: archive for %s has no members", market)
}

// backup copies the current archive into the rotation ring before an
// overwrite, per spec §4.2's "backups/<market>.<timestamp>.bak" scheme,
// then trims to the seven newest entries.
func (m *Manager) backup(market MarketCode) error {
	src := m.archivePath(market)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}

	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return fmt.Errorf("masterfile: create backup dir: %w", err)
	}

	dest := filepath.Join(m.backupDir, fmt.Sprintf("%s.%s.bak", market, time.Now().Format("20060102T150405")))
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("masterfile: read for backup: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("masterfile: write backup: %w", err)
	}

	return m.rotateBackups(market)
}

func (m *Manager) rotateBackups(market MarketCode) error {
	paths, err := m.backupsNewestFirst(market)
	if err != nil {
		return err
	}
	for _, p := range paths[min(len(paths), backupRingSize):] {
		if err := os.Remove(p); err != nil {
			m.log.Warn().Err(err).Str("path", p).Msg("failed to prune old backup")
		}
	}
	return nil
}

func (m *Manager) backupsNewestFirst(market MarketCode) ([]string, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("masterfile: list backups: %w", err)
	}

	prefix := string(market) + "."
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > len(prefix) && e.Name()[:len(prefix)] == prefix {
			paths = append(paths, filepath.Join(m.backupDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

func (m *Manager) restoreLatestBackup(market MarketCode) error {
	paths, err := m.backupsNewestFirst(market)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("masterfile: no backup available for %s", market)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return fmt.Errorf("masterfile: read backup: %w", err)
	}
	return os.WriteFile(m.archivePath(market), data, 0o644)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
