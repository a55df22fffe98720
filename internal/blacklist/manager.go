// Package blacklist implements the dual-source ticker exclusion list: a
// permanent side backed by the tickers table's is_active flag, and a
// temporary side backed by a per-region JSON file with optional expiry.
package blacklist

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// Manager is the single entry point callers use before any network or
// database-heavy work: FilterTickers strips both permanently and
// temporarily excluded symbols in one pass.
type Manager struct {
	tickers *repository.TickerRepository
	file    *fileStore
	log     zerolog.Logger
}

func NewManager(tickerRepo *repository.TickerRepository, filePath string, log zerolog.Logger) *Manager {
	return &Manager{
		tickers: tickerRepo,
		file:    newFileStore(filePath, log),
		log:     log.With().Str("component", "blacklist").Logger(),
	}
}

// Deactivate sets a ticker's permanent is_active flag to false.
func (m *Manager) Deactivate(ticker string, region domain.Region) error {
	if !validFormat(ticker, region) {
		return errs.New(errs.Validation, "blacklist.Deactivate", fmt.Sprintf("ticker %q does not match %s format", ticker, region))
	}
	if err := m.tickers.SetActive(ticker, region, false); err != nil {
		return fmt.Errorf("blacklist: deactivate %s/%s: %w", region, ticker, err)
	}
	return nil
}

// Reactivate clears a ticker's permanent exclusion.
func (m *Manager) Reactivate(ticker string, region domain.Region) error {
	if err := m.tickers.SetActive(ticker, region, true); err != nil {
		return fmt.Errorf("blacklist: reactivate %s/%s: %w", region, ticker, err)
	}
	return nil
}

// Add inserts or replaces a temporary exclusion for ticker in region.
// expireAt may be nil for an indefinite (until explicitly removed) entry.
func (m *Manager) Add(ticker string, region domain.Region, reason, addedBy string, expireAt *time.Time, notes string) error {
	if !validFormat(ticker, region) {
		return errs.New(errs.Validation, "blacklist.Add", fmt.Sprintf("ticker %q does not match %s format", ticker, region))
	}
	doc, err := m.file.load()
	if err != nil {
		return err
	}
	doc.Blacklist[region][ticker] = domain.BlacklistEntry{
		AddedDate:  time.Now().UTC(),
		ExpireDate: expireAt,
		Ticker:     ticker,
		Region:     region,
		Reason:     reason,
		AddedBy:    addedBy,
		Notes:      notes,
	}
	return m.file.save(doc)
}

// Remove deletes a temporary exclusion, if present.
func (m *Manager) Remove(ticker string, region domain.Region) error {
	doc, err := m.file.load()
	if err != nil {
		return err
	}
	delete(doc.Blacklist[region], ticker)
	return m.file.save(doc)
}

// IsBlacklisted reports whether ticker is excluded right now, checking the
// permanent is_active flag first (cheaper to reason about, no expiry logic)
// then the temporary file, ignoring entries that have expired.
func (m *Manager) IsBlacklisted(ticker string, region domain.Region) (bool, error) {
	t, err := m.tickers.Get(ticker, region)
	if err != nil {
		return false, fmt.Errorf("blacklist: lookup %s/%s: %w", region, ticker, err)
	}
	if t != nil && !t.IsActive {
		return true, nil
	}

	doc, err := m.file.load()
	if err != nil {
		return false, err
	}
	entry, ok := doc.Blacklist[region][ticker]
	if !ok {
		return false, nil
	}
	if entry.Expired(time.Now().UTC()) {
		return false, nil
	}
	return true, nil
}

// FilterTickers strips every excluded symbol from tickers in one pass. This
// is the hot-path method: call it once before stage0/stage1/stage2/trading
// touch the network or database rather than calling IsBlacklisted per ticker.
func (m *Manager) FilterTickers(tickers []domain.Ticker, region domain.Region) ([]domain.Ticker, error) {
	inactive, err := m.tickers.InactiveSet(region)
	if err != nil {
		return nil, fmt.Errorf("blacklist: load inactive set for %s: %w", region, err)
	}
	doc, err := m.file.load()
	if err != nil {
		return nil, err
	}
	temp := doc.Blacklist[region]
	now := time.Now().UTC()

	out := make([]domain.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if inactive[t.Symbol] {
			continue
		}
		if entry, ok := temp[t.Symbol]; ok && !entry.Expired(now) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Summary returns the current temporary-blacklist entry count per region,
// excluding entries that have already expired.
func (m *Manager) Summary() (map[domain.Region]int, error) {
	doc, err := m.file.load()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	counts := make(map[domain.Region]int, len(allRegions))
	for _, r := range allRegions {
		n := 0
		for _, entry := range doc.Blacklist[r] {
			if !entry.Expired(now) {
				n++
			}
		}
		counts[r] = n
	}
	return counts, nil
}

// CleanupExpired prunes expired temporary entries from disk. Intended to be
// run periodically (e.g. daily) by the scheduler rather than on every read.
func (m *Manager) CleanupExpired() (int, error) {
	doc, err := m.file.load()
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	removed := 0
	for region, entries := range doc.Blacklist {
		for ticker, entry := range entries {
			if entry.Expired(now) {
				delete(doc.Blacklist[region], ticker)
				removed++
			}
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := m.file.save(doc); err != nil {
		return 0, err
	}
	m.log.Info().Int("removed", removed).Msg("pruned expired blacklist entries")
	return removed, nil
}
