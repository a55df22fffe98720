// Package market implements C1: pure functions over a per-region holiday
// and trading-hours table. Nothing here talks to the network or a
// database; callers treat MarketHours as a pure function of (region, t)
// exactly as spec §1 requires ("market-hours and holiday tables
// referenced as a pure function").
package market

import (
	"time"

	"github.com/jsj9346/screener/internal/domain"
)

// State is the market session state for a region at an instant.
type State string

const (
	StateOpen      State = "OPEN"
	StateClosed    State = "CLOSED"
	StatePreMarket State = "PRE_MARKET"
	StateAfterHours State = "AFTER_HOURS"
)

// tradingHours describes a region's regular session in its own timezone.
type tradingHours struct {
	tz                     *time.Location
	openHour, openMinute   int
	closeHour, closeMinute int
	lunchStartHour         int
	lunchStartMinute       int
	lunchEndHour           int
	lunchEndMinute         int
	hasLunch               bool
	preMarketMinutes       int // minutes before open considered pre-market
	afterHoursMinutes      int // minutes after close considered after-hours
}

var schedules = map[domain.Region]tradingHours{
	domain.RegionKR: {tz: mustLoc("Asia/Seoul"), openHour: 9, closeHour: 15, closeMinute: 30, preMarketMinutes: 30, afterHoursMinutes: 30},
	domain.RegionUS: {tz: mustLoc("America/New_York"), openHour: 9, openMinute: 30, closeHour: 16, preMarketMinutes: 330, afterHoursMinutes: 240},
	domain.RegionHK: {tz: mustLoc("Asia/Hong_Kong"), openHour: 9, openMinute: 30, closeHour: 16, hasLunch: true, lunchStartHour: 12, lunchEndHour: 13, preMarketMinutes: 30, afterHoursMinutes: 0},
	domain.RegionCN: {tz: mustLoc("Asia/Shanghai"), openHour: 9, openMinute: 30, closeHour: 15, hasLunch: true, lunchStartHour: 11, lunchStartMinute: 30, lunchEndHour: 13, preMarketMinutes: 15, afterHoursMinutes: 0},
	domain.RegionJP: {tz: mustLoc("Asia/Tokyo"), openHour: 9, closeHour: 15, hasLunch: true, lunchStartHour: 11, lunchStartMinute: 30, lunchEndHour: 12, lunchEndMinute: 30, preMarketMinutes: 15, afterHoursMinutes: 0},
	domain.RegionVN: {tz: mustLoc("Asia/Ho_Chi_Minh"), openHour: 9, closeHour: 15, hasLunch: true, lunchStartHour: 11, lunchStartMinute: 30, lunchEndHour: 13, preMarketMinutes: 15, afterHoursMinutes: 0},
}

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Falls back to UTC rather than panicking at package init: a
		// missing tzdata file on a minimal container must not crash the
		// whole pipeline, only degrade market-hours precision.
		return time.UTC
	}
	return loc
}

// Holidays returns the fixed-date public holidays observed by a region's
// primary exchange in the given year. This is a deliberately small,
// externally-overridable table (spec: "holiday tables... referenced as a
// pure function" are an external collaborator); it covers the handful of
// fixed-date holidays needed for the gap-analysis scenarios in spec §8
// and is not a complete lunar/rule-based calendar.
func Holidays(region domain.Region, year int) []time.Time {
	sched, ok := schedules[region]
	if !ok {
		return nil
	}
	mk := func(month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, sched.tz)
	}
	switch region {
	case domain.RegionKR, domain.RegionCN, domain.RegionVN, domain.RegionHK, domain.RegionJP:
		return []time.Time{mk(time.January, 1)}
	case domain.RegionUS:
		return []time.Time{mk(time.January, 1), mk(time.July, 4), mk(time.December, 25)}
	default:
		return nil
	}
}

func isHoliday(region domain.Region, date time.Time) bool {
	for _, h := range Holidays(region, date.Year()) {
		if sameDay(h, date) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsTradingDay reports whether date's calendar day, read in date's own
// location, is a business day for region: not a weekend, not a holiday.
func IsTradingDay(region domain.Region, date time.Time) bool {
	if _, ok := schedules[region]; !ok {
		return false
	}
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(region, date)
}

// NextBusinessDay returns the next trading day strictly after date.
func NextBusinessDay(region domain.Region, date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for !IsTradingDay(region, next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// MostRecentTradingDay returns date itself if it is a trading day,
// otherwise the closest earlier trading day. Used by the OHLCV gap
// analyzer (spec §4.5) to know what "current" means.
func MostRecentTradingDay(region domain.Region, t time.Time) time.Time {
	d := t
	for !IsTradingDay(region, d) {
		d = d.AddDate(0, 0, -1)
	}
	sched := schedules[region]
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, sched.tz)
}

// SessionState computes the market session state for region at instant t.
func SessionState(region domain.Region, t time.Time) State {
	sched, ok := schedules[region]
	if !ok {
		return StateClosed
	}
	local := t.In(sched.tz)
	if !IsTradingDay(region, local) {
		return StateClosed
	}

	open := time.Date(local.Year(), local.Month(), local.Day(), sched.openHour, sched.openMinute, 0, 0, sched.tz)
	close := time.Date(local.Year(), local.Month(), local.Day(), sched.closeHour, sched.closeMinute, 0, 0, sched.tz)

	if sched.hasLunch {
		lunchStart := time.Date(local.Year(), local.Month(), local.Day(), sched.lunchStartHour, sched.lunchStartMinute, 0, 0, sched.tz)
		lunchEnd := time.Date(local.Year(), local.Month(), local.Day(), sched.lunchEndHour, sched.lunchEndMinute, 0, 0, sched.tz)
		if !local.Before(lunchStart) && local.Before(lunchEnd) {
			return StateClosed // Asian markets halt trading over the midday break
		}
	}

	preMarketStart := open.Add(-time.Duration(sched.preMarketMinutes) * time.Minute)
	afterHoursEnd := close.Add(time.Duration(sched.afterHoursMinutes) * time.Minute)

	switch {
	case !local.Before(open) && local.Before(close):
		return StateOpen
	case !local.Before(preMarketStart) && local.Before(open):
		return StatePreMarket
	case !local.Before(close) && local.Before(afterHoursEnd):
		return StateAfterHours
	default:
		return StateClosed
	}
}

// IsOpen is a convenience wrapper used by the stage-0 cache TTL (C6).
func IsOpen(region domain.Region, t time.Time) bool {
	return SessionState(region, t) == StateOpen
}
