package market

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSessionState_US_RegularHours(t *testing.T) {
	nyTZ, _ := time.LoadLocation("America/New_York")

	tests := []struct {
		name     string
		datetime time.Time
		expected State
	}{
		{"before open", time.Date(2024, 1, 16, 8, 0, 0, 0, nyTZ), StatePreMarket},
		{"at open", time.Date(2024, 1, 16, 9, 30, 0, 0, nyTZ), StateOpen},
		{"midday", time.Date(2024, 1, 16, 12, 0, 0, 0, nyTZ), StateOpen},
		{"at close", time.Date(2024, 1, 16, 16, 0, 0, 0, nyTZ), StateAfterHours},
		{"weekend", time.Date(2024, 1, 20, 10, 0, 0, 0, nyTZ), StateClosed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SessionState(domain.RegionUS, tc.datetime))
		})
	}
}

func TestSessionState_JP_LunchBreakClosesMarket(t *testing.T) {
	jst, _ := time.LoadLocation("Asia/Tokyo")
	lunch := time.Date(2024, 1, 16, 11, 45, 0, 0, jst)
	assert.Equal(t, StateClosed, SessionState(domain.RegionJP, lunch))
}

func TestIsTradingDay_WeekendIsNotTradingDay(t *testing.T) {
	sat := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	assert.False(t, IsTradingDay(domain.RegionKR, sat))
}

func TestIsTradingDay_FixedHolidayIsNotTradingDay(t *testing.T) {
	newYears := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.False(t, IsTradingDay(domain.RegionUS, newYears))
}

func TestNextBusinessDay_SkipsWeekend(t *testing.T) {
	friday := time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)
	next := NextBusinessDay(domain.RegionUS, friday)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestMostRecentTradingDay_ReturnsSameDayIfTrading(t *testing.T) {
	tuesday := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	recent := MostRecentTradingDay(domain.RegionUS, tuesday)
	assert.Equal(t, 16, recent.Day())
}

func TestMostRecentTradingDay_SkipsBackOverWeekend(t *testing.T) {
	sunday := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	recent := MostRecentTradingDay(domain.RegionUS, sunday)
	assert.Equal(t, 19, recent.Day()) // Friday
}
