package ohlcv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyGap(t *testing.T) {
	today := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	strat, days := classifyGap(false, time.Time{}, today)
	assert.Equal(t, strategyFull, strat)
	assert.Equal(t, fullCollectionDays, days)

	strat, _ = classifyGap(true, today, today)
	assert.Equal(t, strategySkip, strat)

	strat, days = classifyGap(true, today.AddDate(0, 0, -1), today)
	assert.Equal(t, strategyOneDay, strat)
	assert.Equal(t, 1+incrementalBuffer, days)

	strat, days = classifyGap(true, today.AddDate(0, 0, -10), today)
	assert.Equal(t, strategyIncremental, strat)
	assert.Equal(t, 10+incrementalBuffer, days)

	strat, days = classifyGap(true, today.AddDate(0, 0, -400), today)
	assert.Equal(t, strategyIncremental, strat)
	assert.Equal(t, incrementalCapDays, days)
}
