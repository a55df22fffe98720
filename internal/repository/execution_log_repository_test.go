package repository

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionLogRepository_RecordAndRecentByStage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExecutionLogRepository(db, testLogger())

	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: now, Stage: 0, Region: domain.RegionKR,
		InputCount: 2500, OutputCount: 400, Elapsed: 12 * time.Second,
	}))
	require.NoError(t, repo.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: now.Add(time.Hour), Stage: 0, Region: domain.RegionKR,
		InputCount: 2500, OutputCount: 410, Elapsed: 11 * time.Second,
	}))

	recent, err := repo.RecentByStage(0, domain.RegionKR, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 410, recent[0].OutputCount)
	assert.InDelta(t, 1.0-float64(410)/2500, recent[0].ReductionRate, 0.0001)
}
