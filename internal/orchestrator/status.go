package orchestrator

import (
	"time"

	"github.com/jsj9346/screener/internal/domain"
)

// Health is a single stage's freshness classification.
type Health string

const (
	HealthHealthy Health = "HEALTHY"
	HealthPartial Health = "PARTIAL"
	HealthStale   Health = "STALE"
)

// staleAfter defines how old a cache entry can be before it is considered
// stale rather than merely partial; a run that never produced a cache at
// all is stale regardless of age.
const staleAfter = 48 * time.Hour
const partialAfter = 24 * time.Hour

// StageStatus summarizes one stage's last execution for the status mode.
type StageStatus struct {
	Stage         int
	Health        Health
	LastRun       time.Time
	InputCount    int
	OutputCount   int
	ReductionRate float64
}

// StatusReport is the output of Status, one entry per stage plus the
// OHLCV freshness read directly from ohlcv_data rather than the
// execution log (C7 has no stage number of its own in filter_execution_log).
type StatusReport struct {
	Region        domain.Region
	Stages        []StageStatus
	OHLCVFreshest time.Time
	OHLCVHealth   Health
}

// Status reads cache ages for every stage and OHLCV freshness and
// classifies each as healthy/partial/stale (spec §4.10's status mode).
func (o *Orchestrator) Status(region domain.Region, now time.Time) (StatusReport, error) {
	report := StatusReport{Region: region}

	for stage := 0; stage <= 2; stage++ {
		recent, err := o.deps.ExecLog.RecentByStage(stage, region, 1)
		if err != nil {
			return StatusReport{}, err
		}
		status := StageStatus{Stage: stage, Health: HealthStale}
		if len(recent) > 0 {
			e := recent[0]
			status.LastRun = e.ExecutionDate
			status.InputCount = e.InputCount
			status.OutputCount = e.OutputCount
			status.ReductionRate = e.ReductionRate
			status.Health = classifyAge(now.Sub(e.ExecutionDate))
		}
		report.Stages = append(report.Stages, status)
	}

	freshest, ok, err := o.deps.OHLCVRepo.MostRecentBarDate(region)
	if err != nil {
		return StatusReport{}, err
	}
	report.OHLCVHealth = HealthStale
	if ok {
		report.OHLCVFreshest = freshest
		report.OHLCVHealth = classifyAge(now.Sub(freshest))
	}

	return report, nil
}

func classifyAge(age time.Duration) Health {
	switch {
	case age <= partialAfter:
		return HealthHealthy
	case age <= staleAfter:
		return HealthPartial
	default:
		return HealthStale
	}
}
