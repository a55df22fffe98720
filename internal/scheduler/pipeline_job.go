package scheduler

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/orchestrator"
	"github.com/rs/zerolog"
)

// PipelineJob drives a full orchestrator run for one region on a cron
// schedule, the daemon-mode counterpart to the cmd/screener "full"
// subcommand.
type PipelineJob struct {
	orch   *orchestrator.Orchestrator
	region domain.Region
	opts   orchestrator.RunOptions
	log    zerolog.Logger
}

func NewPipelineJob(orch *orchestrator.Orchestrator, region domain.Region, opts orchestrator.RunOptions, log zerolog.Logger) *PipelineJob {
	opts.Region = region
	return &PipelineJob{orch: orch, region: region, opts: opts, log: log.With().Str("job", "pipeline").Str("region", string(region)).Logger()}
}

func (j *PipelineJob) Name() string {
	return fmt.Sprintf("pipeline_%s", j.region)
}

func (j *PipelineJob) Run() error {
	report, err := j.orch.RunFull(j.opts)
	if err != nil {
		return fmt.Errorf("pipeline job %s: %w", j.region, err)
	}
	j.log.Info().
		Str("run_id", report.RunID).
		Int("stage0", len(report.Stage0)).
		Int("stage1", len(report.Stage1)).
		Int("stage2", len(report.Stage2)).
		Msg("scheduled pipeline run completed")
	return nil
}
