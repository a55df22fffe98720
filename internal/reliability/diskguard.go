package reliability

import (
	"fmt"

	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskGuard refuses to proceed with a heavy stage (the orchestrator checks
// it before OHLCV collection) when the filesystem holding path is
// critically low on free space.
type DiskGuard struct {
	path       string
	criticalGB float64
	warnGB     float64
	log        zerolog.Logger
}

// NewDiskGuard builds a guard watching path's filesystem. criticalGB
// halts the caller; warnGB only logs.
func NewDiskGuard(path string, criticalGB, warnGB float64, log zerolog.Logger) *DiskGuard {
	return &DiskGuard{path: path, criticalGB: criticalGB, warnGB: warnGB, log: log.With().Str("component", "disk_guard").Logger()}
}

// Check returns a Storage-kind error when free space on path's
// filesystem drops below criticalGB, logging a warning short of that.
func (g *DiskGuard) Check() error {
	usage, err := disk.Usage(g.path)
	if err != nil {
		return errs.Wrap(errs.Storage, "reliability.DiskGuard.Check", err)
	}

	freeGB := float64(usage.Free) / 1e9
	g.log.Debug().Float64("free_gb", freeGB).Msg("disk space check")

	if freeGB < g.criticalGB {
		return errs.New(errs.Storage, "reliability.DiskGuard.Check",
			fmt.Sprintf("only %.2f GB free on %s, below critical threshold %.2f GB", freeGB, g.path, g.criticalGB))
	}
	if freeGB < g.warnGB {
		g.log.Warn().Float64("free_gb", freeGB).Msg("disk space running low")
	}
	return nil
}
