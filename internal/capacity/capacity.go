package capacity

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vizwave/api/internal/config"
)

const mb = 1024 * 1024

// Check reports an error when the host is too loaded to take on another
// render. Probe failures are ignored so a missing /proc never blocks work.
func Check(cfg *config.CapacityConfig, workDir string) error {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		if percents[0] > cfg.MaxCPUPercent {
			return fmt.Errorf("cpu usage %.0f%% above limit %.0f%%", percents[0], cfg.MaxCPUPercent)
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		if int64(vm.Available) < cfg.MinFreeMemMB*mb {
			return fmt.Errorf("free memory %dMB below minimum %dMB", vm.Available/mb, cfg.MinFreeMemMB)
		}
	}

	if du, err := disk.Usage(workDir); err == nil {
		if int64(du.Free) < cfg.MinFreeDiskMB*mb {
			return fmt.Errorf("free disk %dMB below minimum %dMB", du.Free/mb, cfg.MinFreeDiskMB)
		}
	}

	return nil
}
