package jobs

import (
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// ProcessStats is one sample of the server's resource use.
type ProcessStats struct {
	RSSMB         uint64  `json:"rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
	SystemMemUsed float64 `json:"system_mem_used_percent"`
}

// SampleProcess reads the current process and host memory figures. Fields
// that cannot be read are left zero.
func SampleProcess() (ProcessStats, error) {
	var st ProcessStats
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: pid is within int32 range
	if err != nil {
		return st, err
	}
	if mi, err := p.MemoryInfo(); err == nil {
		st.RSSMB = mi.RSS / 1024 / 1024
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.SystemMemUsed = vm.UsedPercent
	}
	return st, nil
}

// MonitorProcess logs a resource sample.
func (s *Scheduler) MonitorProcess() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	st, err := SampleProcess()
	if err != nil {
		zap.L().Warn("process sample failed", zap.Error(err))
		return
	}
	zap.L().Info("process stats",
		zap.Uint64("rss_mb", st.RSSMB),
		zap.Float64("cpu_percent", st.CPUPercent),
		zap.Float64("system_mem_used_percent", st.SystemMemUsed))
}
