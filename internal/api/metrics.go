package api

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats состояние процесса сервера
type ProcessStats struct {
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	HeapMB        float64 `json:"heap_mb"`
	SysMB         float64 `json:"sys_mb"`
	RSSMB         float64 `json:"rss_mb,omitempty"`
	CPUPercent    float64 `json:"cpu_percent"`
	HostMemUsed   float64 `json:"host_mem_used_percent,omitempty"`
	Goroutines    int     `json:"goroutines"`
	NumGC         uint32  `json:"num_gc"`
}

// ServerMetrics собирает метрики процесса через runtime и gopsutil
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// Snapshot снимает метрики. Недоступные через gopsutil значения остаются нулевыми.
func (sm *ServerMetrics) Snapshot() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(sm.StartTime)
	stats := ProcessStats{
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		HeapMB:        toMB(m.HeapAlloc),
		SysMB:         toMB(m.Sys),
		Goroutines:    runtime.NumGoroutine(),
		NumGC:         m.NumGC,
	}

	if sm.proc != nil {
		if pct, err := sm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
		}
		if info, err := sm.proc.MemoryInfo(); err == nil {
			stats.RSSMB = toMB(info.RSS)
		}
	} else if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		// Без доступа к процессу показываем загрузку системы
		stats.CPUPercent = pcts[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostMemUsed = vm.UsedPercent
	}
	return stats
}

func toMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
