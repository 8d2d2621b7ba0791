package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics снимает показатели процесса для /api/server
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// ServerStats - снимок показателей процесса. Поля gopsutil пусты, если
// платформа их не отдаёт.
type ServerStats struct {
	Uptime     string   `json:"uptime"`
	CPUPercent *float64 `json:"cpu_percent,omitempty"`
	RSSMB      *float64 `json:"rss_mb,omitempty"`
	HeapMB     float64  `json:"heap_alloc_mb"`
	SysMB      float64  `json:"sys_mb"`
	NumGC      uint32   `json:"num_gc"`
	Goroutines int      `json:"goroutines"`
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// GetUptime возвращает время работы сервера в человекочитаемом формате
func (sm *ServerMetrics) GetUptime() string {
	uptime := time.Since(sm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dч %dм", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}

// Snapshot собирает показатели процесса и рантайма Go
func (sm *ServerMetrics) Snapshot() ServerStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ServerStats{
		Uptime:     sm.GetUptime(),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		SysMB:      float64(m.Sys) / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	if sm.proc == nil {
		return stats
	}
	// Процент CPU с момента предыдущего вызова (первый - с запуска процесса)
	if cpu, err := sm.proc.Percent(0); err == nil {
		stats.CPUPercent = &cpu
	}
	if info, err := sm.proc.MemoryInfo(); err == nil {
		rss := float64(info.RSS) / 1024 / 1024
		stats.RSSMB = &rss
	}
	return stats
}
