// Package monitor logs the engine's own resource usage. It is
// observability for the collector process itself and never writes to
// the metric registry; the scheduler stays the registry's sole writer.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Monitor periodically logs process CPU, memory and runtime stats.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	proc     *process.Process
	wg       sync.WaitGroup
}

// New creates a monitor. Returns nil if the process handle cannot be
// obtained; a nil monitor is safe to Run and Wait on.
func New(interval time.Duration, logger *slog.Logger) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Error("failed to get process handle", "error", err)
		return nil
	}

	return &Monitor{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Run starts the monitoring loop in a background goroutine with an
// immediate first sample.
func (m *Monitor) Run(ctx context.Context) {
	if m == nil {
		return
	}
	m.wg.Go(func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.sample()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	})
}

// Wait blocks until the monitor goroutine exits.
func (m *Monitor) Wait() {
	if m == nil {
		return
	}
	m.wg.Wait()
}

func (m *Monitor) sample() {
	cpu, err := m.proc.CPUPercent()
	if err != nil {
		m.logger.Warn("failed to read CPU percent", "error", err)
		cpu = 0
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.logger.Info("resource usage",
		"cpu", fmt.Sprintf("%.2f%%", cpu),
		"goroutines", runtime.NumGoroutine(),
		"heap_mb", fmt.Sprintf("%.1f", float64(ms.HeapAlloc)/(1024*1024)),
		"gc_runs", ms.NumGC,
	)
}
