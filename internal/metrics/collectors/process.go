// Package collectors provides background samplers feeding the metrics
// package.
package collectors

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/logging"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/metrics"
)

// ProcessCollector samples CPU and memory of live push processes. The
// pids callback supplies the stream-to-pid mapping on every tick, so
// the collector follows relaunches without coordination.
type ProcessCollector struct {
	logger   logging.Logger
	pids     func() map[string]int
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	// procs caches gopsutil handles per stream; reused handles make
	// the CPU percentage a per-interval figure instead of a lifetime
	// average. Accessed only from the run goroutine.
	procs map[string]*procEntry
}

type procEntry struct {
	pid  int
	proc *process.Process
}

// NewProcessCollector creates a collector over the given pid source.
func NewProcessCollector(pids func() map[string]int) *ProcessCollector {
	return &ProcessCollector{
		logger:   logging.GetLogger("metrics"),
		pids:     pids,
		interval: 5 * time.Second,
		procs:    make(map[string]*procEntry),
	}
}

// Start begins sampling until the context is canceled or Stop is called.
func (c *ProcessCollector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run()
	return nil
}

// Stop stops the collector.
func (c *ProcessCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *ProcessCollector) run() {
	c.logger.Info("Starting process metrics collection", "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *ProcessCollector) collect() {
	current := c.pids()

	// Drop streams that finished or swapped processes on relaunch
	for id, entry := range c.procs {
		if pid, ok := current[id]; !ok || pid != entry.pid {
			delete(c.procs, id)
			metrics.DeleteProcessMetrics(id)
		}
	}

	for id, pid := range current {
		entry, ok := c.procs[id]
		if !ok {
			proc, err := process.NewProcess(int32(pid))
			if err != nil {
				// Exited between the snapshot and the probe
				continue
			}
			entry = &procEntry{pid: pid, proc: proc}
			c.procs[id] = entry
		}

		if cpu, err := entry.proc.PercentWithContext(c.ctx, 0); err == nil {
			metrics.SetProcessCPU(id, cpu)
		} else {
			c.logger.Debug("CPU sample failed", "stream_id", id, "pid", pid, "error", err)
		}
		if info, err := entry.proc.MemoryInfoWithContext(c.ctx); err == nil {
			metrics.SetProcessMemory(id, float64(info.RSS))
		} else {
			c.logger.Debug("Memory sample failed", "stream_id", id, "pid", pid, "error", err)
		}
	}
}
