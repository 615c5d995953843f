package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"duochat/observability"

	"github.com/shirou/gopsutil/process"
)

// Monitor periodically logs hub counters together with the process's own
// memory and CPU footprint. Purely observational; losing a tick is fine.
type Monitor struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewMonitor(log *slog.Logger, stats *observability.Stats, interval time.Duration) *Monitor {
	return &Monitor{log: log, stats: stats, interval: interval}
}

func (w *Monitor) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snapshot := w.stats.Snapshot()
			attrs := []any{
				"events_published", snapshot.EventsPublished,
				"events_dropped", snapshot.EventsDropped,
				"snapshots_delivered", snapshot.SnapshotsDelivered,
				"delivery_failures", snapshot.DeliveryFailures,
				"active_subscribers", snapshot.ActiveSubscribers,
			}
			if mem, memErr := proc.MemoryInfo(); memErr == nil {
				attrs = append(attrs, "rss_mb", mem.RSS/(1024*1024))
			}
			if cpu, cpuErr := proc.CPUPercent(); cpuErr == nil {
				attrs = append(attrs, "cpu_percent", cpu)
			}
			w.log.Info("Hub monitor", attrs...)
		}
	}
}
