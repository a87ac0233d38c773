package workers

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the room process every metricInterval
// and publishes the reading as gauges.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	metrics        *observability.RoomMetrics
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(log *slog.Logger, metrics *observability.RoomMetrics, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		metrics:        metrics,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
			sample, err := w.sample(p)
			if err != nil {
				w.log.Error("Error while sampling process", "pid", w.pid, "err", err)
				continue
			}
			w.metrics.ObserveProcess(sample)
			w.log.Debug("Process sampled", "pid", sample.PID, "status", sample.Status,
				"rss_bytes", sample.RSSBytes, "cpu_percent", sample.CPUPercent)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) (domain.ProcessSample, error) {
	status, err := p.Status()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	memory, err := p.MemoryInfo()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	return domain.ProcessSample{
		PID:        w.pid,
		Status:     domain.ToStatus(status),
		RSSBytes:   memory.RSS,
		CPUPercent: cpu,
	}, nil
}
