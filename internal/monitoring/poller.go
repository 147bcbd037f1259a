package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// DefaultInterval is the dashboard refresh interval.
const DefaultInterval = 10 * time.Second

// SnapshotSource fetches the current monitoring snapshot.
type SnapshotSource interface {
	MonitoringSnapshot(ctx context.Context) (*models.MonitoringSnapshot, error)
}

// Poller fetches snapshots immediately and then on a fixed interval.
type Poller struct {
	source   SnapshotSource
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller. A non-positive interval means DefaultInterval.
func NewPoller(source SnapshotSource, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{source: source, interval: interval, logger: logger}
}

// Interval returns the polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run calls fn with every fetch result until ctx is cancelled. Fetch errors
// are handed to fn and polling continues. Ticks missed while fn runs are
// dropped rather than queued.
func (p *Poller) Run(ctx context.Context, fn func(*models.MonitoringSnapshot, error)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, fn)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("monitoring poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx, fn)
		}
	}
}

func (p *Poller) poll(ctx context.Context, fn func(*models.MonitoringSnapshot, error)) {
	start := time.Now()
	snap, err := p.source.MonitoringSnapshot(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("monitoring poll failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
	fn(snap, err)
}
