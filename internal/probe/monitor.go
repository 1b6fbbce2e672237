package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/channel-router/internal/channel"
)

// Run re-probes channels every interval until ctx is done, keeping the
// cache warm for status displays. observe, if not nil, receives each ranked
// round. Run returns immediately when interval is not positive.
func (p *Prober) Run(ctx context.Context, channels []channel.Channel, interval time.Duration, observe func([]Result)) {
	if interval <= 0 || len(channels) == 0 {
		return
	}

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("Latency monitor started",
		slog.Int("channels", len(channels)),
		slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Latency monitor stopped")
			return

		case <-ticker.Chan():
			results := p.ProbeMany(channels, 0)

			reachable := 0
			for _, r := range results {
				if r.Success {
					reachable++
				}
			}
			p.logger.Debug("Latency round completed",
				slog.Int("reachable", reachable),
				slog.Int("unreachable", len(results)-reachable))

			if observe != nil {
				observe(results)
			}
		}
	}
}
