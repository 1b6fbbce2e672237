package metrics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

type EventType string

const (
	EventChannelFrozen  EventType = "channel_frozen"
	EventChannelReset   EventType = "channel_reset"
	EventProbeCompleted EventType = "probe_completed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Channel   channel.Key
	Success   bool
	Latency   time.Duration
	ErrorKind probe.ErrorKind
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger.With(slog.String("component", "metrics")),
	}
}

// Publish enqueues the event without blocking. It reports false when the
// buffer is full and the event was dropped.
func (c *Collector) Publish(event MetricEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case c.eventCh <- event:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// FreezeObserver returns a hook for health.Tracker.Subscribe.
func (c *Collector) FreezeObserver() health.FreezeFunc {
	return func(source, channelID string) {
		c.Publish(MetricEvent{
			Type:    EventChannelFrozen,
			Channel: channel.NewKey(source, channelID),
		})
	}
}

// ProbeObserver returns a hook for probe.WithObserver. Probe results carry
// no source, so they are filed under the default one.
func (c *Collector) ProbeObserver() func(probe.Result) {
	return func(r probe.Result) {
		event := MetricEvent{
			Type:      EventProbeCompleted,
			Timestamp: r.TestedAt,
			Channel:   channel.NewKey("", r.ChannelID),
			Success:   r.Success,
			ErrorKind: r.ErrorKind,
		}
		if r.LatencyMS != nil {
			event.Latency = time.Duration(*r.LatencyMS) * time.Millisecond
		}
		c.Publish(event)
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventChannelFrozen:
		c.metrics.RecordFreeze(event.Channel, event.Timestamp)

	case EventChannelReset:
		c.metrics.RecordReset(event.Channel)

	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Channel, event.Success, event.Latency, event.ErrorKind)

	default:
		c.logger.Debug("Unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	snap := c.metrics.Snapshot()
	snap.DroppedEvents = c.dropped.Load()
	return snap
}
