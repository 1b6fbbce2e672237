package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angeloszaimis/channel-router/config"
	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/metrics"
	"github.com/angeloszaimis/channel-router/internal/probe"
	"github.com/angeloszaimis/channel-router/internal/session"
)

// services holds the long-lived components shared by the HTTP surface and
// the background monitor.
type services struct {
	channels  []channel.Channel
	tracker   *health.Tracker
	prober    *probe.Prober
	bindings  *session.Bindings
	collector *metrics.Collector
	prom      *metrics.PrometheusMetrics
	registry  *prometheus.Registry
}

func newServices(cfg *config.Config, log *slog.Logger) *services {
	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	tracker := health.NewTracker(cfg.TrackerConfig(), health.WithLogger(log))
	prom := metrics.NewPrometheusMetrics(tracker)

	prober := probe.New(cfg.ProberConfig(),
		probe.WithLogger(log),
		probe.WithObserver(collector.ProbeObserver()),
		probe.WithObserver(prom.ObserveProbe))

	bindings := session.NewBindings(log)

	// A frozen channel loses its sticky sessions so they are dispatched
	// afresh on their next request.
	tracker.SetFreezeCallback(func(source, channelID string) {
		bindings.EvictChannel(source, channelID)
	})
	tracker.Subscribe(collector.FreezeObserver())
	tracker.Subscribe(prom.RecordFreeze)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prom,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &services{
		channels:  cfg.ChannelList(),
		tracker:   tracker,
		prober:    prober,
		bindings:  bindings,
		collector: collector,
		prom:      prom,
		registry:  registry,
	}
}
