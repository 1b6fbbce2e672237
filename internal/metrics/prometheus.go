package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

const namespace = "channel_router"

// HealthSource is the part of health.Tracker read on every scrape.
type HealthSource interface {
	Sources() []string
	AllStatuses(source string) map[string]health.Snapshot
}

// PrometheusMetrics exposes channel health and probe results to Prometheus.
type PrometheusMetrics struct {
	tracker HealthSource

	// Health metrics, rebuilt from the tracker on every scrape.
	// healthMutex serializes the rebuild with its collection.
	healthMutex         sync.Mutex
	channelStatus       *prometheus.GaugeVec
	consecutiveFailures *prometheus.GaugeVec
	attempts            *prometheus.GaugeVec
	freezeRemaining     *prometheus.GaugeVec
	nextFreeze          *prometheus.GaugeVec

	// Event metrics
	freezesTotal *prometheus.CounterVec
	probesTotal  *prometheus.CounterVec
	probeLatency *prometheus.HistogramVec
}

func NewPrometheusMetrics(tracker HealthSource) *PrometheusMetrics {
	return &PrometheusMetrics{
		tracker: tracker,
		channelStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channel_status",
				Help:      "Current health state of each channel (1 for the active state)",
			},
			[]string{"source", "channel", "status"},
		),
		consecutiveFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channel_consecutive_failures",
				Help:      "Failures recorded since the channel's last success",
			},
			[]string{"source", "channel"},
		),
		attempts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channel_attempts",
				Help:      "Attempts recorded against each channel since start or last reset",
			},
			[]string{"source", "channel", "outcome"},
		),
		freezeRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channel_freeze_remaining_seconds",
				Help:      "Seconds until a frozen channel may be probed again",
			},
			[]string{"source", "channel"},
		),
		nextFreeze: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channel_next_freeze_seconds",
				Help:      "Freeze duration the channel will receive on its next freeze",
			},
			[]string{"source", "channel"},
		),
		freezesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_freezes_total",
				Help:      "Total number of freeze transitions",
			},
			[]string{"source", "channel"},
		),
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of latency probes by outcome",
			},
			[]string{"channel", "outcome"},
		),
		probeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_latency_seconds",
				Help:      "Latency of successful probes",
				Buckets:   []float64{0.1, 0.3, 0.5, 0.8, 1, 2, 5, 10},
			},
			[]string{"channel"},
		),
	}
}

// Describe implements prometheus.Collector.
func (pm *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	pm.channelStatus.Describe(ch)
	pm.consecutiveFailures.Describe(ch)
	pm.attempts.Describe(ch)
	pm.freezeRemaining.Describe(ch)
	pm.nextFreeze.Describe(ch)
	pm.freezesTotal.Describe(ch)
	pm.probesTotal.Describe(ch)
	pm.probeLatency.Describe(ch)
}

// Collect implements prometheus.Collector and refreshes the health gauges
// from the tracker.
func (pm *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	pm.healthMutex.Lock()
	pm.collectHealthMetrics()
	pm.channelStatus.Collect(ch)
	pm.consecutiveFailures.Collect(ch)
	pm.attempts.Collect(ch)
	pm.freezeRemaining.Collect(ch)
	pm.nextFreeze.Collect(ch)
	pm.healthMutex.Unlock()

	pm.freezesTotal.Collect(ch)
	pm.probesTotal.Collect(ch)
	pm.probeLatency.Collect(ch)
}

var statuses = []health.Status{health.StatusHealthy, health.StatusFrozen, health.StatusProbing}

func (pm *PrometheusMetrics) collectHealthMetrics() {
	pm.channelStatus.Reset()
	pm.consecutiveFailures.Reset()
	pm.attempts.Reset()
	pm.freezeRemaining.Reset()
	pm.nextFreeze.Reset()

	for _, source := range pm.tracker.Sources() {
		for id, snap := range pm.tracker.AllStatuses(source) {
			for _, s := range statuses {
				value := 0.0
				if snap.Status == s {
					value = 1
				}
				pm.channelStatus.WithLabelValues(source, id, s.String()).Set(value)
			}
			pm.consecutiveFailures.WithLabelValues(source, id).Set(float64(snap.ConsecutiveFailures))
			pm.attempts.WithLabelValues(source, id, "success").Set(float64(snap.TotalSuccesses))
			pm.attempts.WithLabelValues(source, id, "failure").Set(float64(snap.TotalFailures))
			pm.freezeRemaining.WithLabelValues(source, id).Set(float64(snap.FreezeRemaining))
			pm.nextFreeze.WithLabelValues(source, id).Set(snap.NextFreeze.Seconds())
		}
	}
}

// RecordFreeze has the health.FreezeFunc signature and can be passed to
// Tracker.Subscribe.
func (pm *PrometheusMetrics) RecordFreeze(source, channelID string) {
	key := channel.NewKey(source, channelID)
	pm.freezesTotal.WithLabelValues(key.Source, key.ID).Inc()
}

// ObserveProbe can be passed to probe.WithObserver.
func (pm *PrometheusMetrics) ObserveProbe(r probe.Result) {
	if !r.Success {
		pm.probesTotal.WithLabelValues(r.ChannelID, string(r.ErrorKind)).Inc()
		return
	}
	pm.probesTotal.WithLabelValues(r.ChannelID, "success").Inc()
	if r.LatencyMS != nil {
		pm.probeLatency.WithLabelValues(r.ChannelID).Observe(float64(*r.LatencyMS) / 1000)
	}
}
