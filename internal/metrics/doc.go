// Package metrics collects channel reliability metrics.
//
// Two views are provided. The Collector consumes events through a buffered
// channel in its own goroutine and serves a JSON snapshot of:
//   - Freezes and resets per channel
//   - Probe counts, failures and error kinds
//   - Probe latency with percentiles (P50, P95, P99)
//
// PrometheusMetrics reads the health tracker on every scrape and exposes
// the current state of each channel alongside probe latency histograms.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	tracker.Subscribe(collector.FreezeObserver())
//	prober := probe.New(cfg, probe.WithObserver(collector.ProbeObserver()))
//
//	snapshot := collector.Snapshot()
//
// Publishing never blocks: events that do not fit in the buffer are dropped
// and counted.
package metrics
