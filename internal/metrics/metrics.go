package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

// maxSamples bounds the latency window kept per channel.
const maxSamples = 1000

type Metrics struct {
	mutex      sync.RWMutex
	freezes    map[channel.Key]int64
	lastFreeze map[channel.Key]time.Time
	resets     map[channel.Key]int64
	probes     map[channel.Key]int64
	failures   map[channel.Key]map[probe.ErrorKind]int64
	latencies  map[channel.Key][]time.Duration
	startTime  time.Time
}

type Snapshot struct {
	Uptime        time.Duration             `json:"uptime"`
	TotalFreezes  int64                     `json:"total_freezes"`
	TotalProbes   int64                     `json:"total_probes"`
	DroppedEvents int64                     `json:"dropped_events"`
	Channels      map[string]ChannelMetrics `json:"channels"`
}

type ChannelMetrics struct {
	Freezes       int64                     `json:"freezes"`
	LastFreeze    *time.Time                `json:"last_freeze,omitempty"`
	Resets        int64                     `json:"resets"`
	Probes        int64                     `json:"probes"`
	ProbeFailures int64                     `json:"probe_failures"`
	FailureKinds  map[probe.ErrorKind]int64 `json:"failure_kinds,omitempty"`
	AvgLatency    time.Duration             `json:"avg_latency"`
	P50Latency    time.Duration             `json:"p50_latency"`
	P95Latency    time.Duration             `json:"p95_latency"`
	P99Latency    time.Duration             `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		freezes:    make(map[channel.Key]int64),
		lastFreeze: make(map[channel.Key]time.Time),
		resets:     make(map[channel.Key]int64),
		probes:     make(map[channel.Key]int64),
		failures:   make(map[channel.Key]map[probe.ErrorKind]int64),
		latencies:  make(map[channel.Key][]time.Duration),
		startTime:  time.Now(),
	}
}

func (m *Metrics) RecordFreeze(key channel.Key, at time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.freezes[key]++
	m.lastFreeze[key] = at
}

func (m *Metrics) RecordReset(key channel.Key) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.resets[key]++
}

// RecordProbe counts a probe. Latency is sampled only for successful probes.
func (m *Metrics) RecordProbe(key channel.Key, success bool, latency time.Duration, kind probe.ErrorKind) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[key]++

	if !success {
		if m.failures[key] == nil {
			m.failures[key] = make(map[probe.ErrorKind]int64)
		}
		m.failures[key][kind]++
		return
	}

	m.latencies[key] = append(m.latencies[key], latency)
	if len(m.latencies[key]) > maxSamples {
		m.latencies[key] = m.latencies[key][1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Channels: make(map[string]ChannelMetrics),
	}

	// Collect all known channels
	keys := make(map[channel.Key]struct{})
	for key := range m.freezes {
		keys[key] = struct{}{}
	}
	for key := range m.resets {
		keys[key] = struct{}{}
	}
	for key := range m.probes {
		keys[key] = struct{}{}
	}

	for key := range keys {
		snap.TotalFreezes += m.freezes[key]
		snap.TotalProbes += m.probes[key]

		cm := ChannelMetrics{
			Freezes: m.freezes[key],
			Resets:  m.resets[key],
			Probes:  m.probes[key],
		}
		if at, ok := m.lastFreeze[key]; ok {
			cm.LastFreeze = &at
		}
		if kinds := m.failures[key]; len(kinds) > 0 {
			cm.FailureKinds = make(map[probe.ErrorKind]int64, len(kinds))
			for kind, n := range kinds {
				cm.FailureKinds[kind] = n
				cm.ProbeFailures += n
			}
		}

		durations := m.latencies[key]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			cm.AvgLatency = average(sorted)
			cm.P50Latency = percentile(sorted, 0.50)
			cm.P95Latency = percentile(sorted, 0.95)
			cm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Channels[key.String()] = cm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
