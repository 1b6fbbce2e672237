package probe

import "time"

// ErrorKind classifies why a probe failed.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindInvalidURL        ErrorKind = "invalid_url"
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindDNS               ErrorKind = "dns"
	ErrorKindConnectionRefused ErrorKind = "connection_refused"
	ErrorKindConnectionReset   ErrorKind = "connection_reset"
	ErrorKindConnectionClosed  ErrorKind = "connection_closed"
	ErrorKindNetwork           ErrorKind = "network"
)

// Result is the outcome of probing one channel. StatusCode and LatencyMS
// are nil when no response was received.
type Result struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Success     bool      `json:"success"`
	StatusCode  *int      `json:"status_code"`
	LatencyMS   *int64    `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	TestedAt    time.Time `json:"tested_at"`
}

// Tier classifies the result's latency.
func (r Result) Tier() Tier {
	if r.LatencyMS == nil {
		return TierUnknown
	}
	return ClassifyLatency(*r.LatencyMS)
}

type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
	TierUnknown   Tier = "unknown"
)

// ClassifyLatency buckets a latency in milliseconds. Negative values mean
// no measurement.
func ClassifyLatency(ms int64) Tier {
	switch {
	case ms < 0:
		return TierUnknown
	case ms < 300:
		return TierExcellent
	case ms < 500:
		return TierGood
	case ms < 800:
		return TierFair
	default:
		return TierPoor
	}
}
