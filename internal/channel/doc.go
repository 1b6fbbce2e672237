// Package channel defines the upstream channel descriptor and the
// (source, channel id) identity used to key per-channel state.
package channel
