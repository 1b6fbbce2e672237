// Package probe measures how quickly channels answer and ranks them.
//
// A probe sends one discarded warm-up request to the channel's base URL,
// then times a second request. Any HTTP response counts as success: the
// probe measures reachability, not whether the upstream accepted the call.
// Results are cached per channel for a short window.
//
// The prober never touches channel health state; it only reports.
package probe
