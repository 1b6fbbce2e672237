// Package health tracks per-channel reliability and decides which channels
// are eligible for dispatch.
//
// Each channel moves through three states:
//
//   - HEALTHY: normal operation, the channel is available
//   - FROZEN: too many consecutive failures, the channel is excluded until its
//     freeze expires
//   - PROBING: the freeze expired, the channel is available again but must
//     string together a run of successes before it is trusted
//
// Every freeze lasts longer than the previous one (up to a ceiling) until the
// channel fully recovers.
//
// Usage:
//
//	tracker := health.NewTracker(health.DefaultConfig())
//	tracker.SetFreezeCallback(func(source, channelID string) {
//	    bindings.EvictChannel(source, channelID)
//	})
//
//	for _, ch := range tracker.FilterAvailable(channels, "claude") {
//	    // Dispatch...
//	    if err != nil {
//	        tracker.RecordFailure(ch.ID, "claude", err)
//	    } else {
//	        tracker.RecordSuccess(ch.ID, "claude")
//	    }
//	}
package health
