// Package session keeps the session to channel bindings used for sticky
// routing.
//
// A session stays on the channel it was first dispatched to until that
// channel is frozen. Registering EvictChannel as the health tracker's freeze
// callback drops every binding to a frozen channel, so the next request of
// each affected session is dispatched afresh:
//
//	bindings := session.NewBindings(logger)
//	tracker.SetFreezeCallback(func(source, channelID string) {
//	    bindings.EvictChannel(source, channelID)
//	})
package session
