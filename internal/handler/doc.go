// Package handler implements the admin HTTP API over channel health and
// latency probes.
//
// Routes are registered on a chi router by AdminHandler.Routes:
//
//	GET  /channels                       configured channels with health and cached latency
//	GET  /channels/health?source=        every tracked channel of a source
//	GET  /channels/{source}:{id}         one channel by key, with cached latency
//	GET  /channels/{source}/{id}/health  one channel
//	POST /channels/{source}/{id}/reset   force a channel back to healthy
//	POST /speedtest                      probe channels and rank them
//	GET  /speedtest/{id}                 last cached probe of a channel
package handler
