// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the service configuration: listen
// address and timeouts, logging, the health tracker's freeze ladder, probe
// timeouts and caching, and the channel list.
//
// Environment variables override file values with dots replaced by
// underscores, for example HEALTH_FAILURE_THRESHOLD or PROBE_TIMEOUT.
package config
