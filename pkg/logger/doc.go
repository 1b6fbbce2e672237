// Package logger builds the application's structured slog logger.
// Development environments get human-readable text output and production
// gets JSON, both tagged with the environment name.
package logger
