// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"supervisor": "debug", // Per-module overrides
//			"ffmpeg":     "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Session started", "session_id", id)
//
// Child process output is logged under the "ffmpeg" and "mediamtx" modules so the
// transcoder and media server can be silenced independently of the launcher itself.
//
// # Viewing Logs
//
// When running under systemd or on a system with journald:
//
//	journalctl -t rtspcam              # All rtspcam logs
//	journalctl -t rtspcam MODULE=ffmpeg
//	journalctl -t rtspcam SESSION_ID=...
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	supervisor = "debug"
//	mediamtx = "warn"
package logging
