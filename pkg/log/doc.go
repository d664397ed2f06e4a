// Package log provides structured event capture for the bridge.
//
// This package defines the Logger interface and Event types for recording
// what happens at the bridge boundaries: southbound session state changes,
// per-tag subscription results, sync tick summaries, and errors. It is
// separate from operational logging (slog). The event log is a complete
// machine-readable trace for debugging and offline analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/tagbridge/bridge.tlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys, using
// the .tlog extension. The tagbridge-log tool views, summarizes and
// exports them.
package log
