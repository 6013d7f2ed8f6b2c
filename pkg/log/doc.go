// Package log provides protocol tracing for the bridge.
//
// This package defines the Logger interface and Event types that record what
// the bridge did with every chunk of input: which channel it arrived on, where
// it was forwarded, which ownership transitions it caused and which conflicts
// it produced. It is separate from operational logging (slog); a trace is a
// complete machine-readable record for debugging a misbehaving link.
//
// # Basic Usage
//
//	// Development: trace to the console through slog
//	trace := log.NewSlogAdapter(slog.Default())
//
//	// Production: append CBOR events to a file
//	trace, _ := log.NewFileLogger("/var/log/btserial/bridge.blog")
//
//	// Both
//	trace := log.NewMultiLogger(consoleTrace, fileTrace)
//
// # Event Types
//
//   - Frame: bytes received from or written to a channel
//   - StateChange: ownership state machine transitions
//   - Conflict: input rejected because another channel owns the bridge
//   - Error: transport and storage failures
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer map keys
// (.blog extension). The btserial-log tool views and summarizes them.
package log
