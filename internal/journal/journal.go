// Package journal records the daemon's diagnostic events (startup,
// train detections, mode changes, storage self-healing) as CBOR
// records in an append-only file. It is purely observational: it
// never touches event-log storage, and the logger runs fine with
// journaling disabled.
package journal

// Logger is the sink for diagnostic events.
// Pass NoopLogger to disable journaling.
type Logger interface {
	// Log records a diagnostic event. Implementations must be
	// thread-safe and must not block the polling loop.
	Log(event Event)
}

// NoopLogger discards all events. Use when journaling is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
