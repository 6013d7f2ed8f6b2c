package log

// Logger receives trace events. Implementations must be safe for concurrent
// use and must not block the caller for long; the bridge calls Log on its
// data path.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. Its zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
