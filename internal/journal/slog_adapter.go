package journal

import (
	"context"
	"log/slog"
)

// SlogAdapter writes diagnostic events to an slog.Logger.
// Useful for development when you want to see the journal stream in
// the console instead of (or alongside) the CBOR file.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Info level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("type", event.Type.String()),
		slog.String("session", event.SessionID),
	}

	if event.Mode != "" {
		attrs = append(attrs, slog.String("mode", event.Mode))
	}
	if event.Seconds != 0 {
		attrs = append(attrs, slog.Int64("seconds", int64(event.Seconds)))
	}
	if event.Address != 0 {
		attrs = append(attrs, slog.Int("address", event.Address))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "journal event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
