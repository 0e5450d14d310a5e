package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger on stdout tagged with the given service name.
func New(service string, level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, service, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return NewWithWriter(io.Discard, "discard", slog.LevelError+1)
}
