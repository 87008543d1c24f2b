package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog logger configured at the provided level and tagged
// with the application name. If the level string is invalid it defaults to info.
func New(level, app string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("app", app))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// ReconciliationRequired logs a ledger/balance divergence at error level with
// the attribute reconciliation tooling filters on.
func ReconciliationRequired(logger *slog.Logger, msg string, attrs ...any) {
	attrs = append(attrs, slog.Bool("reconciliation_required", true))
	logger.Error(msg, attrs...)
}
