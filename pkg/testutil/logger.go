package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops everything. Keeps test output
// readable while satisfying constructors that require a logger.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
