package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. The service name and worker
// identity ride along on every line so logs from scaled replicas stay attributable.
func New(service, workerID string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With(
		"service", service,
		"worker_id", workerID,
	)
}
