package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// LogStore is the slice of the run store the log handler needs.
type LogStore interface {
	SaveRunLog(ctx context.Context, runID string, ts time.Time, level, message string, metadata json.RawMessage) error
}

// DBLogHandler is a slog.Handler that persists pipeline log records for one
// run, so run logs can be fetched after the fact.
type DBLogHandler struct {
	store LogStore
	runID string
}

func NewDBLogHandler(store LogStore, runID string) *DBLogHandler {
	return &DBLogHandler{store: store, runID: runID}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	// Background context so log lines persist even if the request context
	// has been cancelled.
	return h.store.SaveRunLog(context.Background(), h.runID, r.Time, r.Level.String(), r.Message, metaJSON)
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
