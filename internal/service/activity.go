package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/palmcove/resortd/internal/model"
)

// ActivityWriter persists activity entries. *store.Store implements it.
type ActivityWriter interface {
	InsertActivity(ctx context.Context, e *model.ActivityEntry) error
}

// ActivityLogger records authentication events. Recording is best-effort:
// a failed insert is written to the server log and otherwise ignored so it
// never blocks a login or logout.
type ActivityLogger struct {
	w       ActivityWriter
	logger  *slog.Logger
	timeout time.Duration
}

// NewActivityLogger returns an ActivityLogger writing through w.
func NewActivityLogger(w ActivityWriter, logger *slog.Logger) *ActivityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityLogger{w: w, logger: logger, timeout: 2 * time.Second}
}

// Record stores e. It survives cancellation of ctx so that an entry is still
// written when the client disconnects mid-request.
func (l *ActivityLogger) Record(ctx context.Context, e model.ActivityEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.w.InsertActivity(ctx, &e); err != nil {
		l.logger.Error("activity log write failed",
			"event", e.Event,
			"outcome", e.Outcome,
			"role", e.Role,
			"error", err,
		)
	}
}
