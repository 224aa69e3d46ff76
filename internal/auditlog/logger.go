package auditlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
)

// Logger stamps events with time and request origin and appends them to a Store.
// A failed append is reported on the process log and counted; it never aborts the
// request, since the delivery receipt is the record other systems reconcile against.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger returns a Logger writing to store.
func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Store returns the underlying store for readers.
func (l *Logger) Store() Store { return l.store }

// Record appends one event.
func (l *Logger) Record(ctx context.Context, level Level, tag Tag, data map[string]interface{}) {
	origin := OriginFrom(ctx)
	if data == nil {
		data = map[string]interface{}{}
	}
	ev := Event{
		Timestamp: l.now(),
		Level:     level,
		Message:   tag,
		Data:      data,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	}
	if err := l.store.Append(ctx, ev); err != nil {
		metrics.AuditWriteFailures.Inc()
		slog.ErrorContext(ctx, "audit append failed", "tag", tag, "err", err)
		return
	}
	metrics.AuditEvents.WithLabelValues(string(level)).Inc()
}

func (l *Logger) Info(ctx context.Context, tag Tag, data map[string]interface{}) {
	l.Record(ctx, LevelInfo, tag, data)
}

func (l *Logger) Warn(ctx context.Context, tag Tag, data map[string]interface{}) {
	l.Record(ctx, LevelWarning, tag, data)
}

func (l *Logger) Error(ctx context.Context, tag Tag, data map[string]interface{}) {
	l.Record(ctx, LevelError, tag, data)
}

func (l *Logger) Critical(ctx context.Context, tag Tag, data map[string]interface{}) {
	l.Record(ctx, LevelCritical, tag, data)
}
