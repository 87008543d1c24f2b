package notification

import (
	"context"
	"log/slog"
	"time"
)

// EnqueueTimeout bounds how long a settlement path waits on the queue.
const EnqueueTimeout = 2 * time.Second

// Dispatcher hands messages to the delivery pipeline.
type Dispatcher interface {
	Enqueue(ctx context.Context, message Message) error
}

// Notify enqueues message with a bounded timeout and logs any failure. It never
// returns an error: callers have already committed the money movement.
func Notify(ctx context.Context, d Dispatcher, logger *slog.Logger, message Message) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), EnqueueTimeout)
	defer cancel()
	if err := d.Enqueue(ctx, message); err != nil {
		logger.Warn("notification enqueue failed",
			slog.String("kind", string(message.Kind)),
			slog.String("recipient", message.Recipient),
			slog.Any("error", err))
	}
}

// LoggerDispatcher writes notifications to the structured logger. It backs dev
// mode when no broker is configured.
type LoggerDispatcher struct {
	logger *slog.Logger
}

// NewLoggerDispatcher constructs a logging dispatcher.
func NewLoggerDispatcher(logger *slog.Logger) *LoggerDispatcher {
	return &LoggerDispatcher{logger: logger}
}

// Enqueue logs the message kind and recipient. Codes are never logged.
func (d *LoggerDispatcher) Enqueue(_ context.Context, message Message) error {
	if d == nil || d.logger == nil {
		return nil
	}
	attrs := []any{slog.String("kind", string(message.Kind)), slog.String("recipient", message.Recipient)}
	if a := message.BalanceAlert; a != nil {
		attrs = append(attrs, slog.String("alert_type", string(a.AlertType)),
			slog.String("reference", a.Reference), slog.Int64("amount", a.Amount))
	}
	d.logger.Info("notification", attrs...)
	return nil
}
