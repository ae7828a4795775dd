package worker

import (
	"context"
	"log/slog"

	audit "warden/pkg/platform/audit"
)

// Appender receives audit events one at a time. audit.Store satisfies it;
// the publisher passes a composite that also feeds its sinks.
type Appender interface {
	Append(ctx context.Context, event audit.Event) error
}

// AppenderFunc adapts a function to the Appender interface.
type AppenderFunc func(ctx context.Context, event audit.Event) error

func (f AppenderFunc) Append(ctx context.Context, event audit.Event) error {
	return f(ctx, event)
}

// Worker consumes audit events from a channel and persists them. Append
// failures are logged, not fatal: the trail is best-effort and one bad
// event must not stall the ones behind it.
type Worker struct {
	appender Appender
	inbox    <-chan audit.Event
	logger   *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger for append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(appender Appender, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{appender: appender, inbox: inbox}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run processes events until the inbox is closed (returning nil after a
// full drain) or the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.appender.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "audit append failed",
					"action", event.Action, "error", err)
			}
		}
	}
}
