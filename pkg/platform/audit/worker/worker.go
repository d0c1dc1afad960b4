package worker

import (
	"context"
	"log/slog"
	"time"

	audit "badgepass/pkg/platform/audit"
)

// DefaultAppendTimeout bounds one store append.
const DefaultAppendTimeout = 5 * time.Second

// Worker consumes audit events from a channel and persists them. A failed
// append is logged and skipped; audit loss never blocks the producer.
type Worker struct {
	store         audit.Store
	inbox         <-chan audit.Event
	logger        *slog.Logger
	onFail        func(audit.Event, error)
	appendTimeout time.Duration
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithFailureHook is called for every event the store rejects.
func WithFailureHook(fn func(audit.Event, error)) Option {
	return func(w *Worker) {
		w.onFail = fn
	}
}

// WithAppendTimeout caps each append so one stalled sink cannot hold up the
// events queued behind it. Non-positive values keep the default.
func WithAppendTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.appendTimeout = d
		}
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, appendTimeout: DefaultAppendTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until the inbox is closed and drained, or ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.persist(ctx, event)
		}
	}
}

func (w *Worker) persist(ctx context.Context, event audit.Event) {
	appendCtx, cancel := context.WithTimeout(ctx, w.appendTimeout)
	defer cancel()
	err := w.store.Append(appendCtx, event)
	if err == nil {
		return
	}
	if w.logger != nil {
		w.logger.WarnContext(ctx, "audit append failed",
			"action", event.Action,
			"badge_id", event.BadgeID,
			"error", err,
		)
	}
	if w.onFail != nil {
		w.onFail(event, err)
	}
}
