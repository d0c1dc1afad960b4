package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/audit/worker"
)

var (
	auditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "badgepass_audit_events_dropped_total",
		Help: "Audit events dropped because the async buffer was full",
	})
	auditFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "badgepass_audit_events_failed_total",
		Help: "Audit events the store rejected",
	})
)

// Publisher fronts an audit.Store. In sync mode Emit appends inline; with an
// async buffer a single worker goroutine appends in the background and Emit
// never blocks the caller.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	bufferSize    int
	appendTimeout time.Duration
	inbox         chan audit.Event
	done          chan struct{}
	stop          context.CancelFunc

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithAppendTimeout bounds each background append (async mode only).
func WithAppendTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.appendTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox,
			worker.WithLogger(p.logger),
			worker.WithAppendTimeout(p.appendTimeout),
			worker.WithFailureHook(func(audit.Event, error) { auditFailed.Inc() }),
		)
		runCtx, stop := context.WithCancel(context.Background())
		p.stop = stop
		go func() {
			defer close(p.done)
			_ = w.Run(runCtx)
		}()
	}
	return p
}

// Emit records an event, filling in the timestamp and category when unset.
// In async mode a full buffer drops the event rather than stall the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			auditFailed.Inc()
			return err
		}
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		auditDropped.Inc()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"badge_id", event.BadgeID,
			)
		}
	}
	return nil
}

// Close stops accepting events and waits for buffered ones to be written.
func (p *Publisher) Close() {
	_ = p.Shutdown(context.Background())
}

// Shutdown stops accepting events and drains the buffer until ctx ends. On
// expiry the worker is cancelled, events still queued are abandoned and
// ctx.Err() is returned.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
	if p.inbox == nil {
		return nil
	}
	select {
	case <-p.done:
		p.stop()
		return nil
	case <-ctx.Done():
		p.stop()
		return ctx.Err()
	}
}
