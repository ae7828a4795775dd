// Package publisher is the write path of the audit trail. Workflow code
// emits events here; the publisher stamps them, persists them to the store
// and fans them out to optional sinks (e.g. a Kafka stream).
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by async Emit when the buffer has no room.
// The event is dropped rather than blocking the workflow.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by async Emit once Close has started draining.
// An emitter racing shutdown loses its event; it never reaches the inbox.
var ErrClosed = errors.New("audit publisher closed")

// Sink receives a copy of every emitted event, best-effort. Sink errors
// are logged and counted, never propagated to the emitter.
type Sink interface {
	Publish(ctx context.Context, event audit.Event) error
}

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	sinks  []Sink

	inbox   chan audit.Event
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once

	// mu orders the async send against Close: the inbox is closed only
	// under the write lock, after every in-flight send released its
	// read lock.
	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches Emit to a non-blocking buffered mode drained by
// a background worker. A full buffer drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets the logger for persistence and sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSink adds a fan-out sink.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// NewPublisher creates a publisher over the given store. Synchronous by
// default; see WithAsyncBuffer.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		w := worker.NewWorker(worker.AppenderFunc(p.persist), p.inbox, worker.WithLogger(p.logger))
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records one audit event. A zero Timestamp is stamped with the
// current time, a missing ID gets a UUID. In async mode a full buffer
// drops the event and returns ErrBufferFull, and Emit after Close returns
// ErrClosed; callers on the workflow path treat any error here as
// log-and-continue.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.inbox <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.dropped.Add(1)
	return ErrBufferFull
}

// Close drains the async buffer and stops the worker. Safe to call on a
// synchronous publisher and safe to call twice.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
		if dropped := p.dropped.Load(); dropped > 0 {
			p.logger.Warn("audit events dropped on full buffer", "count", dropped)
		}
	})
}

// Dropped reports how many events were discarded on a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// List returns the audit trail of one participant, newest first.
func (p *Publisher) List(ctx context.Context, participantID string) ([]audit.Event, error) {
	return p.store.ListByParticipant(ctx, participantID)
}

// ListRecent returns up to limit events for a community, newest first.
func (p *Publisher) ListRecent(ctx context.Context, communityID string, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, communityID, limit)
}

// Stats aggregates a community's trail.
func (p *Publisher) Stats(ctx context.Context, communityID string) (audit.Stats, error) {
	return p.store.Stats(ctx, communityID)
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Publish(ctx, event); sinkErr != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action, "error", sinkErr)
		}
	}
	return err
}
