// Package publisher emits audit events to a backing store.
//
// Issuance events are written synchronously: mint audit is part of the paper
// trail and the caller decides whether a failed write fails the operation.
// Operational events may be buffered with WithAsyncBuffer so watcher polls
// never block on audit persistence.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "whaled/pkg/platform/audit"
)

// Publisher writes audit events to a store, optionally through an async buffer.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for drop/error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer makes Emit non-blocking for operations-category events
// through a buffered channel drained by a background goroutine. Operations
// events are dropped (and logged) when the buffer is full; issuance and
// security events always write through synchronously.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. Stamps the timestamp if unset and derives the
// category from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	// Only operations events may ride the lossy buffer; issuance and
	// security events are part of the paper trail and write through.
	if p.inbox != nil && event.Category == audit.CategoryOperations {
		select {
		case p.inbox <- event:
			return nil
		default:
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
			)
			return nil
		}
	}

	return p.store.Append(ctx, event)
}

// List returns the most recent events from the backing store.
func (p *Publisher) List(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops the async drain goroutine, flushing buffered events first.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist buffered audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
