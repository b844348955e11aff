// Package publisher delivers audit events to a Store, either synchronously
// or through a buffered channel drained by a background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "concierge/pkg/domain"
	audit "concierge/pkg/platform/audit"
)

// Publisher fans audit events into a Store. Zero-value is not usable; use
// NewPublisher.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. Emit never blocks the request path; the buffer is
// drained on Close.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

// WithLogger attaches a logger for delivery failures. Async delivery has no
// caller to return errors to.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a publisher over the given store. Synchronous unless
// WithAsyncBuffer is supplied.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}

	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		// Delivery happens outside any request lifecycle.
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit event delivery failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// Emit records an audit event. In async mode a full buffer drops the event
// rather than stalling the request; the drop is logged.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
		)
	}
	return nil
}

// List returns recorded events for a user. Intended for tests and admin
// inspection, delegating straight to the store.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the async drainer after flushing buffered events. Safe to call
// more than once and on synchronous publishers.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}
