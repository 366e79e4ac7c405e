// Package publisher is the audit emission front door for domain services.
// Emission is synchronous by default; an async buffer can be enabled for
// high-volume operational events where the caller must not block.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	id "regdesk/pkg/domain"
	audit "regdesk/pkg/platform/audit"
)

// Lister is implemented by stores that can read events back. The outbox
// store cannot; the in-memory store used in tests can.
type Lister interface {
	ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]audit.Event, error)
}

// Publisher routes audit events to the configured store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for async error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer enables asynchronous emission with the given buffer
// size. When the buffer is full Emit degrades to a synchronous write
// rather than dropping the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
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
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one audit event. A zero timestamp is stamped here so call
// sites stay terse.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer != nil {
		select {
		case p.buffer <- event:
			return nil
		default:
			// Buffer full; fall through to the synchronous path.
		}
	}
	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// List reads back events for one registration if the store supports it.
func (p *Publisher) List(ctx context.Context, regID id.RegistrationID) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, fmt.Errorf("audit store does not support listing")
	}
	return lister.ListByRegistration(ctx, regID)
}

// Close flushes the async buffer and stops the drain goroutine.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("async audit append failed",
				"action", event.Action,
				"registration_id", string(event.RegistrationID),
				"error", err)
		}
	}
}
