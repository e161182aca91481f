// Package eventbus is an in-process pub/sub bus for domain events. Events are
// dispatched to subscribers by one consumer goroutine; delivery is best-effort.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type Bus struct {
	log         *slog.Logger
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan Event
	done        chan struct{}
	closed      bool
	stopOnce    sync.Once
}

type namedHandler struct {
	name    string
	handler Handler
}

func New(log *slog.Logger, bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		log:    log,
		events: make(chan Event, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish never blocks: when the buffer is full or the bus is stopped the
// event is dropped.
func (b *Bus) Publish(_ context.Context, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.log.Warn("eventbus: stopped, dropping event",
			slog.String("type", evt.Type),
			slog.String("id", evt.ID),
		)
		return
	}

	select {
	case b.events <- evt:
	default:
		b.log.Warn("eventbus: buffer full, dropping event",
			slog.String("type", evt.Type),
			slog.String("id", evt.ID),
		)
	}
}

// Start runs the consumer until Stop is called. Handlers receive ctx without
// its cancellation, so events published while the server shuts down are
// still delivered.
func (b *Bus) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(b.done)
		for evt := range b.events {
			b.dispatch(ctx, evt)
		}
	}()
}

// Stop closes the bus and waits for the consumer to drain it. Publish calls
// after Stop are dropped.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.events)
		b.mu.Unlock()
		<-b.done
	})
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Error("eventbus: handler failed",
				slog.String("handler", s.name),
				slog.String("type", evt.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}
