// Package eventbus is the publish/subscribe backbone of lamp.
//
// Producers call Emit with a topic and a list of arguments; every handler
// subscribed to that topic runs in its own goroutine. Emit never blocks and
// never waits for handlers. A handler that returns an error or panics is
// logged and otherwise ignored, so it cannot affect its siblings or later
// emissions.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/gwillem/lamp/internal/log"
)

// ErrNotSubscribed is returned when unsubscribing a registration that is not
// (or no longer) present on the topic.
var ErrNotSubscribed = errors.New("eventbus: not subscribed")

// Event is a single emission: a topic and its ordered arguments.
type Event struct {
	Topic string
	Args  []any
}

// Handler reacts to an event. The context is cancelled when the bus closes.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies one registration of a handler on a topic.
type Subscription struct {
	ID    uuid.UUID
	Topic string
}

// Bus dispatches events to handlers by topic.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]map[uuid.UUID]Handler
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[string]map[uuid.UUID]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = log.Component(b.logger, "eventbus")
	return b
}

// keyspace namespaces the name-based tokens of SubscribeKey.
var keyspace = uuid.MustParse("6f1c0a52-8d7e-4c1b-9a43-2f5e7b0d9c11")

// Subscribe registers h for topic and returns the registration token.
// Handlers of the same topic run in no particular order. Every call is a
// new registration; use SubscribeKey when registering twice must not run
// the handler twice.
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	sub := Subscription{ID: uuid.New(), Topic: topic}
	b.add(sub, h)
	return sub
}

// SubscribeKey registers h for topic under key. A key registers at most one
// handler per topic: subscribing an already registered key leaves the
// existing handler in place and returns the same token.
func (b *Bus) SubscribeKey(topic, key string, h Handler) Subscription {
	sub := Subscription{ID: uuid.NewSHA1(keyspace, []byte(key)), Topic: topic}
	b.add(sub, h)
	return sub
}

func (b *Bus) add(sub Subscription, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.handlers[sub.Topic]
	if !ok {
		set = make(map[uuid.UUID]Handler)
		b.handlers[sub.Topic] = set
	}
	if _, ok := set[sub.ID]; ok {
		return
	}
	set[sub.ID] = h
}

// Unsubscribe removes a registration. The topic entry is dropped once its
// last handler is gone.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.handlers[sub.Topic]
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrNotSubscribed, sub.Topic)
	}
	if _, ok := set[sub.ID]; !ok {
		return fmt.Errorf("%w: topic %q", ErrNotSubscribed, sub.Topic)
	}
	delete(set, sub.ID)
	if len(set) == 0 {
		delete(b.handlers, sub.Topic)
	}
	return nil
}

// Topics returns the number of topics that currently have handlers.
func (b *Bus) Topics() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Handlers returns the number of handlers registered for topic.
func (b *Bus) Handlers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Emit schedules every handler of topic with args and returns immediately.
// Emitting on a topic without handlers, or on a closed bus, does nothing.
func (b *Bus) Emit(topic string, args ...any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	set := b.handlers[topic]
	hs := make([]Handler, 0, len(set))
	for _, h := range set {
		hs = append(hs, h)
	}
	b.wg.Add(len(hs))
	b.mu.RUnlock()

	ev := Event{Topic: topic, Args: args}
	for _, h := range hs {
		go b.dispatch(h, ev)
	}
}

// Forward re-emits every event of topic from on topic to. Forwarding the
// same pair twice keeps a single forwarder.
func (b *Bus) Forward(from, to string) Subscription {
	return b.SubscribeKey(from, "forward:"+to, func(_ context.Context, ev Event) error {
		b.Emit(to, ev.Args...)
		return nil
	})
}

func (b *Bus) dispatch(h Handler, ev Event) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "topic", ev.Topic, "panic", r)
		}
	}()

	if err := h(b.ctx, ev); err != nil {
		b.logger.Warn("event handler failed", "topic", ev.Topic, "error", err)
	}
}

// Close stops accepting emissions and cancels the context passed to
// running handlers. It does not wait for them; use Wait for that.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
}

// Wait blocks until every handler scheduled so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
