package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/eventbus"
)

// Dispatch publishes the events for every action of r, then the text on
// TopicTalk.
func Dispatch(bus *eventbus.Bus, r Response) error {
	for _, a := range r.Actions {
		switch a := a.(type) {
		case LightAction:
			bus.Emit(eventbus.TopicLightSet, a.Percent)
		case TrackingAction:
			bus.Emit(eventbus.TopicTrackingMode, a.Mode, a.Subject)
		default:
			return fmt.Errorf("unhandled action %T", a)
		}
	}
	if r.Text != "" {
		bus.Emit(eventbus.TopicTalk, r.Text)
	}
	return nil
}

// Dispatcher consumes TopicAIResponse events.
type Dispatcher struct {
	bus    *eventbus.Bus
	logger *slog.Logger

	mu  sync.Mutex
	sub *eventbus.Subscription
}

// NewDispatcher creates a dispatcher on bus.
func NewDispatcher(bus *eventbus.Bus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{bus: bus, logger: log.Component(logger, "assistant")}
}

// Attach subscribes to TopicAIResponse.
func (d *Dispatcher) Attach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub != nil {
		return
	}
	sub := d.bus.Subscribe(eventbus.TopicAIResponse, d.onResponse)
	d.sub = &sub
}

// Detach removes the subscription made by Attach.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub == nil {
		return
	}
	if err := d.bus.Unsubscribe(*d.sub); err != nil {
		d.logger.Warn("unsubscribe failed", "error", err)
	}
	d.sub = nil
}

func (d *Dispatcher) onResponse(_ context.Context, ev eventbus.Event) error {
	r, err := eventbus.Arg[Response](ev, 0)
	if err != nil {
		return err
	}
	d.logger.Info("assistant response", "emote", r.Emote, "actions", len(r.Actions))
	return Dispatch(d.bus, r)
}
