// Package tracking turns camera frames into steady motion intents.
//
// A Tracker runs the locator of the active mode on every frame. When a
// target is found outside the dead zone and its on-screen speed is below
// the stability threshold, the tracker emits a move_tracking event with
// the target's normalized position. Fast or jittery targets are ignored
// until they settle.
package tracking

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
)

// Locator finds the tracked target in a frame. It returns the target's
// normalized position and whether it was found.
type Locator interface {
	Locate(f camera.Frame) (robot.Normalized, bool, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(f camera.Frame) (robot.Normalized, bool, error)

// Locate calls fn(f).
func (fn LocatorFunc) Locate(f camera.Frame) (robot.Normalized, bool, error) {
	return fn(f)
}

// Tracker is the tracking state machine.
type Tracker struct {
	bus      *eventbus.Bus
	cfg      Config
	logger   *slog.Logger
	locators map[Mode]Locator

	// mu serializes frame processing and mode changes.
	mu     sync.Mutex
	mode   Mode
	last   robot.Normalized
	lastAt time.Time
	seen   bool

	subs []eventbus.Subscription
}

// New creates a tracker. locators maps each mode to its locator; a mode
// without one never finds a target. bus may be nil, in which case nothing
// is emitted.
func New(bus *eventbus.Bus, locators map[Mode]Locator, cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{
		bus:      bus,
		cfg:      cfg,
		logger:   log.Component(cfg.Logger, "tracking"),
		locators: locators,
		mode:     cfg.Mode,
	}
}

// Mode returns the active mode.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// SetMode switches the tracking mode and forgets the last observation.
// hint is passed to the new mode's locator when it implements Hinter.
func (t *Tracker) SetMode(mode Mode, hint *Subject) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = mode
	t.resetLocked()
	if h, ok := t.locators[mode].(Hinter); ok {
		h.Hint(hint)
	}
	t.logger.Info("tracking mode changed", "mode", mode)
}

// ProcessFrame runs one step of the state machine. It returns the point
// that was emitted, if any.
func (t *Tracker) ProcessFrame(f camera.Frame) (robot.Normalized, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processLocked(f)
}

func (t *Tracker) processLocked(f camera.Frame) (robot.Normalized, bool) {
	if t.mode == ModeIdle {
		return robot.Normalized{}, false
	}
	loc, ok := t.locators[t.mode]
	if !ok {
		return robot.Normalized{}, false
	}

	p, found, err := loc.Locate(f)
	if err != nil {
		t.logger.Warn("locate failed", "mode", t.mode, "seq", f.Seq, "error", err)
		found = false
	}
	if !found {
		t.resetLocked()
		return robot.Normalized{}, false
	}

	now := t.cfg.Now()
	speed := 0.0
	if t.seen {
		speed = t.speed(p, now)
	}
	t.last, t.lastAt, t.seen = p, now, true

	if p.Norm() <= t.cfg.DeadZone || speed >= t.cfg.MaxSpeed {
		t.logger.Debug("target held", "x", p.X, "y", p.Y, "speed", speed)
		return robot.Normalized{}, false
	}

	if t.bus != nil {
		t.bus.Emit(eventbus.TopicMoveTracking, p)
	}
	return p, true
}

// speed returns the on-screen speed since the last observation in
// normalized units per second. Movement with no elapsed time is infinitely
// fast.
func (t *Tracker) speed(p robot.Normalized, now time.Time) float64 {
	dist := p.Distance(t.last)
	elapsed := now.Sub(t.lastAt).Seconds()
	if elapsed <= 0 {
		if dist == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return dist / elapsed
}

func (t *Tracker) resetLocked() {
	t.last, t.lastAt, t.seen = robot.Normalized{}, time.Time{}, false
}

// Attach subscribes the tracker to camera frames and mode changes. Frames
// that arrive while another frame is being processed are dropped.
func (t *Tracker) Attach() {
	if t.bus == nil || len(t.subs) > 0 {
		return
	}
	t.subs = []eventbus.Subscription{
		t.bus.Subscribe(eventbus.TopicCameraFrame, t.onFrame),
		t.bus.Subscribe(eventbus.TopicTrackingMode, t.onMode),
	}
}

// Detach removes the subscriptions made by Attach.
func (t *Tracker) Detach() {
	for _, sub := range t.subs {
		if err := t.bus.Unsubscribe(sub); err != nil {
			t.logger.Warn("unsubscribe failed", "topic", sub.Topic, "error", err)
		}
	}
	t.subs = nil
}

func (t *Tracker) onFrame(_ context.Context, ev eventbus.Event) error {
	f, err := eventbus.Arg[camera.Frame](ev, 0)
	if err != nil {
		return err
	}
	if !t.mu.TryLock() {
		t.logger.Debug("frame dropped", "seq", f.Seq)
		return nil
	}
	defer t.mu.Unlock()
	t.processLocked(f)
	return nil
}

func (t *Tracker) onMode(_ context.Context, ev eventbus.Event) error {
	mode, err := eventbus.Arg[Mode](ev, 0)
	if err != nil {
		return err
	}
	hint, _ := eventbus.OptionalArg[*Subject](ev, 1)
	t.SetMode(mode, hint)
	return nil
}
