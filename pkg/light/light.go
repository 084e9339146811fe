// Package light drives the lamp's LED through a PWM channel.
package light

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/eventbus"
)

// Percent is a brightness between 0 and 100.
type Percent float64

// Validate checks that p lies in [0, 100].
func (p Percent) Validate() error {
	if math.IsNaN(float64(p)) || p < 0 || p > 100 {
		return fmt.Errorf("brightness %v out of range [0, 100]", float64(p))
	}
	return nil
}

// PWM is a duty-cycle output. Duty cycles are percentages.
type PWM interface {
	SetDuty(duty float64) error
	Duty() float64
	Close() error
}

// Config maps brightness onto a duty-cycle window.
type Config struct {
	MinDuty float64 // duty at 0%
	MaxDuty float64 // duty at 100%
	Logger  *slog.Logger
}

// DefaultConfig uses the full duty-cycle range.
func DefaultConfig() Config {
	return Config{MinDuty: 0, MaxDuty: 100}
}

// Light is a dimmable light.
type Light struct {
	pwm    PWM
	bus    *eventbus.Bus
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	sub *eventbus.Subscription
}

// New creates a light on pwm. bus may be nil.
func New(bus *eventbus.Bus, pwm PWM, cfg Config) (*Light, error) {
	if cfg.MinDuty < 0 || cfg.MaxDuty > 100 || cfg.MinDuty >= cfg.MaxDuty {
		return nil, fmt.Errorf("invalid duty window [%v, %v]", cfg.MinDuty, cfg.MaxDuty)
	}
	return &Light{
		pwm:    pwm,
		bus:    bus,
		cfg:    cfg,
		logger: log.Component(cfg.Logger, "light"),
	}, nil
}

// Set changes the brightness.
func (l *Light) Set(p Percent) error {
	if err := p.Validate(); err != nil {
		return err
	}
	duty := l.cfg.MinDuty + (l.cfg.MaxDuty-l.cfg.MinDuty)*float64(p)/100
	if err := l.pwm.SetDuty(duty); err != nil {
		return fmt.Errorf("set duty %.1f%%: %w", duty, err)
	}
	l.logger.Debug("light set", "percent", float64(p), "duty", duty)
	return nil
}

// Get returns the current brightness, rounded to a whole percent.
func (l *Light) Get() Percent {
	span := l.cfg.MaxDuty - l.cfg.MinDuty
	p := (l.pwm.Duty() - l.cfg.MinDuty) / span * 100
	return Percent(math.Round(math.Min(math.Max(p, 0), 100)))
}

// Attach subscribes the light to TopicLightSet.
func (l *Light) Attach() {
	if l.bus == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		return
	}
	sub := l.bus.Subscribe(eventbus.TopicLightSet, l.onSet)
	l.sub = &sub
}

func (l *Light) onSet(_ context.Context, ev eventbus.Event) error {
	p, err := eventbus.Arg[Percent](ev, 0)
	if err != nil {
		return err
	}
	return l.Set(p)
}

// Close detaches from the bus and stops the PWM output.
func (l *Light) Close() error {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub != nil {
		if err := l.bus.Unsubscribe(*sub); err != nil {
			l.logger.Warn("unsubscribe failed", "error", err)
		}
	}
	return l.pwm.Close()
}
