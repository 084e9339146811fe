package tracking

import (
	"log/slog"
	"time"
)

// Config holds the tracking parameters.
type Config struct {
	// DeadZone is the radius around the frame center, in normalized units,
	// inside which a target counts as centered.
	DeadZone float64

	// MaxSpeed is the stability threshold in normalized units per second.
	// Targets moving at or above it are not followed.
	MaxSpeed float64

	// Mode is the initial tracking mode.
	Mode Mode

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// DefaultConfig returns the defaults used on the lamp.
func DefaultConfig() Config {
	return Config{
		DeadZone: 0.5,
		MaxSpeed: 1.0,
		Mode:     ModeIdle,
		Now:      time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DeadZone <= 0 {
		c.DeadZone = def.DeadZone
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = def.MaxSpeed
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	return c
}
