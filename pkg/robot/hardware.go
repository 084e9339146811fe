package robot

import "context"

// ModePosition is the operating-mode register value of a servo in
// positional control.
const ModePosition byte = 0

// Motion holds the speed and acceleration used for position writes.
type Motion struct {
	Speed int
	Accel int
}

// DefaultMotion is the speed/acceleration pair used for every move.
var DefaultMotion = Motion{Speed: 300, Accel: 20}

// Hardware is the servo bus as seen by a Motor. Implementations must be
// safe for concurrent use.
type Hardware interface {
	// Ping checks that servo id answers on the bus.
	Ping(ctx context.Context, id int) error
	// ReadMode reads the operating-mode register.
	ReadMode(ctx context.Context, id int) (byte, error)
	// ReadPosition reads the present position in encoder ticks.
	ReadPosition(ctx context.Context, id int) (int, error)
	// WritePosition moves the servo to ticks.
	WritePosition(ctx context.Context, id int, ticks int, m Motion) error
	// WriteTorque locks (true) or releases (false) the servo.
	WriteTorque(ctx context.Context, id int, enable bool) error
}
