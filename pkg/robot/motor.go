package robot

import (
	"context"
	"sync"
)

// Calibration is the per-motor mapping between encoder and world angles.
type Calibration struct {
	Offset     Angle
	Constraint Constraint
	Reverse    bool
}

// Motor is one servo of the lamp. It owns the servo's calibration and
// converts between world angles and encoder ticks; the position itself is
// always read from the hardware.
type Motor struct {
	name   MotorName
	id     int
	hw     Hardware
	motion Motion

	mu  sync.RWMutex
	cal Calibration
}

// NewMotor creates a motor driving servo id on hw.
func NewMotor(hw Hardware, id int, name MotorName, cal Calibration) *Motor {
	return &Motor{
		name:   name,
		id:     id,
		hw:     hw,
		motion: DefaultMotion,
		cal:    cal,
	}
}

// Name returns the motor name.
func (m *Motor) Name() MotorName { return m.name }

// ID returns the servo ID on the bus.
func (m *Motor) ID() int { return m.id }

// Calibration returns a copy of the current calibration.
func (m *Motor) Calibration() Calibration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cal
}

func (m *Motor) Offset() Angle { return m.Calibration().Offset }

func (m *Motor) Constraint() Constraint { return m.Calibration().Constraint }

func (m *Motor) Reverse() bool { return m.Calibration().Reverse }

// SetOffset changes the world offset.
func (m *Motor) SetOffset(offset Angle) {
	m.mu.Lock()
	m.cal.Offset = offset
	m.mu.Unlock()
}

// SetConstraint changes the allowed sweep.
func (m *Motor) SetConstraint(c Constraint) {
	m.mu.Lock()
	m.cal.Constraint = c
	m.mu.Unlock()
}

// SetReverse changes the rotation direction.
func (m *Motor) SetReverse(reverse bool) {
	m.mu.Lock()
	m.cal.Reverse = reverse
	m.mu.Unlock()
}

// Check pings the servo and verifies it is in positional mode.
func (m *Motor) Check(ctx context.Context) bool {
	if err := m.hw.Ping(ctx, m.id); err != nil {
		return false
	}
	mode, err := m.hw.ReadMode(ctx, m.id)
	if err != nil {
		return false
	}
	return mode == ModePosition
}

// EncodedAngle reads the raw encoder position. A failed read is returned as
// a CommError, never as a zero position.
func (m *Motor) EncodedAngle(ctx context.Context) (EncodedAngle, error) {
	ticks, err := m.hw.ReadPosition(ctx, m.id)
	if err != nil {
		return 0, &CommError{Motor: m.name, Op: "read position", Err: err}
	}
	enc, err := NewEncodedAngle(ticks)
	if err != nil {
		return 0, &CommError{Motor: m.name, Op: "read position", Err: err}
	}
	return enc, nil
}

// SetEncodedAngle writes a raw encoder position. The constraint is not
// checked; this is the path for calibration and diagnostics.
func (m *Motor) SetEncodedAngle(ctx context.Context, enc EncodedAngle) error {
	if err := m.hw.WritePosition(ctx, m.id, enc.Ticks(), m.motion); err != nil {
		return &CommError{Motor: m.name, Op: "write position", Err: err}
	}
	return nil
}

// WorldAngle reads the calibrated joint angle.
func (m *Motor) WorldAngle(ctx context.Context) (Angle, error) {
	enc, err := m.EncodedAngle(ctx)
	if err != nil {
		return 0, err
	}
	return m.Calibration().ToWorld(enc), nil
}

// SetWorldAngle moves the motor to a calibrated joint angle. The angle after
// reversal and offset must lie strictly inside the constraint; otherwise a
// ConstraintViolationError is returned and nothing is written.
func (m *Motor) SetWorldAngle(ctx context.Context, a Angle) error {
	cal := m.Calibration()
	target := cal.FromWorld(a)
	if !cal.Constraint.Allows(target) {
		return &ConstraintViolationError{
			Motor:      m.name,
			Requested:  a,
			Effective:  target,
			Constraint: cal.Constraint,
		}
	}
	return m.SetEncodedAngle(ctx, target.Encoded())
}

// SetTorque locks (true) or releases (false) the servo.
func (m *Motor) SetTorque(ctx context.Context, enable bool) error {
	if err := m.hw.WriteTorque(ctx, m.id, enable); err != nil {
		return &CommError{Motor: m.name, Op: "write torque", Err: err}
	}
	return nil
}

// ToWorld converts an encoder reading to a world angle.
func (c Calibration) ToWorld(enc EncodedAngle) Angle {
	deg := enc.Angle()
	if c.Reverse {
		deg = -deg
	}
	return deg - c.Offset
}

// FromWorld converts a world angle to the servo-frame angle that is checked
// against the constraint and encoded.
func (c Calibration) FromWorld(a Angle) Angle {
	if c.Reverse {
		a = -a
	}
	return a + c.Offset
}
