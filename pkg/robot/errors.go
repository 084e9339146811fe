package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMotor is matched by UnknownMotorError.
	ErrUnknownMotor = errors.New("unknown motor")

	// ErrConstraintViolation is matched by ConstraintViolationError.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrHardwareComm is matched by CommError.
	ErrHardwareComm = errors.New("hardware communication failed")

	// ErrAngleRange is returned for angles outside [-360, 360].
	ErrAngleRange = errors.New("angle out of range [-360, 360]")

	// ErrEncodedRange is returned for encoder values outside [0, 4096).
	ErrEncodedRange = errors.New("encoded angle out of range [0, 4096)")
)

// UnknownMotorError reports a motor name that is not registered.
type UnknownMotorError struct {
	Name MotorName
}

func (e *UnknownMotorError) Error() string {
	return fmt.Sprintf("motor %s doesn't exist", e.Name)
}

// Is reports whether target is ErrUnknownMotor.
func (e *UnknownMotorError) Is(target error) bool {
	return target == ErrUnknownMotor
}

// ConstraintViolationError reports a world angle rejected by a motor's
// constraint. Effective is the angle after reversal and offset, which is the
// value checked against Constraint.
type ConstraintViolationError struct {
	Motor      MotorName
	Requested  Angle
	Effective  Angle
	Constraint Constraint
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("motor %s cancel world angle command %.2f° (%.2f° outside %s)",
		e.Motor, float64(e.Requested), float64(e.Effective), e.Constraint)
}

// Is reports whether target is ErrConstraintViolation.
func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// CommError wraps a transport failure talking to a servo.
type CommError struct {
	Motor MotorName
	Op    string
	Err   error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("motor %s: %s: %v", e.Motor, e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *CommError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrHardwareComm.
func (e *CommError) Is(target error) bool {
	return target == ErrHardwareComm
}
