// Package robot provides the actuator model of the lamp: angle types,
// per-motor calibration and the servo hardware boundary.
package robot

// MotorName identifies a motor of the lamp.
type MotorName string

// Motor names of the default lamp build.
const (
	ArmHorizontal MotorName = "bras_horizontal"
	Arm1          MotorName = "bras1"
	Arm2          MotorName = "bras2"
	Cone          MotorName = "cone"
)

// DefaultMotors returns the default motor names in servo ID order (1-4).
func DefaultMotors() []MotorName {
	return []MotorName{
		ArmHorizontal,
		Arm1,
		Arm2,
		Cone,
	}
}
