package controller

import (
	"fmt"

	"github.com/gwillem/lamp/pkg/robot"
)

// ProportionalSteering returns a Steering that nudges the pan motor by
// -gain·x and the tilt motor by +gain·y degrees, where x and y are the
// normalized offsets of the tracked point from the frame center.
func ProportionalSteering(pan, tilt robot.MotorName, gain float64) Steering {
	return func(target robot.Normalized, current map[robot.MotorName]robot.Angle) (map[robot.MotorName]robot.Angle, error) {
		next := make(map[robot.MotorName]robot.Angle, 2)
		if a, ok := current[pan]; ok {
			next[pan] = a - robot.Angle(gain*target.X)
		}
		if a, ok := current[tilt]; ok {
			next[tilt] = a + robot.Angle(gain*target.Y)
		}
		if len(next) == 0 {
			return nil, fmt.Errorf("motors %s and %s unreadable", pan, tilt)
		}
		return next, nil
	}
}
