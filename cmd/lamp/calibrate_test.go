package main

import (
	"testing"

	"github.com/gwillem/lamp/pkg/robot"
)

func TestRestOffset(t *testing.T) {
	tests := []struct {
		name    string
		enc     robot.EncodedAngle
		reverse bool
	}{
		{"center", 2048, false},
		{"center reversed", 2048, true},
		{"quarter", 1024, false},
		{"zero", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cal := robot.Calibration{Offset: restOffset(tc.enc, tc.reverse), Reverse: tc.reverse}
			if got := cal.ToWorld(tc.enc); got != 0 {
				t.Errorf("rest pose reads %v°, want 0°", got)
			}
		})
	}
}

func TestServoFrame(t *testing.T) {
	enc := robot.EncodedAngle(1024) // 90°

	plain := robot.Calibration{Offset: 30}
	if got := servoFrame(plain, enc); got != 90 {
		t.Errorf("servoFrame without reverse = %v, want 90", got)
	}

	// A world command that reads back as the current position is checked
	// against this angle.
	rev := robot.Calibration{Offset: 30, Reverse: true}
	world := rev.ToWorld(enc)
	if got, want := servoFrame(rev, enc), rev.FromWorld(world); got != want {
		t.Errorf("servoFrame reversed = %v, want %v", got, want)
	}
}

func TestRangeModel_Observe(t *testing.T) {
	m := newRangeModel(nil, []robot.MotorName{robot.Cone})
	for _, a := range []robot.Angle{10, -20, 35, 5} {
		m.observe(robot.Cone, a)
	}

	r := m.ranges[robot.Cone]
	if r.cur != 5 || r.min != -20 || r.max != 35 {
		t.Errorf("got cur=%v min=%v max=%v, want 5 -20 35", r.cur, r.min, r.max)
	}
	if c := r.constraint(); c.Min != -20 || c.Max != 35 {
		t.Errorf("constraint = %v", c)
	}
	if r.width() != 55 {
		t.Errorf("width = %v, want 55", r.width())
	}
}

func TestWithout(t *testing.T) {
	got := without(robot.DefaultMotors(), robot.Arm1)
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	for _, n := range got {
		if n == robot.Arm1 {
			t.Errorf("%s not removed", robot.Arm1)
		}
	}
}
