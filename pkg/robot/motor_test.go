package robot_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/robot/robottest"
)

func newMotor(hw robot.Hardware, cal robot.Calibration) *robot.Motor {
	return robot.NewMotor(hw, 1, robot.Cone, cal)
}

func TestMotor_SetWorldAngle(t *testing.T) {
	tests := []struct {
		name   string
		cal    robot.Calibration
		angle  robot.Angle
		writes bool
		ticks  int
	}{
		{
			name:   "inside constraint",
			cal:    robot.Calibration{Constraint: robot.FullRange},
			angle:  90,
			writes: true,
			ticks:  1024,
		},
		{
			name:  "on upper bound",
			cal:   robot.Calibration{Constraint: robot.Constraint{Min: -90, Max: 90}},
			angle: 90,
		},
		{
			name:  "on lower bound",
			cal:   robot.Calibration{Constraint: robot.Constraint{Min: -90, Max: 90}},
			angle: -90,
		},
		{
			name:   "offset moves into range",
			cal:    robot.Calibration{Offset: 30, Constraint: robot.Constraint{Min: 0, Max: 180}},
			angle:  -10,
			writes: true,
			ticks:  228, // 20° -> round(227.56)
		},
		{
			name:  "offset moves out of range",
			cal:   robot.Calibration{Offset: 100, Constraint: robot.Constraint{Min: -180, Max: 180}},
			angle: 90,
		},
		{
			name:   "reverse negates before offset",
			cal:    robot.Calibration{Offset: 10, Reverse: true, Constraint: robot.FullRange},
			angle:  45,
			writes: true,
			ticks:  3698, // -35° wraps to 325°
		},
		{
			name:  "inverted constraint rejects everything",
			cal:   robot.Calibration{Constraint: robot.Constraint{Min: 90, Max: -90}},
			angle: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hw := robottest.New(1)
			m := newMotor(hw, tc.cal)

			err := m.SetWorldAngle(context.Background(), tc.angle)

			if !tc.writes {
				var cv *robot.ConstraintViolationError
				require.ErrorAs(t, err, &cv)
				assert.ErrorIs(t, err, robot.ErrConstraintViolation)
				assert.Equal(t, robot.Cone, cv.Motor)
				assert.Equal(t, tc.angle, cv.Requested)
				assert.Empty(t, hw.Writes(), "rejected command must not reach hardware")
				return
			}

			require.NoError(t, err)
			writes := hw.Writes()
			require.Len(t, writes, 1)
			assert.Equal(t, 1, writes[0].ID)
			assert.Equal(t, tc.ticks, writes[0].Ticks)
			assert.Equal(t, robot.DefaultMotion, writes[0].Motion)
		})
	}
}

func TestMotor_WorldAngle(t *testing.T) {
	hw := robottest.New(1)
	hw.SetPosition(1, 1024) // 90°

	m := newMotor(hw, robot.Calibration{Offset: 10})
	got, err := m.WorldAngle(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 80, float64(got), 1e-9)

	m.SetReverse(true)
	got, err = m.WorldAngle(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -100, float64(got), 1e-9)
}

func TestMotor_WorldRoundTripWithoutReverse(t *testing.T) {
	hw := robottest.New(1)
	m := newMotor(hw, robot.Calibration{Offset: 15, Constraint: robot.FullRange})

	require.NoError(t, m.SetWorldAngle(context.Background(), 40))
	got, err := m.WorldAngle(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40, float64(got), 360.0/robot.TicksPerRev)
}

func TestMotor_EncodedBypassesConstraint(t *testing.T) {
	hw := robottest.New(1)
	m := newMotor(hw, robot.Calibration{Constraint: robot.Constraint{Min: 0, Max: 1}})

	require.NoError(t, m.SetEncodedAngle(context.Background(), 3000))

	enc, err := m.EncodedAngle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, robot.EncodedAngle(3000), enc)
}

func TestMotor_ReadFailureIsExplicit(t *testing.T) {
	hw := robottest.New(1)
	hw.SetOffline(1, true)
	m := newMotor(hw, robot.Calibration{})

	_, err := m.EncodedAngle(context.Background())
	assert.ErrorIs(t, err, robot.ErrHardwareComm)
	assert.ErrorIs(t, err, robottest.ErrOffline)

	_, err = m.WorldAngle(context.Background())
	assert.ErrorIs(t, err, robot.ErrHardwareComm)

	err = m.SetWorldAngle(context.Background(), 0)
	var cv *robot.ConstraintViolationError
	assert.True(t, errors.As(err, &cv), "zero constraint rejects before touching hardware")
}

func TestMotor_SetTorque(t *testing.T) {
	hw := robottest.New(1)
	m := newMotor(hw, robot.Calibration{})

	require.NoError(t, m.SetTorque(context.Background(), true))
	assert.True(t, hw.Torque(1))

	require.NoError(t, m.SetTorque(context.Background(), false))
	assert.False(t, hw.Torque(1))

	hw.SetOffline(1, true)
	assert.ErrorIs(t, m.SetTorque(context.Background(), true), robot.ErrHardwareComm)
}

func TestMotor_Check(t *testing.T) {
	hw := robottest.New(1)
	m := newMotor(hw, robot.Calibration{})
	assert.True(t, m.Check(context.Background()))

	hw.SetMode(1, 3) // step mode
	assert.False(t, m.Check(context.Background()))

	hw.SetMode(1, robot.ModePosition)
	hw.SetOffline(1, true)
	assert.False(t, m.Check(context.Background()))
}

func TestMotor_CalibrationSetters(t *testing.T) {
	m := newMotor(robottest.New(1), robot.Calibration{})
	m.SetOffset(12)
	m.SetConstraint(robot.Constraint{Min: -10, Max: 10})
	m.SetReverse(true)

	cal := m.Calibration()
	assert.Equal(t, robot.Angle(12), cal.Offset)
	assert.Equal(t, robot.Constraint{Min: -10, Max: 10}, cal.Constraint)
	assert.True(t, cal.Reverse)
	assert.Equal(t, cal.Offset, m.Offset())
	assert.Equal(t, cal.Constraint, m.Constraint())
	assert.True(t, m.Reverse())
	assert.Equal(t, robot.Cone, m.Name())
	assert.Equal(t, 1, m.ID())
}

func TestCalibration_FromWorldMatchesWrite(t *testing.T) {
	cal := robot.Calibration{Offset: -20, Reverse: true, Constraint: robot.FullRange}
	got := cal.FromWorld(30)
	assert.True(t, math.Abs(float64(got)-(-50)) < 1e-9, "got %v", got)
}
