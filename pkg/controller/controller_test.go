package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/robot/robottest"
)

func newTestController(t *testing.T, cfg Config) (*Controller, *robottest.Hardware, *eventbus.Bus) {
	t.Helper()
	hw := robottest.New(1, 2, 3, 4)
	bus := eventbus.New()
	t.Cleanup(func() {
		bus.Close()
		bus.Wait()
	})
	c := FromConfig(hw, bus, robot.DefaultConfig(), cfg)
	return c, hw, bus
}

func ticksOf(hw *robottest.Hardware, id int) []int {
	var ticks []int
	for _, w := range hw.Writes() {
		if w.ID == id {
			ticks = append(ticks, w.Ticks)
		}
	}
	return ticks
}

func TestController_MotorRegistry(t *testing.T) {
	c, _, _ := newTestController(t, Config{})

	m, err := c.Motor(robot.Cone)
	require.NoError(t, err)
	assert.Equal(t, 4, m.ID())
	assert.Len(t, c.Motors(), 4)

	require.NoError(t, c.RemoveMotor(robot.Cone))
	_, err = c.Motor(robot.Cone)
	assert.ErrorIs(t, err, robot.ErrUnknownMotor)
	assert.Len(t, c.Motors(), 3)

	err = c.RemoveMotor(robot.Cone)
	var unknown *robot.UnknownMotorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, robot.Cone, unknown.Name)
}

func TestController_AddMotorLastWriteWins(t *testing.T) {
	c, _, _ := newTestController(t, Config{})

	first, err := c.Motor(robot.Arm1)
	require.NoError(t, err)
	second := c.AddMotor(robot.Arm1, 9, 5, robot.FullRange, true)

	got, err := c.Motor(robot.Arm1)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
	assert.Equal(t, 9, got.ID())
	assert.Len(t, c.Motors(), 4)
}

func TestController_MoveAnglesIsolatesEntries(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	c.AddMotor(robot.Arm2, 3, 0, robot.Constraint{Min: -10, Max: 10}, false)

	res := c.MoveAngles(context.Background(), map[robot.MotorName]robot.Angle{
		robot.ArmHorizontal: 90,
		robot.Arm2:          45, // outside (-10, 10)
		"unknown":           10,
		robot.Cone:          -90,
	})

	require.Len(t, res, 4)
	assert.NoError(t, res[robot.ArmHorizontal])
	assert.NoError(t, res[robot.Cone])
	assert.ErrorIs(t, res["unknown"], robot.ErrUnknownMotor)
	assert.ErrorIs(t, res[robot.Arm2], robot.ErrConstraintViolation)
	assert.Equal(t, 2, res.Failed())

	assert.Equal(t, []int{1024}, ticksOf(hw, 1))
	assert.Equal(t, []int{3072}, ticksOf(hw, 4))
	assert.Empty(t, ticksOf(hw, 3))

	err := res.Err()
	assert.ErrorIs(t, err, robot.ErrUnknownMotor)
	assert.ErrorIs(t, err, robot.ErrConstraintViolation)
}

func TestController_MoveAnglesHardwareFailure(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	hw.SetOffline(2, true)

	res := c.MoveAngles(context.Background(), map[robot.MotorName]robot.Angle{
		robot.Arm1: 10,
		robot.Arm2: 10,
	})
	assert.ErrorIs(t, res[robot.Arm1], robot.ErrHardwareComm)
	assert.NoError(t, res[robot.Arm2])
	assert.Len(t, ticksOf(hw, 3), 1)
}

func TestController_MoveEncodedBypassesConstraints(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	c.AddMotor(robot.Cone, 4, 0, robot.Constraint{Min: 0, Max: 1}, false)

	res := c.MoveEncoded(context.Background(), map[robot.MotorName]robot.EncodedAngle{
		robot.Cone: 3000,
		"ghost":    10,
	})
	assert.NoError(t, res[robot.Cone])
	assert.ErrorIs(t, res["ghost"], robot.ErrUnknownMotor)
	assert.Equal(t, []int{3000}, ticksOf(hw, 4))
}

func TestController_MovePosition(t *testing.T) {
	c, _, _ := newTestController(t, Config{})
	_, err := c.MovePosition(context.Background(), robot.Position{X: 1})
	assert.ErrorIs(t, err, ErrNoKinematics)

	ikErr := errors.New("unreachable")
	c, hw, _ := newTestController(t, Config{
		Kinematics: func(p robot.Position) (map[robot.MotorName]robot.Angle, error) {
			if p.Z < 0 {
				return nil, ikErr
			}
			return map[robot.MotorName]robot.Angle{robot.Arm1: robot.Angle(p.X)}, nil
		},
	})

	res, err := c.MovePosition(context.Background(), robot.Position{X: 90})
	require.NoError(t, err)
	assert.NoError(t, res.Err())
	assert.Equal(t, []int{1024}, ticksOf(hw, 2))

	_, err = c.MovePosition(context.Background(), robot.Position{Z: -1})
	assert.ErrorIs(t, err, ikErr)
}

func TestController_MoveTracking(t *testing.T) {
	c, _, _ := newTestController(t, Config{})
	_, err := c.MoveTracking(context.Background(), robot.Normalized{X: 0.5})
	assert.ErrorIs(t, err, ErrNoSteering)

	c, hw, _ := newTestController(t, Config{
		Steering: ProportionalSteering(robot.ArmHorizontal, robot.Arm2, 20),
	})
	hw.SetPosition(1, 1024) // 90°
	hw.SetPosition(3, 0)

	res, err := c.MoveTracking(context.Background(), robot.Normalized{X: 0.5, Y: -0.5})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, []int{robot.Angle(80).Encoded().Ticks()}, ticksOf(hw, 1))
	assert.Equal(t, []int{robot.Angle(-10).Encoded().Ticks()}, ticksOf(hw, 3))
}

func TestProportionalSteering_Unreadable(t *testing.T) {
	steer := ProportionalSteering(robot.ArmHorizontal, robot.Arm2, 20)
	_, err := steer(robot.Normalized{X: 1}, map[robot.MotorName]robot.Angle{robot.Cone: 0})
	assert.Error(t, err)
}

func TestController_SetTorqueNeverAborts(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	hw.SetOffline(2, true)

	res := c.LockAll(context.Background())
	assert.Equal(t, 4, hw.TorqueOps())
	assert.Equal(t, 1, res.Failed())
	assert.ErrorIs(t, res[robot.Arm1], robot.ErrHardwareComm)
	for _, id := range []int{1, 3, 4} {
		assert.True(t, hw.Torque(id), "servo %d", id)
	}

	c.UnlockAll(context.Background())
	assert.Equal(t, 8, hw.TorqueOps())
	assert.False(t, hw.Torque(1))
}

func TestController_CheckAll(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	hw.SetOffline(1, true)
	hw.SetMode(4, 1)

	got := c.CheckAll(context.Background())
	assert.Equal(t, map[robot.MotorName]bool{
		robot.ArmHorizontal: false,
		robot.Arm1:          true,
		robot.Arm2:          true,
		robot.Cone:          false,
	}, got)
}

func TestController_SnapshotOmitsUnreadable(t *testing.T) {
	c, hw, _ := newTestController(t, Config{})
	hw.SetPosition(2, 2048)
	hw.SetOffline(3, true)

	snap := c.Snapshot(context.Background())
	assert.Len(t, snap, 3)
	assert.NotContains(t, snap, robot.Arm2)
	assert.InDelta(t, 180, float64(snap[robot.Arm1]), 1e-9)
}

func TestController_Run(t *testing.T) {
	c, hw, bus := newTestController(t, Config{Interval: 10 * time.Millisecond})
	hw.SetPosition(1, 1024)

	got := make(chan map[robot.MotorName]robot.Angle, 16)
	bus.Subscribe(eventbus.TopicAngles, func(_ context.Context, ev eventbus.Event) error {
		angles, err := eventbus.Arg[map[robot.MotorName]robot.Angle](ev, 0)
		if err != nil {
			return err
		}
		select {
		case got <- angles:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case angles := <-got:
		assert.InDelta(t, 90, float64(angles[robot.ArmHorizontal]), 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no angle broadcast")
	}

	assert.ErrorIs(t, c.Run(ctx), errAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

// ctxHardware fails reads once the caller's context is done.
type ctxHardware struct {
	*robottest.Hardware
}

func (h ctxHardware) ReadPosition(ctx context.Context, id int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return h.Hardware.ReadPosition(ctx, id)
}

func TestController_BroadcastFinishesSweepAfterCancel(t *testing.T) {
	hw := ctxHardware{robottest.New(1, 2, 3, 4)}
	bus := eventbus.New()
	t.Cleanup(func() {
		bus.Close()
		bus.Wait()
	})
	got := make(chan map[robot.MotorName]robot.Angle, 1)
	bus.Subscribe(eventbus.TopicAngles, func(_ context.Context, ev eventbus.Event) error {
		angles, err := eventbus.Arg[map[robot.MotorName]robot.Angle](ev, 0)
		if err != nil {
			return err
		}
		got <- angles
		return nil
	})
	c := FromConfig(hw, bus, robot.DefaultConfig(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.broadcast(ctx)

	select {
	case angles := <-got:
		assert.Len(t, angles, 4)
	case <-time.After(time.Second):
		t.Fatal("no snapshot broadcast")
	}
}

func TestController_Handlers(t *testing.T) {
	c, hw, bus := newTestController(t, Config{})
	c.Attach()
	c.Attach()
	assert.Equal(t, 1, bus.Handlers(eventbus.TopicMoveAngles))

	bus.Emit(eventbus.TopicMoveAngles, map[robot.MotorName]robot.Angle{robot.Arm1: 90, "nope": 1})
	bus.Emit(eventbus.TopicMoveEncoded, map[robot.MotorName]robot.EncodedAngle{robot.Cone: 100})
	bus.Emit(eventbus.TopicMoveAngles, "not a map")
	bus.Emit(eventbus.TopicMoveTrackingCmd, robot.Normalized{})
	bus.Emit(eventbus.TopicTorque, true)
	bus.Wait()

	assert.Equal(t, []int{1024}, ticksOf(hw, 2))
	assert.Equal(t, []int{100}, ticksOf(hw, 4))
	assert.True(t, hw.Torque(1))

	require.NoError(t, c.Close(context.Background()))
	for _, topic := range []string{
		eventbus.TopicMoveAngles,
		eventbus.TopicMoveEncoded,
		eventbus.TopicMovePosition,
		eventbus.TopicMoveTrackingCmd,
		eventbus.TopicTorque,
	} {
		assert.Zero(t, bus.Handlers(topic), topic)
	}
	assert.False(t, hw.Torque(1))

	bus.Emit(eventbus.TopicMoveAngles, map[robot.MotorName]robot.Angle{robot.Arm1: 10})
	bus.Wait()
	assert.Len(t, ticksOf(hw, 2), 1)
}
