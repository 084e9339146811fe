// Package controller owns the lamp's motors and turns movement commands into
// servo writes.
//
// The controller is the only component that touches motors. Other
// components reach it through the event bus (see Attach) or, inside the
// process, through its methods. Batch commands are best effort: every entry
// is applied independently and its outcome is reported in a BatchResult.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
)

// DefaultInterval is the period of the angle broadcast.
const DefaultInterval = 500 * time.Millisecond

var (
	// ErrNoKinematics is returned by MovePosition when no inverse
	// kinematics solver is configured.
	ErrNoKinematics = errors.New("no inverse kinematics configured")

	// ErrNoSteering is returned by MoveTracking when no steering policy is
	// configured.
	ErrNoSteering = errors.New("no tracking steering configured")

	errAlreadyRunning = errors.New("already running")
)

// InverseKinematics solves a Cartesian position into world angles.
type InverseKinematics func(robot.Position) (map[robot.MotorName]robot.Angle, error)

// Steering turns a normalized tracking offset and the current pose into a
// new pose.
type Steering func(target robot.Normalized, current map[robot.MotorName]robot.Angle) (map[robot.MotorName]robot.Angle, error)

// BatchResult holds the outcome of each entry of a batch command. A nil
// value means the entry succeeded.
type BatchResult map[robot.MotorName]error

// Err joins the failed entries, or returns nil when all succeeded.
func (r BatchResult) Err() error {
	var errs []error
	for _, err := range r {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of failed entries.
func (r BatchResult) Failed() int {
	n := 0
	for _, err := range r {
		if err != nil {
			n++
		}
	}
	return n
}

// Config holds optional controller settings.
type Config struct {
	Interval   time.Duration // broadcast period, DefaultInterval when zero
	Kinematics InverseKinematics
	Steering   Steering
	Logger     *slog.Logger
}

// Controller manages the lamp's motors.
type Controller struct {
	hw       robot.Hardware
	bus      *eventbus.Bus
	interval time.Duration
	ik       InverseKinematics
	steer    Steering
	logger   *slog.Logger

	mu      sync.RWMutex
	motors  map[robot.MotorName]*robot.Motor
	subs    []eventbus.Subscription
	running bool
}

// New creates a controller without motors. bus may be nil when the
// controller is only driven through its methods.
func New(hw robot.Hardware, bus *eventbus.Bus, cfg Config) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Controller{
		hw:       hw,
		bus:      bus,
		interval: cfg.Interval,
		ik:       cfg.Kinematics,
		steer:    cfg.Steering,
		logger:   log.Component(cfg.Logger, "controller"),
		motors:   make(map[robot.MotorName]*robot.Motor),
	}
}

// FromConfig creates a controller with every motor of rc.
func FromConfig(hw robot.Hardware, bus *eventbus.Bus, rc *robot.Config, cfg Config) *Controller {
	c := New(hw, bus, cfg)
	for _, name := range rc.Names() {
		m := rc.Motors[name]
		c.AddMotor(name, m.ID, m.Offset, m.Constraint, m.Reverse)
	}
	return c
}

// Interval returns the broadcast period.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// AddMotor registers a motor. A motor already registered under name is
// replaced.
func (c *Controller) AddMotor(name robot.MotorName, id int, offset robot.Angle, constraint robot.Constraint, reverse bool) *robot.Motor {
	m := robot.NewMotor(c.hw, id, name, robot.Calibration{
		Offset:     offset,
		Constraint: constraint,
		Reverse:    reverse,
	})

	c.mu.Lock()
	_, replaced := c.motors[name]
	c.motors[name] = m
	c.mu.Unlock()

	if replaced {
		c.logger.Warn("motor replaced", "motor", name, "id", id)
	}
	return m
}

// RemoveMotor unregisters a motor.
func (c *Controller) RemoveMotor(name robot.MotorName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.motors[name]; !ok {
		return &robot.UnknownMotorError{Name: name}
	}
	delete(c.motors, name)
	return nil
}

// Motor returns the motor registered under name.
func (c *Controller) Motor(name robot.MotorName) (*robot.Motor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.motors[name]
	if !ok {
		return nil, &robot.UnknownMotorError{Name: name}
	}
	return m, nil
}

// Motors returns the registered motors.
func (c *Controller) Motors() []*robot.Motor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms := make([]*robot.Motor, 0, len(c.motors))
	for _, m := range c.motors {
		ms = append(ms, m)
	}
	return ms
}

// MoveAngles moves each named motor to its world angle. Unknown names,
// constraint violations and bus errors affect only their own entry.
func (c *Controller) MoveAngles(ctx context.Context, angles map[robot.MotorName]robot.Angle) BatchResult {
	res := make(BatchResult, len(angles))
	for name, a := range angles {
		m, err := c.Motor(name)
		if err == nil {
			err = m.SetWorldAngle(ctx, a)
		}
		res[name] = err
	}
	c.logFailures("move angles", res)
	return res
}

// MoveEncoded writes raw encoder positions. No constraint is checked.
func (c *Controller) MoveEncoded(ctx context.Context, encoded map[robot.MotorName]robot.EncodedAngle) BatchResult {
	res := make(BatchResult, len(encoded))
	for name, enc := range encoded {
		m, err := c.Motor(name)
		if err == nil {
			err = m.SetEncodedAngle(ctx, enc)
		}
		res[name] = err
	}
	c.logFailures("move encoded", res)
	return res
}

// MovePosition moves the lamp head to a Cartesian position.
func (c *Controller) MovePosition(ctx context.Context, p robot.Position) (BatchResult, error) {
	if c.ik == nil {
		return nil, ErrNoKinematics
	}
	angles, err := c.ik(p)
	if err != nil {
		return nil, fmt.Errorf("solve position %+v: %w", p, err)
	}
	return c.MoveAngles(ctx, angles), nil
}

// MoveTracking steers the lamp toward a normalized point of the camera
// frame.
func (c *Controller) MoveTracking(ctx context.Context, target robot.Normalized) (BatchResult, error) {
	if c.steer == nil {
		c.logger.Debug("tracking move ignored", "x", target.X, "y", target.Y)
		return nil, ErrNoSteering
	}
	angles, err := c.steer(target, c.Snapshot(ctx))
	if err != nil {
		return nil, fmt.Errorf("steer to %+v: %w", target, err)
	}
	return c.MoveAngles(ctx, angles), nil
}

// SetTorque locks or releases every motor. A failing motor does not stop
// the others.
func (c *Controller) SetTorque(ctx context.Context, enable bool) BatchResult {
	ms := c.Motors()
	res := make(BatchResult, len(ms))
	for _, m := range ms {
		res[m.Name()] = m.SetTorque(ctx, enable)
	}
	c.logFailures("set torque", res)
	return res
}

// LockAll enables torque on every motor.
func (c *Controller) LockAll(ctx context.Context) BatchResult {
	return c.SetTorque(ctx, true)
}

// UnlockAll disables torque on every motor.
func (c *Controller) UnlockAll(ctx context.Context) BatchResult {
	return c.SetTorque(ctx, false)
}

// CheckAll reports, per motor, whether it answers and is in position mode.
func (c *Controller) CheckAll(ctx context.Context) map[robot.MotorName]bool {
	ms := c.Motors()
	res := make(map[robot.MotorName]bool, len(ms))
	for _, m := range ms {
		res[m.Name()] = m.Check(ctx)
	}
	return res
}

// Snapshot reads the world angle of every motor. Motors that cannot be
// read are left out.
func (c *Controller) Snapshot(ctx context.Context) map[robot.MotorName]robot.Angle {
	ms := c.Motors()
	angles := make(map[robot.MotorName]robot.Angle, len(ms))
	for _, m := range ms {
		a, err := m.WorldAngle(ctx)
		if err != nil {
			c.logger.Warn("read angle failed", "motor", m.Name(), "error", err)
			continue
		}
		angles[m.Name()] = a
	}
	return angles
}

// Run broadcasts a snapshot on TopicAngles every interval until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logger.Info("broadcasting angles", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.broadcast(ctx)
		}
	}
}

// broadcast emits one snapshot. A sweep that has started finishes even if
// ctx is cancelled meanwhile; Run stops before the next one.
func (c *Controller) broadcast(ctx context.Context) {
	angles := c.Snapshot(context.WithoutCancel(ctx))
	if c.bus != nil {
		c.bus.Emit(eventbus.TopicAngles, angles)
	}
}

// Close detaches from the bus and releases every motor.
func (c *Controller) Close(ctx context.Context) error {
	c.Detach()
	if err := c.UnlockAll(ctx).Err(); err != nil {
		return fmt.Errorf("unlock motors: %w", err)
	}
	return nil
}

func (c *Controller) logFailures(op string, res BatchResult) {
	for name, err := range res {
		if err != nil {
			c.logger.Warn(op+" failed", "motor", name, "error", err)
		}
	}
}
