package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// DefaultBaudRate is the STS bus speed.
const DefaultBaudRate = 1_000_000

// FeetechBus implements Hardware over a Feetech STS serial bus.
type FeetechBus struct {
	bus *feetech.Bus

	mu     sync.Mutex // serializes bus transactions
	servos map[int]*feetech.Servo
	motion map[int]Motion
}

// OpenFeetech opens the serial bus on port.
func OpenFeetech(port string, baudRate int) (*FeetechBus, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &FeetechBus{
		bus:    bus,
		servos: make(map[int]*feetech.Servo),
		motion: make(map[int]Motion),
	}, nil
}

// Close closes the serial bus.
func (f *FeetechBus) Close() error {
	return f.bus.Close()
}

// Scan returns the servos answering with IDs in [from, to].
func (f *FeetechBus) Scan(ctx context.Context, from, to int) ([]feetech.FoundServo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	found, err := f.bus.Scan(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, s := range found {
		f.servos[s.ID] = feetech.NewServo(f.bus, s.ID, s.Model)
	}
	return found, nil
}

// Ping implements Hardware.
func (f *FeetechBus) Ping(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.scanOneLocked(ctx, id)
	return err
}

// ReadMode implements Hardware.
func (f *FeetechBus) ReadMode(ctx context.Context, id int) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	servo, err := f.servoLocked(ctx, id)
	if err != nil {
		return 0, err
	}
	return readMode(ctx, servo)
}

// ReadPosition implements Hardware.
func (f *FeetechBus) ReadPosition(ctx context.Context, id int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	positions, err := feetech.NewServoGroupByIDs(f.bus, id).Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	pos, ok := positions[id]
	if !ok {
		return 0, fmt.Errorf("read position: servo %d did not answer", id)
	}
	return pos, nil
}

// WritePosition implements Hardware. The goal is buffered with a reg write
// and then triggered with an action, like a synchronized group move.
func (f *FeetechBus) WritePosition(ctx context.Context, id int, ticks int, m Motion) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.applyMotionLocked(ctx, id, m); err != nil {
		return err
	}

	group := feetech.NewServoGroupByIDs(f.bus, id)
	if err := group.RegWritePositions(ctx, feetech.PositionMap{id: ticks}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	if err := f.bus.Action(ctx); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	return nil
}

// WriteTorque implements Hardware.
func (f *FeetechBus) WriteTorque(ctx context.Context, id int, enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	group := feetech.NewServoGroupByIDs(f.bus, id)
	if enable {
		return group.EnableAll(ctx)
	}
	return group.DisableAll(ctx)
}

// servoLocked returns the servo handle for id, scanning for it when it has
// not been seen yet. f.mu must be held.
func (f *FeetechBus) servoLocked(ctx context.Context, id int) (*feetech.Servo, error) {
	if s, ok := f.servos[id]; ok {
		return s, nil
	}
	return f.scanOneLocked(ctx, id)
}

// scanOneLocked pings servo id and refreshes its cached handle. f.mu must be
// held.
func (f *FeetechBus) scanOneLocked(ctx context.Context, id int) (*feetech.Servo, error) {
	found, err := f.bus.Scan(ctx, id, id)
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("ping: servo %d did not answer", id)
	}
	s := feetech.NewServo(f.bus, found[0].ID, found[0].Model)
	f.servos[id] = s
	return s, nil
}

// applyMotionLocked writes speed and acceleration registers when they differ
// from what servo id already has. f.mu must be held.
func (f *FeetechBus) applyMotionLocked(ctx context.Context, id int, m Motion) error {
	if last, ok := f.motion[id]; ok && last == m {
		return nil
	}
	servo, err := f.servoLocked(ctx, id)
	if err != nil {
		return err
	}
	if err := writeMotion(ctx, servo, m); err != nil {
		return err
	}
	f.motion[id] = m
	return nil
}

// registers is named register access on one servo.
type registers interface {
	ReadRegister(ctx context.Context, name string) ([]byte, error)
	WriteRegister(ctx context.Context, name string, data []byte) error
}

func readMode(ctx context.Context, r registers) (byte, error) {
	data, err := r.ReadRegister(ctx, "operating_mode")
	if err != nil {
		return 0, fmt.Errorf("read mode: %w", err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("read mode: empty response")
	}
	return data[0], nil
}

// writeMotion writes acceleration (one byte) and goal velocity (two bytes,
// little endian).
func writeMotion(ctx context.Context, r registers, m Motion) error {
	if err := r.WriteRegister(ctx, "acceleration", []byte{byte(m.Accel)}); err != nil {
		return fmt.Errorf("write acceleration: %w", err)
	}
	speed := []byte{byte(m.Speed & 0xFF), byte((m.Speed >> 8) & 0xFF)}
	if err := r.WriteRegister(ctx, "goal_velocity", speed); err != nil {
		return fmt.Errorf("write speed: %w", err)
	}
	return nil
}

var (
	_ Hardware  = (*FeetechBus)(nil)
	_ registers = (*feetech.Servo)(nil)
)
