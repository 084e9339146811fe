// Package robottest provides an in-memory servo bus for tests.
package robottest

import (
	"context"
	"errors"
	"sync"

	"github.com/gwillem/lamp/pkg/robot"
)

// ErrOffline is returned for servos marked offline.
var ErrOffline = errors.New("servo offline")

// Write is one recorded position write.
type Write struct {
	ID     int
	Ticks  int
	Motion robot.Motion
}

// Hardware is a fake robot.Hardware that keeps positions in memory and
// records every write.
type Hardware struct {
	mu        sync.Mutex
	positions map[int]int
	modes     map[int]byte
	torque    map[int]bool
	offline   map[int]bool
	writes    []Write
	torqueOps int
}

// New returns a fake bus with the given servo IDs online at tick 0.
func New(ids ...int) *Hardware {
	h := &Hardware{
		positions: make(map[int]int),
		modes:     make(map[int]byte),
		torque:    make(map[int]bool),
		offline:   make(map[int]bool),
	}
	for _, id := range ids {
		h.positions[id] = 0
	}
	return h
}

// SetPosition sets the reported position of servo id.
func (h *Hardware) SetPosition(id, ticks int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.positions[id] = ticks
}

// SetMode sets the operating-mode register of servo id.
func (h *Hardware) SetMode(id int, mode byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modes[id] = mode
}

// SetOffline makes every operation on servo id fail.
func (h *Hardware) SetOffline(id int, offline bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offline[id] = offline
}

// Writes returns the recorded position writes.
func (h *Hardware) Writes() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write(nil), h.writes...)
}

// Torque reports the torque state of servo id.
func (h *Hardware) Torque(id int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.torque[id]
}

// TorqueOps returns how many torque writes were attempted.
func (h *Hardware) TorqueOps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.torqueOps
}

func (h *Hardware) check(id int) error {
	if _, ok := h.positions[id]; !ok || h.offline[id] {
		return ErrOffline
	}
	return nil
}

// Ping implements robot.Hardware.
func (h *Hardware) Ping(_ context.Context, id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.check(id)
}

// ReadMode implements robot.Hardware.
func (h *Hardware) ReadMode(_ context.Context, id int) (byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(id); err != nil {
		return 0, err
	}
	return h.modes[id], nil
}

// ReadPosition implements robot.Hardware.
func (h *Hardware) ReadPosition(_ context.Context, id int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(id); err != nil {
		return 0, err
	}
	return h.positions[id], nil
}

// WritePosition implements robot.Hardware.
func (h *Hardware) WritePosition(_ context.Context, id int, ticks int, m robot.Motion) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(id); err != nil {
		return err
	}
	h.positions[id] = ticks
	h.writes = append(h.writes, Write{ID: id, Ticks: ticks, Motion: m})
	return nil
}

// WriteTorque implements robot.Hardware.
func (h *Hardware) WriteTorque(_ context.Context, id int, enable bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.torqueOps++
	if err := h.check(id); err != nil {
		return err
	}
	h.torque[id] = enable
	return nil
}

var _ robot.Hardware = (*Hardware)(nil)
