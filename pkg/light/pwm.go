package light

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/gwillem/lamp/internal/log"
)

const (
	// DefaultPin is GPIO18, hardware PWM channel 0.
	DefaultPin = 18
	// DefaultFrequency is the PWM frequency in Hz.
	DefaultFrequency = 60

	cycleLen = 1000
)

// RPiPWM is a hardware PWM channel on a Raspberry Pi.
type RPiPWM struct {
	mu   sync.Mutex
	pin  rpio.Pin
	duty float64
}

// OpenRPiPWM maps the GPIO registers and configures pin for PWM at freq Hz.
// Requires /dev/gpiomem or root.
func OpenRPiPWM(pin, freq int) (*RPiPWM, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w (are you running on a Raspberry Pi?)", err)
	}
	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	p.Freq(freq * cycleLen)
	p.DutyCycle(0, cycleLen)
	log.Debug("pwm ready", "pin", pin, "hz", freq)
	return &RPiPWM{pin: p}, nil
}

// SetDuty implements PWM.
func (r *RPiPWM) SetDuty(duty float64) error {
	if duty < 0 || duty > 100 {
		return fmt.Errorf("duty %v out of range", duty)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pin.DutyCycle(uint32(duty*cycleLen/100), cycleLen)
	r.duty = duty
	return nil
}

// Duty implements PWM.
func (r *RPiPWM) Duty() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duty
}

// Close turns the output off and releases the GPIO mapping.
func (r *RPiPWM) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pin.DutyCycle(0, cycleLen)
	r.pin.Input()
	return rpio.Close()
}

// MockPWM keeps the duty cycle in memory, for development off the device.
type MockPWM struct {
	mu     sync.Mutex
	duty   float64
	closed bool
}

// SetDuty implements PWM.
func (m *MockPWM) SetDuty(duty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("pwm closed")
	}
	m.duty = duty
	return nil
}

// Duty implements PWM.
func (m *MockPWM) Duty() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty
}

// Close implements PWM.
func (m *MockPWM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NewPWM returns a MockPWM when mock is set and an RPiPWM otherwise.
func NewPWM(mock bool, pin, freq int) (PWM, error) {
	if mock {
		log.Info("using mock PWM driver")
		return &MockPWM{}, nil
	}
	return OpenRPiPWM(pin, freq)
}
