package robot

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the calibration file used when none is given.
const DefaultConfigFile = "lamp.yaml"

// DefaultPort is the serial device of the servo bus on the lamp board.
const DefaultPort = "/dev/ttyS0"

// MotorConfig holds the configuration of a single motor.
type MotorConfig struct {
	ID         int        `yaml:"id"`
	Offset     Angle      `yaml:"offset"`
	Constraint Constraint `yaml:"constraint"`
	Reverse    bool       `yaml:"reverse,omitempty"`
}

// Calibration returns the motor's calibration.
func (m MotorConfig) Calibration() Calibration {
	return Calibration{
		Offset:     m.Offset,
		Constraint: m.Constraint,
		Reverse:    m.Reverse,
	}
}

// Config holds the servo bus settings and every motor, keyed by name.
type Config struct {
	Port     string                    `yaml:"port"`
	BaudRate int                       `yaml:"baud_rate"`
	Motors   map[MotorName]MotorConfig `yaml:"motors"`
}

// DefaultConfig returns the four default motors with no offset and a ±180°
// sweep.
func DefaultConfig() *Config {
	cfg := &Config{
		Port:     DefaultPort,
		BaudRate: DefaultBaudRate,
		Motors:   make(map[MotorName]MotorConfig),
	}
	for i, name := range DefaultMotors() {
		cfg.Motors[name] = MotorConfig{
			ID:         i + 1,
			Constraint: FullRange,
		}
	}
	return cfg
}

// Names returns the motor names sorted by servo ID.
func (c *Config) Names() []MotorName {
	names := make([]MotorName, 0, len(c.Motors))
	for name := range c.Motors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return c.Motors[names[i]].ID < c.Motors[names[j]].ID
	})
	return names
}

// Validate checks motor IDs and angle ranges.
func (c *Config) Validate() error {
	if len(c.Motors) == 0 {
		return errors.New("no motors configured")
	}
	ids := make(map[int]MotorName, len(c.Motors))
	for name, m := range c.Motors {
		if name == "" {
			return errors.New("motor with empty name")
		}
		if m.ID < 0 || m.ID > 253 {
			return fmt.Errorf("motor %s: invalid servo ID %d (must be 0-253)", name, m.ID)
		}
		if other, dup := ids[m.ID]; dup {
			return fmt.Errorf("motor %s: servo ID %d already used by %s", name, m.ID, other)
		}
		ids[m.ID] = name
		if _, err := NewAngle(float64(m.Offset)); err != nil {
			return fmt.Errorf("motor %s offset: %w", name, err)
		}
		if err := m.Constraint.Validate(); err != nil {
			return fmt.Errorf("motor %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig loads a configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrCreate loads path, falling back to DefaultConfig when the file is
// missing or malformed. The default is written back to path; a failed write
// is returned together with the usable default.
func LoadOrCreate(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	cfg = DefaultConfig()
	if err := cfg.SaveTo(path); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveTo saves the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
