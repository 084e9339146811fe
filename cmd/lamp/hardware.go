package main

import (
	"fmt"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/robot"
)

// loadConfig reads the calibration file, creating it with defaults when it
// is missing or unreadable, and applies the port flags.
func loadConfig() *robot.Config {
	cfg, err := robot.LoadOrCreate(opts.Config)
	if err != nil {
		log.Warn("could not write default config", "path", opts.Config, "error", err)
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.BaudRate > 0 {
		cfg.BaudRate = opts.BaudRate
	}
	return cfg
}

// openBus loads the config and opens the servo bus it names.
func openBus() (*robot.Config, *robot.FeetechBus, error) {
	cfg := loadConfig()
	hw, err := robot.OpenFeetech(cfg.Port, cfg.BaudRate)
	if err != nil {
		return nil, nil, fmt.Errorf("servo bus on %s: %w", cfg.Port, err)
	}
	log.Debug("servo bus open", "port", cfg.Port, "baud", cfg.BaudRate, "motors", len(cfg.Motors))
	return cfg, hw, nil
}
