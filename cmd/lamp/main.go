package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/gwillem/lamp/internal/log"
)

type Options struct {
	Config   string `short:"c" long:"config" env:"LAMP_CONFIG" default:"lamp.yaml" description:"Motor calibration file"`
	Port     string `short:"p" long:"port" env:"LAMP_PORT" description:"Servo bus serial port (overrides the config file)"`
	BaudRate int    `long:"baud" env:"LAMP_BAUD" description:"Servo bus baud rate (overrides the config file)"`
	LogLevel string `long:"log-level" env:"LAMP_LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Serve     ServeCommand     `command:"serve" description:"Run the lamp: motors, tracking, light and HTTP API"`
	Scan      ScanCommand      `command:"scan" description:"List serial ports and the servos answering on them"`
	Checkup   CheckupCommand   `command:"checkup" description:"Check that every motor answers and is in position mode"`
	Monitor   MonitorCommand   `command:"monitor" description:"Chart live motor angles"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Assign servo IDs and record rest pose and range of motion"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	// .env is optional; a deployed lamp gets its settings from the unit file.
	_ = godotenv.Load()

	parser.LongDescription = "lamp - animatronic lamp controller"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		log.Init(opts.LogLevel)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
