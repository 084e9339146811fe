package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/assistant"
	"github.com/gwillem/lamp/pkg/camera/opencv"
	"github.com/gwillem/lamp/pkg/controller"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/light"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/server"
	"github.com/gwillem/lamp/pkg/tracking"
	"github.com/gwillem/lamp/pkg/tracking/detection"
)

type ServeCommand struct {
	Addr     string        `long:"addr" env:"LAMP_ADDR" default:":8000" description:"HTTP listen address"`
	Interval time.Duration `long:"interval" env:"LAMP_INTERVAL" default:"500ms" description:"Angle broadcast period"`

	Camera   int    `long:"camera" env:"LAMP_CAMERA" default:"0" description:"Video device index"`
	FPS      int    `long:"fps" env:"LAMP_FPS" default:"5" description:"Camera frames per second"`
	NoCamera bool   `long:"no-camera" env:"LAMP_NO_CAMERA" description:"Run without camera and tracking"`
	Cascade  string `long:"cascade" env:"LAMP_CASCADE" default:"data/haarcascade_frontalface_default.xml" description:"Haar cascade for face tracking"`

	Mode      string  `long:"mode" env:"LAMP_TRACKING_MODE" default:"face" choice:"idle" choice:"object" choice:"face" description:"Initial tracking mode"`
	DeadZone  float64 `long:"dead-zone" default:"0.5" description:"Radius around the frame center that counts as centered"`
	MaxSpeed  float64 `long:"max-speed" default:"1.0" description:"Targets moving faster than this (frame units/s) are not followed"`
	PanMotor  string  `long:"pan-motor" default:"bras_horizontal" description:"Motor turned by horizontal tracking offsets"`
	TiltMotor string  `long:"tilt-motor" default:"cone" description:"Motor turned by vertical tracking offsets"`
	SteerGain float64 `long:"steer-gain" default:"10" description:"Degrees per frame unit for tracking moves (0 disables)"`

	MockLight bool    `long:"mock-light" env:"LAMP_MOCK_LIGHT" description:"Use an in-memory PWM instead of the Raspberry Pi"`
	LightPin  int     `long:"light-pin" default:"18" description:"PWM GPIO pin of the light"`
	LightMin  float64 `long:"light-min" default:"20" description:"Duty cycle at 0% brightness"`
	LightMax  float64 `long:"light-max" default:"100" description:"Duty cycle at 100% brightness"`
}

func (c *ServeCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, hw, err := openBus()
	if err != nil {
		return err
	}
	defer hw.Close()

	bus := eventbus.New()
	defer func() {
		bus.Close()
		bus.Wait()
	}()

	// Motors
	ctrlCfg := controller.Config{Interval: c.Interval}
	if c.SteerGain > 0 {
		ctrlCfg.Steering = controller.ProportionalSteering(
			robot.MotorName(c.PanMotor), robot.MotorName(c.TiltMotor), c.SteerGain)
	}
	ctrl := controller.FromConfig(hw, bus, cfg, ctrlCfg)
	ctrl.Attach()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ctrl.Close(closeCtx); err != nil {
			log.Warn("release motors", "error", err)
		}
	}()

	// Light
	pwm, err := light.NewPWM(c.MockLight, c.LightPin, light.DefaultFrequency)
	if err != nil {
		return err
	}
	lamp, err := light.New(bus, pwm, light.Config{MinDuty: c.LightMin, MaxDuty: c.LightMax})
	if err != nil {
		pwm.Close()
		return err
	}
	lamp.Attach()
	defer lamp.Close()

	// Assistant responses and speech
	dispatcher := assistant.NewDispatcher(bus, nil)
	dispatcher.Attach()
	defer dispatcher.Detach()
	bus.Subscribe(eventbus.TopicTalk, func(_ context.Context, ev eventbus.Event) error {
		text, err := eventbus.Arg[string](ev, 0)
		if err != nil {
			return err
		}
		log.Info("talk", "text", text)
		return nil
	})

	// Camera and tracking
	var cam *opencv.Camera
	if !c.NoCamera {
		cam, err = opencv.Open(bus, opencv.Config{Device: c.Camera, FPS: c.FPS})
		if err != nil {
			log.Warn("camera unavailable, tracking disabled", "error", err)
		} else {
			defer cam.Close()
			stop, err := c.startTracking(bus)
			if err != nil {
				return err
			}
			defer stop()
		}
	}

	srvCfg := server.Config{
		Addr:       c.Addr,
		Bus:        bus,
		Controller: ctrl,
		Light:      lamp,
	}
	if cam != nil {
		srvCfg.Camera = cam
	}
	srv := server.New(srvCfg)

	tasks := []task{
		{name: "controller", run: ctrl.Run},
		{name: "http", run: srv.Run},
	}
	if cam != nil {
		tasks = append(tasks, task{name: "camera", run: cam.Run, optional: true})
	}

	log.Info("lamp running", "addr", c.Addr, "motors", len(cfg.Motors), "camera", cam != nil)
	err = runTasks(ctx, tasks...)
	log.Info("lamp stopping")
	return err
}

// startTracking wires the tracker and its locators to the bus. The returned
// function detaches the tracker and releases the locators.
func (c *ServeCommand) startTracking(bus *eventbus.Bus) (func(), error) {
	mode, err := tracking.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}

	locators := make(map[tracking.Mode]tracking.Locator)
	var closers []func() error

	faceCfg := detection.DefaultFaceConfig()
	faceCfg.CascadePath = c.Cascade
	face, err := detection.NewHaarFaceLocator(faceCfg)
	if err != nil {
		log.Warn("face tracking disabled", "error", err)
	} else {
		locators[tracking.ModeFace] = face
		closers = append(closers, face.Close)
	}

	object := detection.NewObjectLocator()
	locators[tracking.ModeObject] = object
	closers = append(closers, object.Close)

	tracker := tracking.New(bus, locators, tracking.Config{
		DeadZone: c.DeadZone,
		MaxSpeed: c.MaxSpeed,
		Mode:     mode,
	})
	tracker.Attach()
	fwd := bus.Forward(eventbus.TopicMoveTracking, eventbus.TopicMoveTrackingCmd)

	return func() {
		if err := bus.Unsubscribe(fwd); err != nil {
			log.Warn("unsubscribe", "topic", fwd.Topic, "error", err)
		}
		tracker.Detach()
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close locator", "error", err)
			}
		}
	}, nil
}
