// Package server exposes the lamp over HTTP.
//
// Routes only read state or publish events on the bus; movement and light
// changes are carried out by the components subscribed to those events.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/controller"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/light"
	"github.com/gwillem/lamp/pkg/robot"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8000"

// CheckupTimeout bounds the motor checkup.
const CheckupTimeout = 5 * time.Second

// Snapshotter captures a JPEG image.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// Dimmer reports the light brightness.
type Dimmer interface {
	Get() light.Percent
}

// Config wires the server to the rest of the lamp. Camera and Light are
// optional; their routes answer 503 without them.
type Config struct {
	Addr       string
	Bus        *eventbus.Bus
	Controller *controller.Controller
	Camera     Snapshotter
	Light      Dimmer
	Logger     *slog.Logger
}

// Server is the HTTP control surface.
type Server struct {
	app    *fiber.App
	addr   string
	bus    *eventbus.Bus
	ctrl   *controller.Controller
	camera Snapshotter
	light  Dimmer
	logger *slog.Logger
}

// New creates the server and registers its routes.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{
		addr:   cfg.Addr,
		bus:    cfg.Bus,
		ctrl:   cfg.Controller,
		camera: cfg.Camera,
		light:  cfg.Light,
		logger: log.Component(cfg.Logger, "server"),
	}

	// Params and bodies end up in bus events that outlive the request, so
	// they must not alias fasthttp's reused buffers.
	app := fiber.New(fiber.Config{
		AppName:               "lamp",
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Get("/health", s.handleHealth)
	app.Get("/lock", s.handleTorque(true))
	app.Get("/unlock", s.handleTorque(false))
	app.Get("/angle/:name", s.handleGetAngle)
	app.Post("/angle/:name", s.handleSetAngle)
	app.Get("/encoder/:name", s.handleGetEncoder)
	app.Post("/encoder/:name", s.handleSetEncoder)
	app.Post("/position", s.handleSetPosition)
	app.Get("/light", s.handleGetLight)
	app.Post("/light", s.handleSetLight)
	app.Post("/tracking", s.handleSetTracking)
	app.Post("/assistant", s.handleAssistant)
	app.Get("/checkup", s.handleCheckup)
	app.Get("/snapshot", s.handleSnapshot)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/angles", websocket.New(s.handleAnglesWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, robot.ErrUnknownMotor):
		code = fiber.StatusNotFound
	case errors.Is(err, robot.ErrAngleRange),
		errors.Is(err, robot.ErrEncodedRange),
		errors.Is(err, errInvalidInput):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, robot.ErrHardwareComm):
		code = fiber.StatusBadGateway
	case errors.Is(err, errUnavailable):
		code = fiber.StatusServiceUnavailable
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
