package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/gwillem/lamp/pkg/assistant"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/light"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/tracking"
)

var (
	errInvalidInput = errors.New("invalid input")
	errUnavailable  = errors.New("not available")
)

// AngleBody is the payload of the angle routes.
type AngleBody struct {
	Deg float64 `json:"deg" form:"deg"`
}

// EncoderBody is the payload of the encoder routes.
type EncoderBody struct {
	Enc int `json:"enc" form:"enc"`
}

// LightBody is the payload of the light routes.
type LightBody struct {
	Val float64 `json:"val" form:"val"`
}

// TrackingBody is the payload of POST /tracking.
type TrackingBody struct {
	Mode    string            `json:"mode" form:"mode"`
	Subject *tracking.Subject `json:"subject,omitempty"`
}

func parse(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(true)
}

func (s *Server) handleTorque(enable bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s.bus.Emit(eventbus.TopicTorque, enable)
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func (s *Server) motor(c *fiber.Ctx) (*robot.Motor, error) {
	return s.ctrl.Motor(robot.MotorName(c.Params("name")))
}

func (s *Server) handleGetAngle(c *fiber.Ctx) error {
	m, err := s.motor(c)
	if err != nil {
		return err
	}
	a, err := m.WorldAngle(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(AngleBody{Deg: a.Deg()})
}

func (s *Server) handleSetAngle(c *fiber.Ctx) error {
	var body AngleBody
	if err := parse(c, &body); err != nil {
		return err
	}
	a, err := robot.NewAngle(body.Deg)
	if err != nil {
		return err
	}
	name := robot.MotorName(c.Params("name"))
	s.bus.Emit(eventbus.TopicMoveAngles, map[robot.MotorName]robot.Angle{name: a})
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleGetEncoder(c *fiber.Ctx) error {
	m, err := s.motor(c)
	if err != nil {
		return err
	}
	enc, err := m.EncodedAngle(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(EncoderBody{Enc: enc.Ticks()})
}

func (s *Server) handleSetEncoder(c *fiber.Ctx) error {
	var body EncoderBody
	if err := parse(c, &body); err != nil {
		return err
	}
	enc, err := robot.NewEncodedAngle(body.Enc)
	if err != nil {
		return err
	}
	name := robot.MotorName(c.Params("name"))
	s.bus.Emit(eventbus.TopicMoveEncoded, map[robot.MotorName]robot.EncodedAngle{name: enc})
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleSetPosition(c *fiber.Ctx) error {
	var p robot.Position
	if err := parse(c, &p); err != nil {
		return err
	}
	s.bus.Emit(eventbus.TopicMovePosition, p)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleGetLight(c *fiber.Ctx) error {
	if s.light == nil {
		return fmt.Errorf("light %w", errUnavailable)
	}
	return c.JSON(LightBody{Val: float64(s.light.Get())})
}

func (s *Server) handleSetLight(c *fiber.Ctx) error {
	var body LightBody
	if err := parse(c, &body); err != nil {
		return err
	}
	p := light.Percent(body.Val)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	s.bus.Emit(eventbus.TopicLightSet, p)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleSetTracking(c *fiber.Ctx) error {
	var body TrackingBody
	if err := parse(c, &body); err != nil {
		return err
	}
	mode, err := tracking.ParseMode(body.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	s.bus.Emit(eventbus.TopicTrackingMode, mode, body.Subject)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleAssistant(c *fiber.Ctx) error {
	var r assistant.Response
	if err := r.UnmarshalJSON(c.Body()); err != nil {
		return fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	s.bus.Emit(eventbus.TopicAIResponse, r)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleCheckup(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), CheckupTimeout)
	defer cancel()
	return c.JSON(s.ctrl.CheckAll(ctx))
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	if s.camera == nil {
		return fmt.Errorf("camera %w", errUnavailable)
	}
	jpeg, err := s.camera.Snapshot()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(jpeg)
}
