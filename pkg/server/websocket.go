package server

import (
	"context"

	"github.com/gofiber/websocket/v2"

	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
)

// handleAnglesWS streams every controller_angles broadcast to the client.
// A slow client only ever gets the latest snapshot.
func (s *Server) handleAnglesWS(c *websocket.Conn) {
	updates := make(chan map[robot.MotorName]robot.Angle, 1)
	sub := s.bus.Subscribe(eventbus.TopicAngles, func(_ context.Context, ev eventbus.Event) error {
		angles, err := eventbus.Arg[map[robot.MotorName]robot.Angle](ev, 0)
		if err != nil {
			return err
		}
		latest(updates, angles)
		return nil
	})
	defer func() {
		if err := s.bus.Unsubscribe(sub); err != nil {
			s.logger.Warn("unsubscribe failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case angles := <-updates:
			if err := c.WriteJSON(angles); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// latest puts v in ch, replacing a value nobody has taken yet.
func latest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
