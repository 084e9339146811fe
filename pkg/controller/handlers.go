package controller

import (
	"context"
	"errors"

	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
)

// Attach subscribes the controller to its command topics. Calling Attach
// twice is a no-op.
func (c *Controller) Attach() {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) > 0 {
		return
	}
	c.subs = []eventbus.Subscription{
		c.bus.Subscribe(eventbus.TopicMoveAngles, c.onMoveAngles),
		c.bus.Subscribe(eventbus.TopicMoveEncoded, c.onMoveEncoded),
		c.bus.Subscribe(eventbus.TopicMovePosition, c.onMovePosition),
		c.bus.Subscribe(eventbus.TopicMoveTrackingCmd, c.onMoveTracking),
		c.bus.Subscribe(eventbus.TopicTorque, c.onTorque),
	}
}

// Detach removes the subscriptions made by Attach.
func (c *Controller) Detach() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if err := c.bus.Unsubscribe(sub); err != nil {
			c.logger.Warn("unsubscribe failed", "topic", sub.Topic, "error", err)
		}
	}
}

func (c *Controller) onMoveAngles(ctx context.Context, ev eventbus.Event) error {
	angles, err := eventbus.Arg[map[robot.MotorName]robot.Angle](ev, 0)
	if err != nil {
		return err
	}
	return c.MoveAngles(ctx, angles).Err()
}

func (c *Controller) onMoveEncoded(ctx context.Context, ev eventbus.Event) error {
	encoded, err := eventbus.Arg[map[robot.MotorName]robot.EncodedAngle](ev, 0)
	if err != nil {
		return err
	}
	return c.MoveEncoded(ctx, encoded).Err()
}

func (c *Controller) onMovePosition(ctx context.Context, ev eventbus.Event) error {
	p, err := eventbus.Arg[robot.Position](ev, 0)
	if err != nil {
		return err
	}
	res, err := c.MovePosition(ctx, p)
	if err != nil {
		return err
	}
	return res.Err()
}

func (c *Controller) onMoveTracking(ctx context.Context, ev eventbus.Event) error {
	target, err := eventbus.Arg[robot.Normalized](ev, 0)
	if err != nil {
		return err
	}
	res, err := c.MoveTracking(ctx, target)
	if errors.Is(err, ErrNoSteering) {
		return nil
	}
	if err != nil {
		return err
	}
	return res.Err()
}

func (c *Controller) onTorque(ctx context.Context, ev eventbus.Event) error {
	enable, err := eventbus.Arg[bool](ev, 0)
	if err != nil {
		return err
	}
	return c.SetTorque(ctx, enable).Err()
}
