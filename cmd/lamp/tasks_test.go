package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/lamp/pkg/controller"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/robot/robottest"
)

func TestRunTasks_OptionalFailureKeepsControllerRunning(t *testing.T) {
	bus := eventbus.New()
	defer func() {
		bus.Close()
		bus.Wait()
	}()

	ticks := make(chan struct{}, 64)
	bus.Subscribe(eventbus.TopicAngles, func(context.Context, eventbus.Event) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	})

	ctrl := controller.FromConfig(robottest.New(1, 2, 3, 4), bus, robot.DefaultConfig(),
		controller.Config{Interval: 10 * time.Millisecond})

	cameraFailed := make(chan struct{})
	camera := func(context.Context) error {
		close(cameraFailed)
		return errors.New("grab failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runTasks(ctx,
			task{name: "controller", run: ctrl.Run},
			task{name: "camera", run: camera, optional: true},
		)
	}()

	<-cameraFailed
	// Drain broadcasts that may predate the failure, then expect new ones.
	for len(ticks) > 0 {
		<-ticks
	}
	for range 3 {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatal("controller stopped broadcasting after the camera failed")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runTasks did not return after cancel")
	}
}

func TestRunTasks_EssentialFailureStopsAll(t *testing.T) {
	boom := errors.New("listen failed")
	stopped := make(chan struct{})

	err := runTasks(context.Background(),
		task{name: "http", run: func(context.Context) error { return boom }},
		task{name: "controller", run: func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		}},
	)
	require.ErrorIs(t, err, boom)

	select {
	case <-stopped:
	default:
		t.Fatal("essential failure did not cancel the other tasks")
	}
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, ignoreCanceled(boom), boom)
}
