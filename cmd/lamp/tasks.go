package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/gwillem/lamp/internal/log"
)

// task is a long-running part of serve. A failing essential task stops
// every other task; an optional one only stops itself.
type task struct {
	name     string
	run      func(context.Context) error
	optional bool
}

// runTasks runs tasks until ctx is cancelled or an essential task fails.
func runTasks(ctx context.Context, tasks ...task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			err := ignoreCanceled(t.run(gctx))
			if err != nil && t.optional {
				log.Error("task stopped", "task", t.name, "error", err)
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// ignoreCanceled treats a cancelled context as a clean stop.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
