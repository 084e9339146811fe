// Package opencv captures camera frames with OpenCV.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/eventbus"
)

// DefaultFPS is the capture rate used when none is configured.
const DefaultFPS = 5

// ErrGrab is returned when the device stops delivering frames.
var ErrGrab = errors.New("failed to grab frame")

// Config holds capture settings.
type Config struct {
	Device int
	FPS    int
	Logger *slog.Logger
}

// Camera reads frames from a video device and publishes them on the bus.
type Camera struct {
	bus    *eventbus.Bus
	fps    int
	logger *slog.Logger

	mu      sync.Mutex // protects capture
	capture *gocv.VideoCapture
	seq     uint64
}

// Open opens the video device.
func Open(bus *eventbus.Bus, cfg Config) (*Camera, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open camera %d: device not opened", cfg.Device)
	}
	return &Camera{
		bus:     bus,
		fps:     cfg.FPS,
		logger:  log.Component(cfg.Logger, "camera"),
		capture: capture,
	}, nil
}

// Read grabs one frame.
func (c *Camera) Read() (camera.Frame, error) {
	img := gocv.NewMat()
	defer img.Close()

	c.mu.Lock()
	ok := c.capture.Read(&img)
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	if !ok || img.Empty() {
		return camera.Frame{}, ErrGrab
	}
	return ToFrame(img, seq)
}

// ToFrame copies a BGR Mat into a Frame.
func ToFrame(img gocv.Mat, seq uint64) (camera.Frame, error) {
	if img.Type() != gocv.MatTypeCV8UC3 {
		return camera.Frame{}, fmt.Errorf("unsupported mat type %v", img.Type())
	}
	return camera.Frame{
		Seq:    seq,
		Time:   time.Now(),
		Width:  img.Cols(),
		Height: img.Rows(),
		Data:   img.ToBytes(),
	}, nil
}

// Snapshot grabs one frame and encodes it as JPEG.
func (c *Camera) Snapshot() ([]byte, error) {
	img := gocv.NewMat()
	defer img.Close()

	c.mu.Lock()
	ok := c.capture.Read(&img)
	c.mu.Unlock()
	if !ok || img.Empty() {
		return nil, ErrGrab
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf is backed by C memory; copy before closing it.
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Run publishes a frame on TopicCameraFrame at the configured rate until
// ctx is cancelled or the device fails.
func (c *Camera) Run(ctx context.Context) error {
	c.logger.Info("camera streaming", "fps", c.fps)

	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f, err := c.Read()
			if err != nil {
				return err
			}
			c.bus.Emit(eventbus.TopicCameraFrame, f)
		}
	}
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture.Close()
}
