// Package camera defines the frames exchanged on the camera_frame topic.
// Capture itself lives in the opencv subpackage so that consumers of
// frames do not need OpenCV to build.
package camera

import (
	"fmt"
	"time"
)

// Channels is the number of bytes per pixel of a Frame (BGR).
const Channels = 3

// Frame is one captured image in packed BGR24 layout.
type Frame struct {
	Seq    uint64
	Time   time.Time
	Width  int
	Height int
	Data   []byte
}

// Validate checks that Data matches the frame size.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * Channels; len(f.Data) != want {
		return fmt.Errorf("frame data is %d bytes, want %d", len(f.Data), want)
	}
	return nil
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}
