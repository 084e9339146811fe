package detection

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/tracking"
)

// ObjectLocator follows a single object with OpenCV's MIL tracker. It finds
// nothing until a subject is hinted; the tracker is seeded with the hinted
// box on the next frame.
type ObjectLocator struct {
	mu      sync.Mutex
	tracker gocv.Tracker
	pending *tracking.Subject
}

// NewObjectLocator returns an unseeded locator.
func NewObjectLocator() *ObjectLocator {
	return &ObjectLocator{}
}

// Hint implements tracking.Hinter. A nil or empty subject stops tracking.
func (l *ObjectLocator) Hint(s *tracking.Subject) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeTrackerLocked()
	l.pending = nil
	if s != nil {
		subject := *s
		l.pending = &subject
	}
}

// Locate implements tracking.Locator.
func (l *ObjectLocator) Locate(f camera.Frame) (robot.Normalized, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending != nil {
		return l.seedLocked(f)
	}
	if l.tracker == nil {
		return robot.Normalized{}, false, nil
	}

	img, err := frameMat(f)
	if err != nil {
		return robot.Normalized{}, false, err
	}
	defer img.Close()

	box, ok := l.tracker.Update(img)
	if !ok {
		return robot.Normalized{}, false, nil
	}
	return Normalize(box, f.Width, f.Height), true, nil
}

func (l *ObjectLocator) seedLocked(f camera.Frame) (robot.Normalized, bool, error) {
	box := l.pending.Rect(f.Width, f.Height)
	if box.Empty() {
		l.pending = nil
		return robot.Normalized{}, false, nil
	}

	img, err := frameMat(f)
	if err != nil {
		return robot.Normalized{}, false, err
	}
	defer img.Close()

	l.pending = nil
	l.tracker = gocv.NewTrackerMIL()
	if !l.tracker.Init(img, box) {
		l.closeTrackerLocked()
		return robot.Normalized{}, false, nil
	}
	return Normalize(box, f.Width, f.Height), true, nil
}

// Close releases the tracker.
func (l *ObjectLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeTrackerLocked()
	return nil
}

func (l *ObjectLocator) closeTrackerLocked() {
	if l.tracker != nil {
		l.tracker.Close()
		l.tracker = nil
	}
}
