package tracking

import (
	"fmt"
	"image"
	"math"
)

// Mode selects what the tracker follows.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeObject Mode = "object"
	ModeFace   Mode = "face"
)

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeIdle, ModeObject, ModeFace:
		return m, nil
	}
	return "", fmt.Errorf("unknown tracking mode %q", s)
}

// Subject describes what to follow after a mode change. BBox is x, y, w, h
// relative to the frame size, with the origin at the top left corner.
type Subject struct {
	Name       string     `json:"name"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence,omitempty"`
}

// Rect returns the bounding box in pixels of a w×h frame, clipped to the
// frame.
func (s Subject) Rect(w, h int) image.Rectangle {
	x, y, bw, bh := s.BBox[0], s.BBox[1], s.BBox[2], s.BBox[3]
	if bw <= 0 || bh <= 0 {
		return image.Rectangle{}
	}
	px := func(v float64, size int) int { return int(math.Round(v * float64(size))) }
	r := image.Rect(px(x, w), px(y, h), px(x+bw, w), px(y+bh, h))
	return r.Intersect(image.Rect(0, 0, w, h))
}

// Hinter is implemented by locators that accept a subject when their mode
// is selected. A nil subject resets the locator.
type Hinter interface {
	Hint(s *Subject)
}
