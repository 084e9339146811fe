package detection

import (
	"image"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/robot"
	"github.com/gwillem/lamp/pkg/tracking"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		box    image.Rectangle
		expect robot.Normalized
	}{
		{
			name:   "centered",
			box:    image.Rect(270, 190, 370, 290),
			expect: robot.Normalized{X: 0, Y: 0},
		},
		{
			name:   "top left corner",
			box:    image.Rect(0, 0, 0, 0),
			expect: robot.Normalized{X: -1, Y: -1},
		},
		{
			name:   "right half",
			box:    image.Rect(440, 200, 520, 280),
			expect: robot.Normalized{X: 0.5, Y: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.box, 640, 480)
			if math.Abs(got.X-tc.expect.X) > 1e-9 || math.Abs(got.Y-tc.expect.Y) > 1e-9 {
				t.Errorf("Normalize(%v) = %+v, want %+v", tc.box, got, tc.expect)
			}
		})
	}
}

func TestGrayscale(t *testing.T) {
	img := gocv.NewMatWithSize(4, 6, gocv.MatTypeCV8UC3)
	defer img.Close()

	gray, err := grayscale(img)
	if err != nil {
		t.Fatalf("grayscale: %v", err)
	}
	defer gray.Close()
	if gray.Channels() != 1 || gray.Rows() != 4 || gray.Cols() != 6 {
		t.Errorf("got %dx%d with %d channels, want 4x6 with 1", gray.Rows(), gray.Cols(), gray.Channels())
	}
}

func TestGrayscale_Empty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := grayscale(empty); err == nil {
		t.Error("expected an error for an empty image")
	}
}

func TestDefaultFaceConfig(t *testing.T) {
	cfg := DefaultFaceConfig()
	if cfg.ScaleFactor != 1.05 {
		t.Errorf("ScaleFactor: got %v, want 1.05", cfg.ScaleFactor)
	}
	if cfg.MinNeighbors != 5 {
		t.Errorf("MinNeighbors: got %d, want 5", cfg.MinNeighbors)
	}
	if cfg.MinSize != image.Pt(200, 200) {
		t.Errorf("MinSize: got %v, want 200x200", cfg.MinSize)
	}
}

func TestNewHaarFaceLocator_MissingCascade(t *testing.T) {
	cfg := DefaultFaceConfig()
	cfg.CascadePath = "does-not-exist.xml"
	if _, err := NewHaarFaceLocator(cfg); err == nil {
		t.Error("expected error for missing cascade")
	}
}

func TestObjectLocator_Unseeded(t *testing.T) {
	l := NewObjectLocator()
	defer l.Close()

	_, found, err := l.Locate(camera.Frame{})
	if err != nil || found {
		t.Errorf("unseeded locator: found=%v err=%v, want nothing", found, err)
	}

	l.Hint(&tracking.Subject{})
	_, found, err = l.Locate(camera.Frame{})
	if err != nil || found {
		t.Errorf("empty hint: found=%v err=%v, want nothing", found, err)
	}
}

func TestObjectLocator_SeedsFromHint(t *testing.T) {
	l := NewObjectLocator()
	defer l.Close()

	l.Hint(&tracking.Subject{Name: "cup", BBox: [4]float64{0.25, 0.25, 0.25, 1.0 / 6}})
	f := camera.Frame{Width: 160, Height: 120, Data: make([]byte, 160*120*camera.Channels)}

	p, found, err := l.Locate(f)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !found {
		t.Fatal("expected the hinted box on the first frame")
	}
	if math.Abs(p.X-(-0.25)) > 1e-9 || math.Abs(p.Y-(-0.333333333)) > 1e-6 {
		t.Errorf("got %+v, want hinted box center", p)
	}
}

func TestObjectLocator_InvalidFrame(t *testing.T) {
	l := NewObjectLocator()
	defer l.Close()

	l.Hint(&tracking.Subject{BBox: [4]float64{0, 0, 0.5, 0.5}})
	if _, _, err := l.Locate(camera.Frame{Width: 10, Height: 10}); err == nil {
		t.Error("expected error for frame without pixels")
	}
}
