package detection

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/robot"
)

// DefaultCascade is the Haar cascade shipped with OpenCV for frontal faces.
const DefaultCascade = "data/haarcascade_frontalface_default.xml"

// FaceConfig holds the Haar detector parameters.
type FaceConfig struct {
	CascadePath  string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

// DefaultFaceConfig returns the parameters used on the lamp. The large
// minimum size keeps background faces from stealing the lamp's attention.
func DefaultFaceConfig() FaceConfig {
	return FaceConfig{
		CascadePath:  DefaultCascade,
		ScaleFactor:  1.05,
		MinNeighbors: 5,
		MinSize:      image.Pt(200, 200),
	}
}

// HaarFaceLocator finds the first face in a frame.
type HaarFaceLocator struct {
	cfg        FaceConfig
	mu         sync.Mutex // protects classifier
	classifier gocv.CascadeClassifier
}

// NewHaarFaceLocator loads the cascade at cfg.CascadePath.
func NewHaarFaceLocator(cfg FaceConfig) (*HaarFaceLocator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("load cascade %s", cfg.CascadePath)
	}
	return &HaarFaceLocator{cfg: cfg, classifier: classifier}, nil
}

// Locate implements tracking.Locator.
func (l *HaarFaceLocator) Locate(f camera.Frame) (robot.Normalized, bool, error) {
	img, err := frameMat(f)
	if err != nil {
		return robot.Normalized{}, false, err
	}
	defer img.Close()

	gray, err := grayscale(img)
	if err != nil {
		return robot.Normalized{}, false, err
	}
	defer gray.Close()

	l.mu.Lock()
	faces := l.classifier.DetectMultiScaleWithParams(
		gray, l.cfg.ScaleFactor, l.cfg.MinNeighbors, 0, l.cfg.MinSize, image.Point{},
	)
	l.mu.Unlock()

	if len(faces) == 0 {
		return robot.Normalized{}, false, nil
	}
	return Normalize(faces[0], f.Width, f.Height), true, nil
}

// Close releases the classifier.
func (l *HaarFaceLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classifier.Close()
}
