// Package detection provides OpenCV locators for the tracker.
package detection

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/gwillem/lamp/pkg/camera"
	"github.com/gwillem/lamp/pkg/robot"
)

// Normalize maps the center of box, in pixels of a w×h frame, to normalized
// frame coordinates.
func Normalize(box image.Rectangle, w, h int) robot.Normalized {
	cx := math.Round(float64(box.Min.X) + float64(box.Dx())/2)
	cy := math.Round(float64(box.Min.Y) + float64(box.Dy())/2)
	return robot.Normalized{
		X: 2*cx/float64(w) - 1,
		Y: 2*cy/float64(h) - 1,
	}
}


// frameMat wraps a BGR frame in a Mat. The caller must close it.
func frameMat(f camera.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("frame %d to mat: %w", f.Seq, err)
	}
	return mat, nil
}

// grayscale converts a BGR image to a single-channel one. The caller must
// close the result.
func grayscale(img gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("to grayscale: %w", err)
	}
	return gray, nil
}
