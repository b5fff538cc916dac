// Package frame holds the front-end data containers of the estimator: the
// keypoints and descriptors detected in an image, the frame wrapping them with
// its camera model, and the multi-frame grouping one frame per rig camera.
// Detection and description themselves are collaborator interfaces the front
// end implements; this package only stores their results.
package frame

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Keypoint is a 2D interest point as the detector reported it.
type Keypoint struct {
	// Pixel is the measured image coordinate.
	Pixel r2.Point
	// Size is the detection scale in pixels.
	Size float64
	// Angle is the keypoint orientation in radians.
	Angle float64
	// Response is the detector score.
	Response float64
	// Octave is the pyramid level of the detection.
	Octave int
}

// MeasurementInformation derives the 2x2 information matrix of the pixel
// measurement from the detection scale: 64/size^2 on the diagonal, so a
// detection at size 8 carries identity information and coarser detections
// weigh less.
func (kp *Keypoint) MeasurementInformation() (*mat.SymDense, error) {
	if kp.Size <= 0 {
		return nil, errors.Errorf("keypoint size must be positive, got %v", kp.Size)
	}
	w := 64.0 / (kp.Size * kp.Size)
	return mat.NewSymDense(2, []float64{w, 0, 0, w}), nil
}

// Descriptor is an opaque binary feature descriptor.
type Descriptor []byte

// Detector finds keypoints in an image. The front end implements it.
type Detector interface {
	Detect(img image.Image) ([]Keypoint, error)
}

// Extractor computes a descriptor per keypoint. The front end implements it.
type Extractor interface {
	Extract(img image.Image, keypoints []Keypoint) ([]Descriptor, error)
}
