package cameras

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// NoDistortionType is the identity model, for pre-rectified images and test configurations.
	NoDistortionType = DistortionType("none")
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// EquidistantDistortionType is for wide-angle and fisheye lens distortion.
	EquidistantDistortionType = DistortionType("equidistant")
)

// Distortion maps undistorted normalized image coordinates to distorted ones.
type Distortion interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	// Distort maps undistorted normalized coordinates to distorted ones.
	Distort(x, y float64) (float64, float64)
	// DistortWithJacobian additionally returns the exact 2x2 derivative of the
	// distorted coordinates with respect to the undistorted ones.
	DistortWithJacobian(x, y float64) (float64, float64, mgl64.Mat2)
	// Undistort inverts Distort iteratively; the flag reports convergence.
	Undistort(x, y float64) (float64, float64, bool)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrapf(errors.New("invalid distortion_parameters"), msg)
}

// NewDistortion returns a Distortion given a valid DistortionType and its parameters.
func NewDistortion(distortionType DistortionType, parameters []float64) (Distortion, error) {
	switch distortionType {
	case NoDistortionType:
		return &NoDistortion{}, nil
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case EquidistantDistortionType:
		return NewEquidistant(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// newtonUndistort inverts a distortion model with a Newton-Raphson iteration,
// starting from the distorted point itself.
func newtonUndistort(d Distortion, xd, yd float64) (float64, float64, bool) {
	xu, yu := xd, yd

	const maxIterations = 20
	const tolerance = 1e-10

	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst, jac := d.DistortWithJacobian(xu, yu)

		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			return xu, yu, true
		}

		det := jac.At(0, 0)*jac.At(1, 1) - jac.At(0, 1)*jac.At(1, 0)
		if det == 0 {
			return xu, yu, false
		}

		// [xu, yu] -= J^-1 * [errX, errY]
		xu -= (jac.At(1, 1)*errX - jac.At(0, 1)*errY) / det
		yu -= (-jac.At(1, 0)*errX + jac.At(0, 0)*errY) / det
	}
	return xu, yu, false
}
