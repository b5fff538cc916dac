package cameras

import "github.com/go-gl/mathgl/mgl64"

// NoDistortion is the identity distortion model.
type NoDistortion struct{}

// ModelType returns the type of distortion model.
func (nd *NoDistortion) ModelType() DistortionType {
	return NoDistortionType
}

// CheckValid checks if the fields for NoDistortion have valid inputs.
func (nd *NoDistortion) CheckValid() error {
	if nd == nil {
		return InvalidDistortionError("NoDistortion shaped distortion_parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (nd *NoDistortion) Parameters() []float64 {
	return []float64{}
}

// Distort is the identity.
func (nd *NoDistortion) Distort(x, y float64) (float64, float64) {
	return x, y
}

// DistortWithJacobian is the identity with an identity Jacobian.
func (nd *NoDistortion) DistortWithJacobian(x, y float64) (float64, float64, mgl64.Mat2) {
	return x, y, mgl64.Ident2()
}

// Undistort is the identity.
func (nd *NoDistortion) Undistort(x, y float64) (float64, float64, bool) {
	return x, y, true
}
