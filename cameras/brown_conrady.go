package cameras

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// BrownConrady is the radial-tangential distortion model:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
//
// where (x_u, y_u) are undistorted and (x_d, y_d) distorted normalized coordinates.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	if len(inp) == 0 {
		return &BrownConrady{}, nil
	}
	for i := len(inp); i < 5; i++ { // fill missing values with 0.0
		inp = append(inp, 0.0)
	}
	return &BrownConrady{inp[0], inp[1], inp[2], inp[3], inp[4]}, nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Distort applies the radial-tangential model to undistorted normalized coordinates.
func (bc *BrownConrady) Distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := x*radDist + 2.0*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.0*x*x)
	yd := y*radDist + 2.0*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.0*y*y)
	return xd, yd
}

// DistortWithJacobian applies the model and the exact 2x2 derivative of the
// distorted coordinates with respect to the undistorted ones.
func (bc *BrownConrady) DistortWithJacobian(x, y float64) (float64, float64, mgl64.Mat2) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := x*radDist + 2.0*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.0*x*x)
	yd := y*radDist + 2.0*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.0*y*y)

	dRadDistDx := 2.0 * x * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r4)
	dRadDistDy := 2.0 * y * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r4)

	jac := mgl64.Mat2{}
	jac.Set(0, 0, radDist+x*dRadDistDx+2.0*bc.TangentialP1*y+6.0*bc.TangentialP2*x)
	jac.Set(0, 1, x*dRadDistDy+2.0*bc.TangentialP1*x+2.0*bc.TangentialP2*y)
	jac.Set(1, 0, y*dRadDistDx+2.0*bc.TangentialP2*y+2.0*bc.TangentialP1*x)
	jac.Set(1, 1, radDist+y*dRadDistDy+2.0*bc.TangentialP2*x+6.0*bc.TangentialP1*y)
	return xd, yd, jac
}

// Undistort inverts the model with a Newton-Raphson iteration.
func (bc *BrownConrady) Undistort(x, y float64) (float64, float64, bool) {
	return newtonUndistort(bc, x, y)
}
