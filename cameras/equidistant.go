package cameras

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Equidistant is the fisheye distortion model: with r = |(x_u, y_u)| and
// theta = atan(r), the distorted radius is
//
//	theta_d = theta * (1 + k1*theta² + k2*theta⁴ + k3*theta⁶ + k4*theta⁸)
//
// and the point is rescaled radially by theta_d / r.
type Equidistant struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// Radii below this are treated as the optical axis, where the model is the identity.
const equidistantRadiusEpsilon = 1e-8

// NewEquidistant takes in a slice of floats that will be passed into the struct in order.
func NewEquidistant(inp []float64) (*Equidistant, error) {
	if len(inp) > 4 {
		return nil, errors.Errorf("list of parameters too long, expected max 4, got %d", len(inp))
	}
	if len(inp) == 0 {
		return &Equidistant{}, nil
	}
	for i := len(inp); i < 4; i++ { // fill missing values with 0.0
		inp = append(inp, 0.0)
	}
	return &Equidistant{inp[0], inp[1], inp[2], inp[3]}, nil
}

// ModelType returns the type of distortion model.
func (eq *Equidistant) ModelType() DistortionType {
	return EquidistantDistortionType
}

// CheckValid checks if the fields for Equidistant have valid inputs.
func (eq *Equidistant) CheckValid() error {
	if eq == nil {
		return InvalidDistortionError("Equidistant shaped distortion_parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (eq *Equidistant) Parameters() []float64 {
	if eq == nil {
		return []float64{}
	}
	return []float64{eq.K1, eq.K2, eq.K3, eq.K4}
}

// Distort applies the fisheye model to undistorted normalized coordinates.
func (eq *Equidistant) Distort(x, y float64) (float64, float64) {
	r := math.Sqrt(x*x + y*y)
	if r <= equidistantRadiusEpsilon {
		return x, y
	}
	scaling := eq.thetaD(math.Atan(r)) / r
	return scaling * x, scaling * y
}

// DistortWithJacobian applies the model and the exact 2x2 derivative of the
// distorted coordinates with respect to the undistorted ones. The radial
// symmetry gives J = s*I + (s'/r) * u * u^T for the scaling s(r) = theta_d/r.
func (eq *Equidistant) DistortWithJacobian(x, y float64) (float64, float64, mgl64.Mat2) {
	r := math.Sqrt(x*x + y*y)
	if r <= equidistantRadiusEpsilon {
		return x, y, mgl64.Ident2()
	}
	theta := math.Atan(r)
	thetaD := eq.thetaD(theta)
	s := thetaD / r

	// d theta_d / dr through theta, with d theta / dr = 1/(1+r²)
	thetaDPrime := eq.dThetaD(theta) / (1.0 + r*r)
	// d s / dr, divided by r for the outer-product term
	sPrimeOverR := (thetaDPrime*r - thetaD) / (r * r * r)

	jac := mgl64.Mat2{}
	jac.Set(0, 0, s+sPrimeOverR*x*x)
	jac.Set(0, 1, sPrimeOverR*x*y)
	jac.Set(1, 0, sPrimeOverR*x*y)
	jac.Set(1, 1, s+sPrimeOverR*y*y)
	return s * x, s * y, jac
}

// Undistort inverts the model with a Newton-Raphson iteration.
func (eq *Equidistant) Undistort(x, y float64) (float64, float64, bool) {
	return newtonUndistort(eq, x, y)
}

// thetaD is the distorted angle polynomial.
func (eq *Equidistant) thetaD(theta float64) float64 {
	theta2 := theta * theta
	theta4 := theta2 * theta2
	theta6 := theta4 * theta2
	theta8 := theta4 * theta4
	return theta * (1.0 + eq.K1*theta2 + eq.K2*theta4 + eq.K3*theta6 + eq.K4*theta8)
}

// dThetaD is the derivative of thetaD with respect to theta.
func (eq *Equidistant) dThetaD(theta float64) float64 {
	theta2 := theta * theta
	theta4 := theta2 * theta2
	theta6 := theta4 * theta2
	theta8 := theta4 * theta4
	return 1.0 + 3.0*eq.K1*theta2 + 5.0*eq.K2*theta4 + 7.0*eq.K3*theta6 + 9.0*eq.K4*theta8
}
