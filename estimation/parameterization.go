package estimation

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/lvslam/okvis/spatialmath"
)

// Parameterization relates a parameter block's over-complete ambient storage
// to its minimal tangent space.
type Parameterization interface {
	AmbientSize() int
	TangentSize() int
	// Plus applies a tangent increment to an ambient value, x boxplus delta.
	Plus(x, delta, result []float64) error
	// Minus computes the tangent difference delta with Plus(x, delta) ~= y.
	Minus(x, y, delta []float64) error
	// LiftJacobian writes the ambient x tangent derivative of Plus with
	// respect to delta, at delta = 0.
	LiftJacobian(x []float64, dst *mat.Dense) error
}

func checkSizes(p Parameterization, x, delta, result []float64) error {
	if len(x) != p.AmbientSize() || len(result) != p.AmbientSize() {
		return errors.Errorf("ambient size must be %d, got %d and %d", p.AmbientSize(), len(x), len(result))
	}
	if len(delta) != p.TangentSize() {
		return errors.Errorf("tangent size must be %d, got %d", p.TangentSize(), len(delta))
	}
	return nil
}

// PoseParameterization is the manifold of rigid transforms stored as
// [tx ty tz qx qy qz qw]: the translation increments additively, the rotation
// vector composes multiplicatively through the exponential map.
type PoseParameterization struct{}

// AmbientSize returns the flattened storage size of a pose.
func (pp PoseParameterization) AmbientSize() int { return spatialmath.TransformationAmbientDim }

// TangentSize returns the minimal perturbation size of a pose.
func (pp PoseParameterization) TangentSize() int { return spatialmath.TransformationTangentDim }

// Plus applies [dt, dAlpha]: result = [t + dt, DeltaQ(dAlpha) * q]. The
// resulting quaternion is renormalized; this is the well-defined update point
// that keeps drift out of the state.
func (pp PoseParameterization) Plus(x, delta, result []float64) error {
	if err := checkSizes(pp, x, delta, result); err != nil {
		return err
	}
	result[0] = x[0] + delta[0]
	result[1] = x[1] + delta[1]
	result[2] = x[2] + delta[2]
	dq := spatialmath.DeltaQ(r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]})
	q := spatialmath.Normalize(quat.Mul(dq, spatialmath.QuatFromBuffer(x[3:])))
	spatialmath.QuatToBuffer(q, result[3:])
	return nil
}

// Minus computes the tangent difference. The rotation part uses the
// small-angle log 2*vec(q_y * q_x^-1), with the double cover resolved toward
// the shorter rotation; it is exact to first order, which is all a local
// tangent difference needs.
func (pp PoseParameterization) Minus(x, y, delta []float64) error {
	if err := checkSizes(pp, x, delta, y); err != nil {
		return err
	}
	delta[0] = y[0] - x[0]
	delta[1] = y[1] - x[1]
	delta[2] = y[2] - x[2]
	dq := quat.Mul(spatialmath.QuatFromBuffer(y[3:]), quat.Conj(spatialmath.QuatFromBuffer(x[3:])))
	if dq.Real < 0 {
		dq = quat.Scale(-1, dq)
	}
	delta[3] = 2 * dq.Imag
	delta[4] = 2 * dq.Jmag
	delta[5] = 2 * dq.Kmag
	return nil
}

// LiftJacobian is block diagonal: identity on the translation, the rotation
// lift on the quaternion.
func (pp PoseParameterization) LiftJacobian(x []float64, dst *mat.Dense) error {
	if len(x) != pp.AmbientSize() {
		return errors.Errorf("ambient size must be %d, got %d", pp.AmbientSize(), len(x))
	}
	if err := prepareJacobian(dst, pp.AmbientSize(), pp.TangentSize()); err != nil {
		return err
	}
	dst.Zero()
	for i := 0; i < 3; i++ {
		dst.Set(i, i, 1)
	}
	rotLift := spatialmath.RotationLiftJacobian(spatialmath.QuatFromBuffer(x[3:]))
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(3+i, 3+j, rotLift.At(i, j))
		}
	}
	return nil
}

// HomogeneousPointParameterization is the manifold of 4-component homogeneous
// landmarks. Its tangent is 3-dimensional: a perturbation moves the Euclidean
// head and freezes the homogeneous scale, which removes the scale redundancy
// from the minimal representation.
type HomogeneousPointParameterization struct{}

// AmbientSize returns the homogeneous storage size of a landmark.
func (hp HomogeneousPointParameterization) AmbientSize() int { return 4 }

// TangentSize returns the minimal perturbation size of a landmark.
func (hp HomogeneousPointParameterization) TangentSize() int { return 3 }

// Plus adds the perturbation to the head and passes the weight through.
func (hp HomogeneousPointParameterization) Plus(x, delta, result []float64) error {
	if err := checkSizes(hp, x, delta, result); err != nil {
		return err
	}
	result[0] = x[0] + delta[0]
	result[1] = x[1] + delta[1]
	result[2] = x[2] + delta[2]
	result[3] = x[3]
	return nil
}

// Minus is the head difference.
func (hp HomogeneousPointParameterization) Minus(x, y, delta []float64) error {
	if err := checkSizes(hp, x, delta, y); err != nil {
		return err
	}
	delta[0] = y[0] - x[0]
	delta[1] = y[1] - x[1]
	delta[2] = y[2] - x[2]
	return nil
}

// LiftJacobian is [I3; 0].
func (hp HomogeneousPointParameterization) LiftJacobian(x []float64, dst *mat.Dense) error {
	if len(x) != hp.AmbientSize() {
		return errors.Errorf("ambient size must be %d, got %d", hp.AmbientSize(), len(x))
	}
	if err := prepareJacobian(dst, hp.AmbientSize(), hp.TangentSize()); err != nil {
		return err
	}
	dst.Zero()
	for i := 0; i < 3; i++ {
		dst.Set(i, i, 1)
	}
	return nil
}
