package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// TransformationAmbientDim is the number of scalars in the flattened ambient
// representation of a rigid transform: translation x,y,z then quaternion x,y,z,w.
const TransformationAmbientDim = 7

// TransformationTangentDim is the dimension of the minimal tangent space of a
// rigid transform: a translation delta and a rotation vector.
const TransformationTangentDim = 6

// Transformation is a rigid 6-degree-of-freedom transform stored as a unit
// rotation quaternion and a translation. The quaternion is unit-norm by
// construction; only Oplus renormalizes, nothing else does so defensively.
type Transformation struct {
	q quat.Number
	t r3.Vector
}

// NewTransformation creates a Transformation from a rotation quaternion and a translation.
// The quaternion is normalized on the way in.
func NewTransformation(q quat.Number, t r3.Vector) *Transformation {
	return &Transformation{q: Normalize(q), t: t}
}

// NewIdentityTransformation creates the identity transform.
func NewIdentityTransformation() *Transformation {
	return &Transformation{q: quat.Number{Real: 1}}
}

// NewTransformationFromParameters creates a Transformation from the flattened
// ambient representation [tx ty tz qx qy qz qw].
func NewTransformationFromParameters(p []float64) (*Transformation, error) {
	if len(p) != TransformationAmbientDim {
		return nil, errors.Errorf("expected %d parameters, got %d", TransformationAmbientDim, len(p))
	}
	return NewTransformation(QuatFromBuffer(p[3:]), r3.Vector{X: p[0], Y: p[1], Z: p[2]}), nil
}

// Parameters returns the flattened ambient representation [tx ty tz qx qy qz qw].
func (tf *Transformation) Parameters() []float64 {
	p := make([]float64, TransformationAmbientDim)
	p[0] = tf.t.X
	p[1] = tf.t.Y
	p[2] = tf.t.Z
	QuatToBuffer(tf.q, p[3:])
	return p
}

// Rotation returns the rotation quaternion.
func (tf *Transformation) Rotation() quat.Number {
	return tf.q
}

// Translation returns the translation vector.
func (tf *Transformation) Translation() r3.Vector {
	return tf.t
}

// RotationMatrix returns the rotation as a matrix.
func (tf *Transformation) RotationMatrix() mgl64.Mat3 {
	return QuatToRotationMat(tf.q)
}

// dualQuat packs the transform into a unit dual quaternion.
func (tf *Transformation) dualQuat() dualquat.Number {
	return dualquat.Number{
		Real: tf.q,
		Dual: quat.Scale(0.5, quat.Mul(quat.Number{Imag: tf.t.X, Jmag: tf.t.Y, Kmag: tf.t.Z}, tf.q)),
	}
}

// fromDualQuat unpacks a unit dual quaternion back into rotation and translation.
func fromDualQuat(dq dualquat.Number) *Transformation {
	tQuat := quat.Scale(2, quat.Mul(dq.Dual, quat.Conj(dq.Real)))
	return &Transformation{
		q: dq.Real,
		t: r3.Vector{X: tQuat.Imag, Y: tQuat.Jmag, Z: tQuat.Kmag},
	}
}

// Compose returns the transform equivalent to applying other first and then tf.
func (tf *Transformation) Compose(other *Transformation) *Transformation {
	return fromDualQuat(dualquat.Mul(tf.dualQuat(), other.dualQuat()))
}

// Inverse returns the inverse transform.
func (tf *Transformation) Inverse() *Transformation {
	qInv := quat.Conj(tf.q)
	cInv := QuatToRotationMat(qInv)
	tInv := cInv.Mul3x1(mgl64.Vec3{-tf.t.X, -tf.t.Y, -tf.t.Z})
	return &Transformation{q: qInv, t: r3.Vector{X: tInv[0], Y: tInv[1], Z: tInv[2]}}
}

// TransformPoint applies the transform to a Euclidean point, C*p + t.
func (tf *Transformation) TransformPoint(p r3.Vector) r3.Vector {
	rotated := QuatToRotationMat(tf.q).Mul3x1(mgl64.Vec3{p.X, p.Y, p.Z})
	return r3.Vector{X: rotated[0] + tf.t.X, Y: rotated[1] + tf.t.Y, Z: rotated[2] + tf.t.Z}
}

// TransformHomogeneous applies the transform to a homogeneous point,
// [C*p + w*t, w]. There is no division by w, so points at infinity (w == 0)
// pass through as transformed directions.
func (tf *Transformation) TransformHomogeneous(hp mgl64.Vec4) mgl64.Vec4 {
	rotated := QuatToRotationMat(tf.q).Mul3x1(mgl64.Vec3{hp[0], hp[1], hp[2]})
	w := hp[3]
	return mgl64.Vec4{
		rotated[0] + w*tf.t.X,
		rotated[1] + w*tf.t.Y,
		rotated[2] + w*tf.t.Z,
		w,
	}
}

// Oplus applies a minimal tangent increment: the translation delta is added
// and the rotation vector is composed multiplicatively through the exponential
// map, q <- DeltaQ(dAlpha) * q. This is the one place the quaternion is
// renormalized, keeping numeric drift from accumulating across updates.
func (tf *Transformation) Oplus(dt, dAlpha r3.Vector) {
	tf.t = tf.t.Add(dt)
	tf.q = Normalize(quat.Mul(DeltaQ(dAlpha), tf.q))
}

// LiftJacobian returns the 7x6 Jacobian mapping a minimal tangent perturbation
// to its effect on the flattened ambient representation, evaluated at the
// current state. A full 2x7 Jacobian with respect to the ambient parameters
// becomes the 2x6 minimal one by right-multiplying with this matrix.
func (tf *Transformation) LiftJacobian() *mat.Dense {
	lift := mat.NewDense(TransformationAmbientDim, TransformationTangentDim, nil)
	for i := 0; i < 3; i++ {
		lift.Set(i, i, 1)
	}
	rotLift := RotationLiftJacobian(tf.q)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			lift.Set(3+i, 3+j, rotLift.At(i, j))
		}
	}
	return lift
}

// AlmostEqual reports whether two transforms agree to within tol on translation
// and rotation. The quaternion comparison accounts for the q/-q double cover.
func (tf *Transformation) AlmostEqual(other *Transformation, tol float64) bool {
	if tf.t.Sub(other.t).Norm() > tol {
		return false
	}
	d := quat.Sub(tf.q, other.q)
	s := quat.Add(tf.q, other.q)
	dNorm := math.Sqrt(d.Real*d.Real + d.Imag*d.Imag + d.Jmag*d.Jmag + d.Kmag*d.Kmag)
	sNorm := math.Sqrt(s.Real*s.Real + s.Imag*s.Imag + s.Jmag*s.Jmag + s.Kmag*s.Kmag)
	return math.Min(dNorm, sNorm) <= tol
}
