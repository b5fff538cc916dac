package spatialmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func testTransformation() *Transformation {
	q := (&R4AA{1.2, 0.3, -0.8, 0.52}).ToQuat()
	return NewTransformation(q, r3.Vector{X: 0.5, Y: -1.1, Z: 2.4})
}

func TestTransformationParameters(t *testing.T) {
	tf := testTransformation()
	p := tf.Parameters()
	test.That(t, len(p), test.ShouldEqual, TransformationAmbientDim)

	tf2, err := NewTransformationFromParameters(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf2.AlmostEqual(tf, 1e-12), test.ShouldBeTrue)

	_, err = NewTransformationFromParameters(p[:5])
	test.That(t, err, test.ShouldNotBeNil)

	// parameter layout is [tx ty tz qx qy qz qw]
	test.That(t, p[0], test.ShouldEqual, tf.Translation().X)
	test.That(t, p[6], test.ShouldAlmostEqual, tf.Rotation().Real)
}

func TestComposeInverse(t *testing.T) {
	a := testTransformation()
	b := NewTransformation((&R4AA{0.7, -1, 0.2, 0.4}).ToQuat(), r3.Vector{X: -2, Y: 0.3, Z: 0.9})

	// composition applies the right transform first
	p := r3.Vector{X: 1.5, Y: -0.4, Z: 3}
	composed := a.Compose(b)
	test.That(t, composed.TransformPoint(p).Sub(a.TransformPoint(b.TransformPoint(p))).Norm(),
		test.ShouldAlmostEqual, 0, 1e-12)

	// a * a^-1 is the identity
	ident := a.Compose(a.Inverse())
	test.That(t, ident.AlmostEqual(NewIdentityTransformation(), 1e-12), test.ShouldBeTrue)

	// the inverse undoes the transform pointwise
	test.That(t, a.Inverse().TransformPoint(a.TransformPoint(p)).Sub(p).Norm(),
		test.ShouldAlmostEqual, 0, 1e-12)
}

func TestTransformHomogeneous(t *testing.T) {
	tf := testTransformation()
	p := r3.Vector{X: 0.4, Y: 2.5, Z: -1.7}

	// w=1 matches the Euclidean transform
	hp := tf.TransformHomogeneous(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	euclid := tf.TransformPoint(p)
	test.That(t, hp[0], test.ShouldAlmostEqual, euclid.X)
	test.That(t, hp[1], test.ShouldAlmostEqual, euclid.Y)
	test.That(t, hp[2], test.ShouldAlmostEqual, euclid.Z)
	test.That(t, hp[3], test.ShouldEqual, 1.0)

	// w=0 is a direction: rotated, never translated
	hpInf := tf.TransformHomogeneous(mgl64.Vec4{p.X, p.Y, p.Z, 0})
	rotated := tf.RotationMatrix().Mul3x1(mgl64.Vec3{p.X, p.Y, p.Z})
	test.That(t, hpInf[0], test.ShouldAlmostEqual, rotated[0])
	test.That(t, hpInf[1], test.ShouldAlmostEqual, rotated[1])
	test.That(t, hpInf[2], test.ShouldAlmostEqual, rotated[2])
	test.That(t, hpInf[3], test.ShouldEqual, 0.0)

	// scaling the homogeneous point scales the transformed point
	hpScaled := tf.TransformHomogeneous(mgl64.Vec4{2 * p.X, 2 * p.Y, 2 * p.Z, 2})
	test.That(t, hpScaled[0], test.ShouldAlmostEqual, 2*hp[0])
	test.That(t, hpScaled[3], test.ShouldEqual, 2.0)
}

func TestOplus(t *testing.T) {
	tf := testTransformation()
	orig := *tf

	dt := r3.Vector{X: 0.1, Y: -0.2, Z: 0.05}
	dAlpha := r3.Vector{X: -0.03, Y: 0.07, Z: 0.11}
	tf.Oplus(dt, dAlpha)

	test.That(t, tf.Translation().Sub(orig.Translation().Add(dt)).Norm(), test.ShouldAlmostEqual, 0)
	qWant := Normalize(quat.Mul(DeltaQ(dAlpha), orig.Rotation()))
	test.That(t, tf.Rotation().Real, test.ShouldAlmostEqual, qWant.Real)
	test.That(t, tf.Rotation().Imag, test.ShouldAlmostEqual, qWant.Imag)

	// the quaternion stays unit norm through updates
	q := tf.Rotation()
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	test.That(t, norm, test.ShouldAlmostEqual, 1, 1e-14)

	// a zero increment is a no-op
	tf2 := testTransformation()
	tf2.Oplus(r3.Vector{}, r3.Vector{})
	test.That(t, tf2.AlmostEqual(testTransformation(), 1e-14), test.ShouldBeTrue)
}

func TestLiftJacobianFiniteDifference(t *testing.T) {
	tf := testTransformation()
	lift := tf.LiftJacobian()
	rows, cols := lift.Dims()
	test.That(t, rows, test.ShouldEqual, TransformationAmbientDim)
	test.That(t, cols, test.ShouldEqual, TransformationTangentDim)

	const h = 1e-6
	for j := 0; j < TransformationTangentDim; j++ {
		delta := make([]float64, TransformationTangentDim)

		delta[j] = h
		plus := testTransformation()
		plus.Oplus(r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}, r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]})

		delta[j] = -h
		minus := testTransformation()
		minus.Oplus(r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}, r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]})

		pPlus, pMinus := plus.Parameters(), minus.Parameters()
		for i := 0; i < TransformationAmbientDim; i++ {
			test.That(t, lift.At(i, j), test.ShouldAlmostEqual, (pPlus[i]-pMinus[i])/(2*h), 1e-8)
		}
	}
}
