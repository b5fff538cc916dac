package spatialmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// a 45 degree rotation around the x axis in both representations
var (
	th   = math.Pi / 4.
	q45x = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
)

func TestDeltaQ(t *testing.T) {
	q := DeltaQ(r3.Vector{})
	test.That(t, q.Real, test.ShouldEqual, 1)
	test.That(t, q.Imag, test.ShouldEqual, 0)
	test.That(t, q.Jmag, test.ShouldEqual, 0)
	test.That(t, q.Kmag, test.ShouldEqual, 0)

	// a rotation vector along an axis is the axis angle of that rotation
	q = DeltaQ(aa45x.ToR3())
	qRef := aa45x.ToQuat()
	test.That(t, q.Real, test.ShouldAlmostEqual, qRef.Real)
	test.That(t, q.Imag, test.ShouldAlmostEqual, qRef.Imag)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, qRef.Jmag)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, qRef.Kmag)

	// the Taylor branch must join the exact branch smoothly
	small := r3.Vector{X: 1e-7, Y: -2e-7, Z: 3e-8}
	q = DeltaQ(small)
	test.That(t, q.Real, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, q.Imag, test.ShouldAlmostEqual, small.X/2, 1e-18)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, small.Y/2, 1e-18)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, small.Z/2, 1e-18)
}

func TestQuatToRotationMat(t *testing.T) {
	c := QuatToRotationMat(q45x)
	rotated := c.Mul3x1(mgl64.Vec3{0, 1, 0})
	test.That(t, rotated[0], test.ShouldAlmostEqual, 0)
	test.That(t, rotated[1], test.ShouldAlmostEqual, math.Sqrt(2)/2)
	test.That(t, rotated[2], test.ShouldAlmostEqual, math.Sqrt(2)/2)

	// rotation matrices compose like their quaternions
	qz := (&R4AA{math.Pi / 3., 0., 0., 1.}).ToQuat()
	cProd := QuatToRotationMat(quat.Mul(q45x, qz))
	cMul := QuatToRotationMat(q45x).Mul3(QuatToRotationMat(qz))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, cProd.At(i, j), test.ShouldAlmostEqual, cMul.At(i, j))
		}
	}
}

func TestCrossMx(t *testing.T) {
	v := r3.Vector{X: 1, Y: -2, Z: 0.5}
	u := r3.Vector{X: -0.3, Y: 4, Z: 2}
	got := CrossMx(v).Mul3x1(mgl64.Vec3{u.X, u.Y, u.Z})
	want := v.Cross(u)
	test.That(t, got[0], test.ShouldAlmostEqual, want.X)
	test.That(t, got[1], test.ShouldAlmostEqual, want.Y)
	test.That(t, got[2], test.ShouldAlmostEqual, want.Z)
}

func TestRotationLiftJacobian(t *testing.T) {
	q := Normalize(quat.Number{Real: 0.4, Imag: -0.2, Jmag: 0.7, Kmag: 0.1})
	lift := RotationLiftJacobian(q)

	// central finite difference of DeltaQ(eps*e_j) * q along each tangent axis
	const h = 1e-6
	for j := 0; j < 3; j++ {
		dAlpha := r3.Vector{}
		switch j {
		case 0:
			dAlpha.X = h
		case 1:
			dAlpha.Y = h
		case 2:
			dAlpha.Z = h
		}
		qPlus := quat.Mul(DeltaQ(dAlpha), q)
		qMinus := quat.Mul(DeltaQ(dAlpha.Mul(-1)), q)
		numeric := [4]float64{
			(qPlus.Imag - qMinus.Imag) / (2 * h),
			(qPlus.Jmag - qMinus.Jmag) / (2 * h),
			(qPlus.Kmag - qMinus.Kmag) / (2 * h),
			(qPlus.Real - qMinus.Real) / (2 * h),
		}
		for i := 0; i < 4; i++ {
			test.That(t, lift.At(i, j), test.ShouldAlmostEqual, numeric[i], 1e-8)
		}
	}
}

func TestRotateInverseJacobian(t *testing.T) {
	q := Normalize(quat.Number{Real: -0.3, Imag: 0.8, Jmag: 0.25, Kmag: -0.45})
	p := r3.Vector{X: 0.7, Y: -1.3, Z: 2.2}
	jac := RotateInverseJacobian(q, p)

	rotInv := func(q quat.Number) [3]float64 {
		return QuatToRotationMat(q).Transpose().Mul3x1(mgl64.Vec3{p.X, p.Y, p.Z})
	}

	// central finite difference with respect to each raw quaternion component,
	// deliberately stepping off the unit sphere
	const h = 1e-6
	for j := 0; j < 4; j++ {
		qPlus, qMinus := q, q
		switch j {
		case 0:
			qPlus.Imag += h
			qMinus.Imag -= h
		case 1:
			qPlus.Jmag += h
			qMinus.Jmag -= h
		case 2:
			qPlus.Kmag += h
			qMinus.Kmag -= h
		case 3:
			qPlus.Real += h
			qMinus.Real -= h
		}
		fPlus, fMinus := rotInv(qPlus), rotInv(qMinus)
		for i := 0; i < 3; i++ {
			test.That(t, jac.At(i, j), test.ShouldAlmostEqual, (fPlus[i]-fMinus[i])/(2*h), 1e-6)
		}
	}
}

func TestAxisAngleRoundTrip(t *testing.T) {
	data := []R4AA{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{1, 0, 1, 0},
		{1, 0, 0, 1},
	}

	// Quaternion [x, y, z, w]
	// from https://www.andre-gaschler.com/rotationconverter/
	qc := [][]float64{
		{0.2767965, 0.2767965, 0.2767965, 0.8775826},
		{0.4794255, 0, 0, 0.8775826},
		{0, 0.4794255, 0, 0.8775826},
		{0, 0, 0.4794255, 0.8775826},
	}

	for idx, d := range data {
		d.Normalize()
		q := d.ToQuat()

		d2 := QuatToR4AA(q)
		test.That(t, d2.Theta, test.ShouldAlmostEqual, d.Theta)
		test.That(t, d2.RX, test.ShouldAlmostEqual, d.RX)
		test.That(t, d2.RY, test.ShouldAlmostEqual, d.RY)
		test.That(t, d2.RZ, test.ShouldAlmostEqual, d.RZ)

		test.That(t, q.Real, test.ShouldAlmostEqual, qc[idx][3], .00001)
		test.That(t, q.Imag, test.ShouldAlmostEqual, qc[idx][0], .00001)
		test.That(t, q.Jmag, test.ShouldAlmostEqual, qc[idx][1], .00001)
		test.That(t, q.Kmag, test.ShouldAlmostEqual, qc[idx][2], .00001)
	}
}
