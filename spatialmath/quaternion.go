// Package spatialmath defines the spatial mathematical operations needed to
// express rigid transforms and their derivatives on the rotation manifold.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion components are stored as x,y,z,w whenever they are flattened into
// a parameter buffer; quat.Number keeps them as {Real: w, Imag: x, Jmag: y, Kmag: z}.

// QuatFromBuffer reads a quaternion from a flat x,y,z,w slice.
func QuatFromBuffer(b []float64) quat.Number {
	return quat.Number{Real: b[3], Imag: b[0], Jmag: b[1], Kmag: b[2]}
}

// QuatToBuffer writes a quaternion into a flat x,y,z,w slice.
func QuatToBuffer(q quat.Number, b []float64) {
	b[0] = q.Imag
	b[1] = q.Jmag
	b[2] = q.Kmag
	b[3] = q.Real
}

// Normalize scales a quaternion to unit norm.
func Normalize(q quat.Number) quat.Number {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	return quat.Number{Real: q.Real / norm, Imag: q.Imag / norm, Jmag: q.Jmag / norm, Kmag: q.Kmag / norm}
}

// CrossMx returns the skew-symmetric matrix [v]x such that CrossMx(v).Mul3x1(u) == v x u.
func CrossMx(v r3.Vector) mgl64.Mat3 {
	m := mgl64.Mat3{}
	m.Set(0, 1, -v.Z)
	m.Set(0, 2, v.Y)
	m.Set(1, 0, v.Z)
	m.Set(1, 2, -v.X)
	m.Set(2, 0, -v.Y)
	m.Set(2, 1, v.X)
	return m
}

// QuatToRotationMat converts a quaternion to its rotation matrix using the
// homogeneous polynomial form (w^2 - v.v)I + 2vv^T + 2w[v]x. Unlike the
// unit-assuming forms, this stays an exact polynomial in the four quaternion
// components, so derivatives with respect to the raw components match a
// numeric differentiation that steps off the unit sphere.
func QuatToRotationMat(q quat.Number) mgl64.Mat3 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	ww := w*w - (x*x + y*y + z*z)
	m := mgl64.Mat3{}
	m.Set(0, 0, ww+2*x*x)
	m.Set(0, 1, 2*(x*y-w*z))
	m.Set(0, 2, 2*(x*z+w*y))
	m.Set(1, 0, 2*(x*y+w*z))
	m.Set(1, 1, ww+2*y*y)
	m.Set(1, 2, 2*(y*z-w*x))
	m.Set(2, 0, 2*(x*z-w*y))
	m.Set(2, 1, 2*(y*z+w*x))
	m.Set(2, 2, ww+2*z*z)
	return m
}

// DeltaQ maps a small rotation vector to its quaternion through the
// exponential map, [sinc(|d|/2) * d/2, cos(|d|/2)]. The sinc is evaluated
// with a Taylor expansion near zero so the map is smooth through the origin.
func DeltaQ(dAlpha r3.Vector) quat.Number {
	halfNorm := 0.5 * dAlpha.Norm()
	s := sinc(halfNorm) * 0.5
	return quat.Number{
		Real: math.Cos(halfNorm),
		Imag: dAlpha.X * s,
		Jmag: dAlpha.Y * s,
		Kmag: dAlpha.Z * s,
	}
}

// sinc is sin(x)/x, continuously extended through x = 0.
func sinc(x float64) float64 {
	if math.Abs(x) > 1e-6 {
		return math.Sin(x) / x
	}
	// sin(x)/x = 1 - x^2/6 + x^4/120 - ...
	x2 := x * x
	return 1.0 - x2/6.0*(1.0-x2/20.0)
}

// RotationLiftJacobian returns the 4x3 derivative of DeltaQ(dAlpha) * q with
// respect to dAlpha at dAlpha = 0, with quaternion rows ordered x,y,z,w. It is
// one half of the first three columns of the right-multiplication matrix of q.
func RotationLiftJacobian(q quat.Number) mgl64.Mat4x3 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	m := mgl64.Mat4x3{}
	m.Set(0, 0, 0.5*w)
	m.Set(0, 1, 0.5*z)
	m.Set(0, 2, -0.5*y)
	m.Set(1, 0, -0.5*z)
	m.Set(1, 1, 0.5*w)
	m.Set(1, 2, 0.5*x)
	m.Set(2, 0, 0.5*y)
	m.Set(2, 1, -0.5*x)
	m.Set(2, 2, 0.5*w)
	m.Set(3, 0, -0.5*x)
	m.Set(3, 1, -0.5*y)
	m.Set(3, 2, -0.5*z)
	return m
}

// RotateInverseJacobian returns the 3x4 derivative of C(q)^T * p with respect
// to the raw quaternion components, columns ordered x,y,z,w. C is the
// polynomial rotation matrix of QuatToRotationMat, so the derivative is exact
// for non-unit quaternions as well.
func RotateInverseJacobian(q quat.Number, p r3.Vector) mgl64.Mat3x4 {
	w := q.Real
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	vDotP := v.Dot(p)

	// C(q)^T p = (w^2 - v.v)p + 2(v.p)v - 2w (v x p)
	// d/dv = -2pv^T + 2(v.p)I + 2vp^T + 2w[p]x, d/dw = 2wp - 2(v x p)
	m := mgl64.Mat3x4{}
	pArr := [3]float64{p.X, p.Y, p.Z}
	vArr := [3]float64{v.X, v.Y, v.Z}
	pCross := CrossMx(p)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			el := -2*pArr[i]*vArr[j] + 2*vArr[i]*pArr[j] + 2*w*pCross.At(i, j)
			if i == j {
				el += 2 * vDotP
			}
			m.Set(i, j, el)
		}
	}
	vCrossP := v.Cross(p)
	m.Set(0, 3, 2*w*p.X-2*vCrossP.X)
	m.Set(1, 3, 2*w*p.Y-2*vCrossP.Y)
	m.Set(2, 3, 2*w*p.Z-2*vCrossP.Z)
	return m
}
