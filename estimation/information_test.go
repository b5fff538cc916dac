package estimation

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestInformationWeighting(t *testing.T) {
	information := mat.NewSymDense(2, []float64{4, 0.8, 0.8, 2.5})
	iw, err := NewInformationWeighting(information)
	test.That(t, err, test.ShouldBeNil)

	// covariance = information^-1
	var prod mat.Dense
	prod.Mul(iw.Information(), iw.Covariance())
	test.That(t, prod.At(0, 0), test.ShouldAlmostEqual, 1)
	test.That(t, prod.At(0, 1), test.ShouldAlmostEqual, 0)
	test.That(t, prod.At(1, 0), test.ShouldAlmostEqual, 0)
	test.That(t, prod.At(1, 1), test.ShouldAlmostEqual, 1)

	// sqrtInformation^T * sqrtInformation = information
	var sq mat.Dense
	sq.Mul(iw.SqrtInformation().T(), iw.SqrtInformation())
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			test.That(t, sq.At(i, j), test.ShouldAlmostEqual, information.At(i, j))
		}
	}

	// the stored information is a copy, detached from the caller's matrix
	information.SetSym(0, 0, 100)
	test.That(t, iw.Information().At(0, 0), test.ShouldAlmostEqual, 4)

	// both identities hold again after a reset
	err = iw.SetInformation(mat.NewSymDense(2, []float64{9, 0, 0, 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, iw.Covariance().At(0, 0), test.ShouldAlmostEqual, 1.0/9.0)
	test.That(t, iw.SqrtInformation().At(0, 0), test.ShouldAlmostEqual, 3)
	test.That(t, iw.SqrtInformation().At(1, 1), test.ShouldAlmostEqual, 1)
}

func TestInformationWeightingRejectsBadInput(t *testing.T) {
	_, err := NewInformationWeighting(nil)
	test.That(t, err, test.ShouldNotBeNil)

	// not positive definite
	_, err = NewInformationWeighting(mat.NewSymDense(2, []float64{1, 5, 5, 1}))
	test.That(t, err, test.ShouldNotBeNil)

	// a failed reset leaves the previous weighting in place
	iw, err := NewInformationWeighting(mat.NewSymDense(2, []float64{4, 0, 0, 4}))
	test.That(t, err, test.ShouldBeNil)
	err = iw.SetInformation(mat.NewSymDense(2, []float64{-1, 0, 0, -1}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, iw.Information().At(0, 0), test.ShouldAlmostEqual, 4)
}
