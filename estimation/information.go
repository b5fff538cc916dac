package estimation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// InformationWeighting derives the square-root information matrix from a
// measurement's information (inverse covariance) matrix and retains all three.
// Everything is computed once in SetInformation; evaluation paths only read
// the stored constants, so a solve never factorizes anything.
type InformationWeighting struct {
	information     *mat.SymDense
	covariance      *mat.SymDense
	sqrtInformation *mat.TriDense
}

// NewInformationWeighting creates a weighting from a symmetric positive-definite
// information matrix.
func NewInformationWeighting(information *mat.SymDense) (*InformationWeighting, error) {
	iw := &InformationWeighting{}
	if err := iw.SetInformation(information); err != nil {
		return nil, err
	}
	return iw, nil
}

// SetInformation stores the information matrix and recomputes the covariance
// and the upper-triangular square root U with U^T * U = information. A
// non-positive-definite input is a caller bug and fails outright.
func (iw *InformationWeighting) SetInformation(information *mat.SymDense) error {
	if information == nil {
		return errors.New("information matrix is nil")
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(information); !ok {
		return errors.New("information matrix is not positive definite")
	}

	n := information.SymmetricDim()
	covariance := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(covariance); err != nil {
		return errors.Wrap(err, "inverting information matrix")
	}
	sqrtInformation := mat.NewTriDense(n, mat.Upper, nil)
	chol.UTo(sqrtInformation)

	stored := mat.NewSymDense(n, nil)
	stored.CopySym(information)
	iw.information = stored
	iw.covariance = covariance
	iw.sqrtInformation = sqrtInformation
	return nil
}

// Information returns the stored information matrix.
func (iw *InformationWeighting) Information() *mat.SymDense {
	return iw.information
}

// Covariance returns the inverse of the information matrix.
func (iw *InformationWeighting) Covariance() *mat.SymDense {
	return iw.covariance
}

// SqrtInformation returns the upper-triangular U with U^T * U = information.
func (iw *InformationWeighting) SqrtInformation() *mat.TriDense {
	return iw.sqrtInformation
}
