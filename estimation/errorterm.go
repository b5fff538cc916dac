// Package estimation implements the solver-facing measurement terms of a
// keyframe-based visual estimator: the error-term contract an external
// nonlinear least-squares optimizer consumes, the manifold parameterizations
// of the parameter blocks, the square-root information weighting, and the
// reprojection error itself.
package estimation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrorTerm is the cost-term contract the external optimizer evaluates. An
// implementation has a fixed residual dimension and fixed per-block ambient
// and tangent sizes, and must be safe for concurrent evaluation as long as no
// setter runs at the same time.
type ErrorTerm interface {
	// ResidualDim is the dimension of the residual vector.
	ResidualDim() int
	// ParameterBlockSizes are the ambient sizes of the parameter blocks.
	ParameterBlockSizes() []int
	// TangentBlockSizes are the minimal tangent-space sizes of the parameter blocks.
	TangentBlockSizes() []int
	// Evaluate computes the whitened residual and, where requested, the block
	// Jacobians. jacobians and jacobiansMinimal may each be nil as a whole or
	// nil per entry; a nil entry skips that block's computation entirely. A
	// provided destination may be empty (it is sized on the way in) or must
	// already have the block's exact shape. A non-nil error is reserved for
	// violated preconditions; geometric degeneracy never fails the call.
	Evaluate(parameters [][]float64, residuals []float64, jacobians, jacobiansMinimal []*mat.Dense) error
	// TypeInfo names the term for diagnostics.
	TypeInfo() string
}

// prepareJacobian sizes an empty destination to rows x cols, or checks that a
// non-empty one already has that exact shape.
func prepareJacobian(dst *mat.Dense, rows, cols int) error {
	if dst.IsEmpty() {
		dst.ReuseAs(rows, cols)
		return nil
	}
	r, c := dst.Dims()
	if r != rows || c != cols {
		return errors.Errorf("jacobian destination has shape %dx%d, want %dx%d", r, c, rows, cols)
	}
	return nil
}

// jacobianRequested reports whether any entry of a per-block Jacobian array asks for output.
func jacobianRequested(jacs []*mat.Dense) bool {
	for _, j := range jacs {
		if j != nil {
			return true
		}
	}
	return false
}
