package estimation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/lvslam/okvis/cameras"
	"github.com/lvslam/okvis/spatialmath"
)

// ReprojectionResidualDim is the dimension of a reprojection residual.
const ReprojectionResidualDim = 2

// Parameter block order of a reprojection error: the observing keyframe pose
// T_WS, the homogeneous world landmark hp_W, the camera extrinsics T_SC.
const (
	blockPose = iota
	blockLandmark
	blockExtrinsics
	numBlocks
)

var (
	reprojectionBlockSizes   = []int{7, 4, 7}
	reprojectionTangentSizes = []int{6, 3, 6}
)

// ReprojectionError is the 2D keypoint reprojection error: the whitened
// difference between an observed pixel and the projection of a homogeneous
// world landmark through the keyframe pose and the camera extrinsics.
//
// The term itself is stateless across evaluations; its only state is the
// configuration set between solves (measurement, weighting, camera binding).
// Evaluate is safe to call concurrently, also on the same instance, as long
// as no setter runs at the same time: setters follow a single-writer,
// many-readers discipline that the owner serializes around solver rounds.
type ReprojectionError struct {
	camera      cameras.Model
	cameraID    int
	measurement r2.Point
	weighting   InformationWeighting
}

// NewReprojectionError binds a residual term to one observing camera and one
// measured keypoint, weighted by the measurement's information matrix.
func NewReprojectionError(camera cameras.Model, cameraID int, measurement r2.Point, information *mat.SymDense) (*ReprojectionError, error) {
	if camera == nil {
		return nil, errors.New("camera model is nil")
	}
	e := &ReprojectionError{camera: camera, cameraID: cameraID, measurement: measurement}
	if err := e.weighting.SetInformation(information); err != nil {
		return nil, err
	}
	return e, nil
}

// SetMeasurement replaces the measured pixel.
func (e *ReprojectionError) SetMeasurement(measurement r2.Point) {
	e.measurement = measurement
}

// SetInformation replaces the information matrix and rederives the covariance
// and square-root information.
func (e *ReprojectionError) SetInformation(information *mat.SymDense) error {
	return e.weighting.SetInformation(information)
}

// SetCameraModel replaces the camera model. Only valid between solves.
func (e *ReprojectionError) SetCameraModel(camera cameras.Model) error {
	if camera == nil {
		return errors.New("camera model is nil")
	}
	e.camera = camera
	return nil
}

// SetCameraID replaces the observing camera identifier.
func (e *ReprojectionError) SetCameraID(cameraID int) {
	e.cameraID = cameraID
}

// Measurement returns the measured pixel.
func (e *ReprojectionError) Measurement() r2.Point {
	return e.measurement
}

// CameraID returns the observing camera identifier.
func (e *ReprojectionError) CameraID() int {
	return e.cameraID
}

// CameraModel returns the bound camera model.
func (e *ReprojectionError) CameraModel() cameras.Model {
	return e.camera
}

// Information returns the information matrix.
func (e *ReprojectionError) Information() *mat.SymDense {
	return e.weighting.Information()
}

// Covariance returns the measurement covariance.
func (e *ReprojectionError) Covariance() *mat.SymDense {
	return e.weighting.Covariance()
}

// ResidualDim implements ErrorTerm.
func (e *ReprojectionError) ResidualDim() int {
	return ReprojectionResidualDim
}

// ParameterBlockSizes implements ErrorTerm.
func (e *ReprojectionError) ParameterBlockSizes() []int {
	sizes := make([]int, numBlocks)
	copy(sizes, reprojectionBlockSizes)
	return sizes
}

// TangentBlockSizes implements ErrorTerm.
func (e *ReprojectionError) TangentBlockSizes() []int {
	sizes := make([]int, numBlocks)
	copy(sizes, reprojectionTangentSizes)
	return sizes
}

// TypeInfo implements ErrorTerm.
func (e *ReprojectionError) TypeInfo() string {
	return "ReprojectionError"
}

// Evaluate implements ErrorTerm. The landmark is taken to the camera frame
// through T_CS * T_SW, projected, and the pixel error is whitened by the
// square-root information. A geometrically degenerate projection (behind the
// camera, outside the valid range) still produces a finite residual from
// whatever pixel the model returned; persistently degenerate observations are
// the optimizer's and front end's to cull across iterations, not this term's.
// Every intermediate is local to the call, so nothing is written to the
// instance during evaluation.
func (e *ReprojectionError) Evaluate(parameters [][]float64, residuals []float64, jacobians, jacobiansMinimal []*mat.Dense) error {
	if err := e.checkShapes(parameters, residuals, jacobians, jacobiansMinimal); err != nil {
		return err
	}

	poseParams := parameters[blockPose]
	landmarkParams := parameters[blockLandmark]
	extrinsicsParams := parameters[blockExtrinsics]

	// The transforms are unpacked from the raw buffers without constructing
	// Transformation values: the derivatives below are exact in the raw
	// quaternion components, and nothing on this path may renormalize.
	tWS := r3.Vector{X: poseParams[0], Y: poseParams[1], Z: poseParams[2]}
	qWS := spatialmath.QuatFromBuffer(poseParams[3:])
	tSC := r3.Vector{X: extrinsicsParams[0], Y: extrinsicsParams[1], Z: extrinsicsParams[2]}
	qSC := spatialmath.QuatFromBuffer(extrinsicsParams[3:])
	weight := landmarkParams[3]

	cSW := spatialmath.QuatToRotationMat(qWS).Transpose()
	cCS := spatialmath.QuatToRotationMat(qSC).Transpose()

	// hp_S = T_SW * hp_W, hp_C = T_CS * hp_S; the homogeneous weight rides
	// along unchanged, points at infinity included.
	a := r3.Vector{
		X: landmarkParams[0] - weight*tWS.X,
		Y: landmarkParams[1] - weight*tWS.Y,
		Z: landmarkParams[2] - weight*tWS.Z,
	}
	pS := cSW.Mul3x1(mgl64.Vec3{a.X, a.Y, a.Z})
	b := r3.Vector{X: pS[0] - weight*tSC.X, Y: pS[1] - weight*tSC.Y, Z: pS[2] - weight*tSC.Z}
	pC := cCS.Mul3x1(mgl64.Vec3{b.X, b.Y, b.Z})
	hpC := mgl64.Vec4{pC[0], pC[1], pC[2], weight}

	needFull := jacobians != nil && jacobianRequested(jacobians)
	needMinimal := jacobiansMinimal != nil && jacobianRequested(jacobiansMinimal)
	if !needFull && !needMinimal {
		pixel, _ := e.camera.ProjectHomogeneous(hpC)
		e.whiten(pixel, residuals)
		return nil
	}

	pixel, projJac, _ := e.camera.ProjectHomogeneousWithJacobian(hpC)
	e.whiten(pixel, residuals)

	// weightedJac = -sqrtInformation * d(pixel)/d(p_C); the sign comes from
	// the residual being measurement - projection
	u := e.weighting.SqrtInformation()
	weightedJac := mat.NewDense(ReprojectionResidualDim, 3, nil)
	for i := 0; i < ReprojectionResidualDim; i++ {
		for j := 0; j < 3; j++ {
			weightedJac.Set(i, j, -(u.At(i, 0)*projJac.At(0, j) + u.At(i, 1)*projJac.At(1, j)))
		}
	}

	cCW := cCS.Mul3(cSW)

	if jacobianWanted(jacobians, jacobiansMinimal, blockPose) {
		// d(p_C)/d(t_WS) = -w * C_CW; d(p_C)/d(q_WS) = C_CS * d(C(q_WS)^T a)/d(q_WS)
		pointJac := mat.NewDense(3, reprojectionBlockSizes[blockPose], nil)
		setScaledMat3(pointJac, 0, cCW, -weight)
		rotJac := mulMat3By3x4(cCS, spatialmath.RotateInverseJacobian(qWS, a))
		setMat3x4(pointJac, 3, rotJac)
		if err := e.writeBlockJacobians(weightedJac, pointJac, PoseParameterization{}, poseParams,
			jacobians, jacobiansMinimal, blockPose); err != nil {
			return err
		}
	}

	if jacobianWanted(jacobians, jacobiansMinimal, blockLandmark) {
		// d(p_C)/d(p_W) = C_CW; d(p_C)/d(w) = -(C_CW t_WS + C_CS t_SC); the
		// projection itself never reads the weight, so that is the whole column
		pointJac := mat.NewDense(3, reprojectionBlockSizes[blockLandmark], nil)
		setScaledMat3(pointJac, 0, cCW, 1)
		dW := cCW.Mul3x1(mgl64.Vec3{tWS.X, tWS.Y, tWS.Z}).Add(cCS.Mul3x1(mgl64.Vec3{tSC.X, tSC.Y, tSC.Z}))
		for i := 0; i < 3; i++ {
			pointJac.Set(i, 3, -dW[i])
		}
		if err := e.writeBlockJacobians(weightedJac, pointJac, HomogeneousPointParameterization{}, landmarkParams,
			jacobians, jacobiansMinimal, blockLandmark); err != nil {
			return err
		}
	}

	if jacobianWanted(jacobians, jacobiansMinimal, blockExtrinsics) {
		// d(p_C)/d(t_SC) = -w * C_CS; d(p_C)/d(q_SC) = d(C(q_SC)^T b)/d(q_SC)
		pointJac := mat.NewDense(3, reprojectionBlockSizes[blockExtrinsics], nil)
		setScaledMat3(pointJac, 0, cCS, -weight)
		setMat3x4(pointJac, 3, spatialmath.RotateInverseJacobian(qSC, b))
		if err := e.writeBlockJacobians(weightedJac, pointJac, PoseParameterization{}, extrinsicsParams,
			jacobians, jacobiansMinimal, blockExtrinsics); err != nil {
			return err
		}
	}

	return nil
}

// whiten writes sqrtInformation * (measurement - pixel) into residuals.
func (e *ReprojectionError) whiten(pixel r2.Point, residuals []float64) {
	u := e.weighting.SqrtInformation()
	errX := e.measurement.X - pixel.X
	errY := e.measurement.Y - pixel.Y
	residuals[0] = u.At(0, 0)*errX + u.At(0, 1)*errY
	residuals[1] = u.At(1, 0)*errX + u.At(1, 1)*errY
}

// writeBlockJacobians chains the weighted projection Jacobian with one block's
// camera-point Jacobian and writes the full and, if requested, the minimal
// form, minimal = full * lift.
func (e *ReprojectionError) writeBlockJacobians(
	weightedJac, pointJac *mat.Dense,
	param Parameterization, blockParams []float64,
	jacobians, jacobiansMinimal []*mat.Dense, block int,
) error {
	full := mat.NewDense(ReprojectionResidualDim, reprojectionBlockSizes[block], nil)
	full.Mul(weightedJac, pointJac)

	if jacobians != nil && jacobians[block] != nil {
		if err := prepareJacobian(jacobians[block], ReprojectionResidualDim, reprojectionBlockSizes[block]); err != nil {
			return err
		}
		jacobians[block].Copy(full)
	}

	if jacobiansMinimal != nil && jacobiansMinimal[block] != nil {
		if err := prepareJacobian(jacobiansMinimal[block], ReprojectionResidualDim, reprojectionTangentSizes[block]); err != nil {
			return err
		}
		lift := mat.NewDense(param.AmbientSize(), param.TangentSize(), nil)
		if err := param.LiftJacobian(blockParams, lift); err != nil {
			return err
		}
		jacobiansMinimal[block].Mul(full, lift)
	}
	return nil
}

// checkShapes fails fast on violated preconditions of the callback contract.
func (e *ReprojectionError) checkShapes(parameters [][]float64, residuals []float64, jacobians, jacobiansMinimal []*mat.Dense) error {
	if len(parameters) != numBlocks {
		return errors.Errorf("expected %d parameter blocks, got %d", numBlocks, len(parameters))
	}
	for i, block := range parameters {
		if len(block) != reprojectionBlockSizes[i] {
			return errors.Errorf("parameter block %d has size %d, want %d", i, len(block), reprojectionBlockSizes[i])
		}
	}
	if len(residuals) != ReprojectionResidualDim {
		return errors.Errorf("residual vector has size %d, want %d", len(residuals), ReprojectionResidualDim)
	}
	if jacobians != nil && len(jacobians) != numBlocks {
		return errors.Errorf("jacobians array has %d entries, want %d", len(jacobians), numBlocks)
	}
	if jacobiansMinimal != nil && len(jacobiansMinimal) != numBlocks {
		return errors.Errorf("minimal jacobians array has %d entries, want %d", len(jacobiansMinimal), numBlocks)
	}
	return nil
}

func jacobianWanted(jacobians, jacobiansMinimal []*mat.Dense, block int) bool {
	return (jacobians != nil && jacobians[block] != nil) ||
		(jacobiansMinimal != nil && jacobiansMinimal[block] != nil)
}

// setScaledMat3 writes scale*m into dst starting at column colOffset.
func setScaledMat3(dst *mat.Dense, colOffset int, m mgl64.Mat3, scale float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, colOffset+j, scale*m.At(i, j))
		}
	}
}

// setMat3x4 writes m into dst starting at column colOffset.
func setMat3x4(dst *mat.Dense, colOffset int, m mgl64.Mat3x4) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			dst.Set(i, colOffset+j, m.At(i, j))
		}
	}
}

// mulMat3By3x4 returns a * b for a 3x3 and a 3x4 matrix.
func mulMat3By3x4(a mgl64.Mat3, b mgl64.Mat3x4) mgl64.Mat3x4 {
	out := mgl64.Mat3x4{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}
