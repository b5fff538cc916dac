package cameras

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// Depths below this magnitude degenerate the perspective divide; projection
// then reports ProjectionBehindCamera with zeroed pixel and Jacobian.
const depthEpsilon = 1e-12

// Model is the projection contract one camera implements: 3D point in the
// camera frame in, 2D pixel plus exact Jacobian out. Implementations are
// immutable after construction and safe for concurrent use.
type Model interface {
	Project(p r3.Vector) (r2.Point, ProjectionStatus)
	ProjectWithJacobian(p r3.Vector) (r2.Point, mgl64.Mat2x3, ProjectionStatus)
	ProjectHomogeneous(hp mgl64.Vec4) (r2.Point, ProjectionStatus)
	ProjectHomogeneousWithJacobian(hp mgl64.Vec4) (r2.Point, mgl64.Mat2x4, ProjectionStatus)
	BackProject(pt r2.Point) (r3.Vector, bool)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, nil
}

// PinholeCamera projects camera-frame points through a perspective divide, a
// distortion model on the normalized coordinates, and the focal/principal
// scaling to pixels.
type PinholeCamera struct {
	PinholeCameraIntrinsics
	distortion Distortion
}

// NewPinholeCamera validates the intrinsics and distortion and binds them into a camera model.
func NewPinholeCamera(intrinsics PinholeCameraIntrinsics, distortion Distortion) (*PinholeCamera, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if distortion == nil {
		distortion = &NoDistortion{}
	}
	if err := distortion.CheckValid(); err != nil {
		return nil, err
	}
	return &PinholeCamera{PinholeCameraIntrinsics: intrinsics, distortion: distortion}, nil
}

// NewTestPinholeCamera returns a camera with well-known test intrinsics on a
// 752x480 sensor, for use in unit tests.
func NewTestPinholeCamera(distortion Distortion) *PinholeCamera {
	cam, err := NewPinholeCamera(PinholeCameraIntrinsics{
		Width:  752,
		Height: 480,
		Fx:     615.14,
		Fy:     613.03,
		Ppx:    378.27,
		Ppy:    220.05,
	}, distortion)
	if err != nil {
		panic(err)
	}
	return cam
}

// Distortion returns the distortion model bound to this camera.
func (cam *PinholeCamera) Distortion() Distortion {
	return cam.distortion
}

// inImage reports whether a pixel center lands inside the sensor area.
func (cam *PinholeCamera) inImage(pt r2.Point) bool {
	return pt.X >= -0.5 && pt.X <= float64(cam.Width)-0.5 &&
		pt.Y >= -0.5 && pt.Y <= float64(cam.Height)-0.5
}

// Project maps a camera-frame point to a pixel. On a non-success status the
// pixel is still finite: degenerate depths produce a zero pixel, a point
// merely behind the camera or outside the image produces the algebraic
// projection unchanged.
func (cam *PinholeCamera) Project(p r3.Vector) (r2.Point, ProjectionStatus) {
	if math.Abs(p.Z) < depthEpsilon {
		return r2.Point{}, ProjectionBehindCamera
	}
	x := p.X / p.Z
	y := p.Y / p.Z
	xd, yd := cam.distortion.Distort(x, y)
	pixel := r2.Point{X: cam.Fx*xd + cam.Ppx, Y: cam.Fy*yd + cam.Ppy}
	return pixel, cam.status(p.Z, pixel)
}

// ProjectWithJacobian additionally returns the exact 2x3 derivative of the
// pixel with respect to the camera-frame point.
func (cam *PinholeCamera) ProjectWithJacobian(p r3.Vector) (r2.Point, mgl64.Mat2x3, ProjectionStatus) {
	if math.Abs(p.Z) < depthEpsilon {
		return r2.Point{}, mgl64.Mat2x3{}, ProjectionBehindCamera
	}
	invZ := 1.0 / p.Z
	x := p.X * invZ
	y := p.Y * invZ
	xd, yd, distJac := cam.distortion.DistortWithJacobian(x, y)
	pixel := r2.Point{X: cam.Fx*xd + cam.Ppx, Y: cam.Fy*yd + cam.Ppy}

	// chain rule: diag(fx, fy) * distortion Jacobian * d(x, y)/d(p)
	jac := mgl64.Mat2x3{}
	for col := 0; col < 2; col++ {
		du := cam.Fx * distJac.At(0, col)
		dv := cam.Fy * distJac.At(1, col)
		jac.Set(0, col, du*invZ)
		jac.Set(1, col, dv*invZ)
		// third column collects the -x/z, -y/z terms of the perspective divide
		var norm float64
		if col == 0 {
			norm = x
		} else {
			norm = y
		}
		jac.Set(0, 2, jac.At(0, 2)-du*norm*invZ)
		jac.Set(1, 2, jac.At(1, 2)-dv*norm*invZ)
	}
	return pixel, jac, cam.status(p.Z, pixel)
}

// ProjectHomogeneous projects a homogeneous camera-frame point. The head is
// projected unnormalized; projection is scale invariant, so a negative weight
// only flips the head's sign, and a weight of zero is a valid direction.
func (cam *PinholeCamera) ProjectHomogeneous(hp mgl64.Vec4) (r2.Point, ProjectionStatus) {
	head := r3.Vector{X: hp[0], Y: hp[1], Z: hp[2]}
	if hp[3] < 0 {
		head = head.Mul(-1)
	}
	return cam.Project(head)
}

// ProjectHomogeneousWithJacobian additionally returns the exact 2x4 derivative
// of the pixel with respect to the homogeneous point. The weight column is
// identically zero and the sign flip of a negative weight is folded into the
// head columns, so the matrix is the true derivative on either branch.
func (cam *PinholeCamera) ProjectHomogeneousWithJacobian(hp mgl64.Vec4) (r2.Point, mgl64.Mat2x4, ProjectionStatus) {
	head := r3.Vector{X: hp[0], Y: hp[1], Z: hp[2]}
	sign := 1.0
	if hp[3] < 0 {
		head = head.Mul(-1)
		sign = -1.0
	}
	pixel, headJac, status := cam.ProjectWithJacobian(head)
	jac := mgl64.Mat2x4{}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			jac.Set(i, j, sign*headJac.At(i, j))
		}
	}
	return pixel, jac, status
}

// BackProject maps a pixel back to the unit-depth ray through it. The flag
// reports whether undistortion converged.
func (cam *PinholeCamera) BackProject(pt r2.Point) (r3.Vector, bool) {
	x := (pt.X - cam.Ppx) / cam.Fx
	y := (pt.Y - cam.Ppy) / cam.Fy
	xu, yu, ok := cam.distortion.Undistort(x, y)
	return r3.Vector{X: xu, Y: yu, Z: 1}, ok
}

func (cam *PinholeCamera) status(z float64, pixel r2.Point) ProjectionStatus {
	if z <= 0 {
		return ProjectionBehindCamera
	}
	if !cam.inImage(pixel) {
		return ProjectionOutsideValidRange
	}
	return ProjectionSuccess
}
