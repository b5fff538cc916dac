// Package cameras implements camera projection models and the distortion
// families they are built from, together with the multi-camera rig that binds
// each model to its mounting extrinsics.
package cameras

// ProjectionStatus reports the geometric outcome of projecting a point. It is
// not an error: callers always receive a finite pixel and Jacobian and decide
// themselves what to do with a degenerate projection.
type ProjectionStatus int

const (
	// ProjectionSuccess means the point projects inside the valid image region.
	ProjectionSuccess ProjectionStatus = iota
	// ProjectionBehindCamera means the camera-frame depth of the point is non-positive.
	ProjectionBehindCamera
	// ProjectionOutsideValidRange means the distortion model or the image bounds reject the point.
	ProjectionOutsideValidRange
)

func (s ProjectionStatus) String() string {
	switch s {
	case ProjectionSuccess:
		return "success"
	case ProjectionBehindCamera:
		return "behind camera"
	case ProjectionOutsideValidRange:
		return "outside valid range"
	default:
		return "unknown"
	}
}
