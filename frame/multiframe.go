package frame

import (
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/lvslam/okvis/cameras"
)

// MultiFrame groups the simultaneous frames of every camera of a rig under
// one id and timestamp. Frames are addressed by their rig camera index.
type MultiFrame struct {
	id        uint64
	timestamp time.Time
	frames    []*Frame
}

// NewMultiFrame creates a frame per rig camera from the matching images.
func NewMultiFrame(id uint64, timestamp time.Time, rig *cameras.Rig, images []image.Image) (*MultiFrame, error) {
	if len(images) != rig.NumCameras() {
		return nil, errors.Errorf("got %d images for a rig of %d cameras", len(images), rig.NumCameras())
	}
	frames := make([]*Frame, rig.NumCameras())
	for i := range frames {
		cam, err := rig.Camera(i)
		if err != nil {
			return nil, err
		}
		frames[i] = NewFrame(images[i], cam.Model)
	}
	return &MultiFrame{id: id, timestamp: timestamp, frames: frames}, nil
}

// ID returns the multi-frame id.
func (mf *MultiFrame) ID() uint64 {
	return mf.id
}

// Timestamp returns the capture time.
func (mf *MultiFrame) Timestamp() time.Time {
	return mf.timestamp
}

// NumFrames returns how many camera frames the multi-frame holds.
func (mf *MultiFrame) NumFrames() int {
	return len(mf.frames)
}

// Frame returns the frame of the camera at an index.
func (mf *MultiFrame) Frame(cameraIdx int) (*Frame, error) {
	if cameraIdx < 0 || cameraIdx >= len(mf.frames) {
		return nil, errors.Errorf("camera index %d out of range, multiframe has %d frames", cameraIdx, len(mf.frames))
	}
	return mf.frames[cameraIdx], nil
}
