package frame

import (
	"image"

	"github.com/pkg/errors"

	"github.com/lvslam/okvis/cameras"
)

// Frame is one camera image together with the camera model it was taken
// through and the keypoints, descriptors, and landmark associations the front
// end produced for it.
type Frame struct {
	image       image.Image
	camera      cameras.Model
	detector    Detector
	extractor   Extractor
	keypoints   []Keypoint
	descriptors []Descriptor
	landmarkIDs []uint64
}

// NewFrame wraps an image with its camera model.
func NewFrame(img image.Image, camera cameras.Model) *Frame {
	return &Frame{image: img, camera: camera}
}

// Image returns the underlying image.
func (f *Frame) Image() image.Image {
	return f.image
}

// Camera returns the camera model the image was taken through.
func (f *Frame) Camera() cameras.Model {
	return f.camera
}

// SetDetector sets the keypoint detector to run on this frame.
func (f *Frame) SetDetector(d Detector) {
	f.detector = d
}

// SetExtractor sets the descriptor extractor to run on this frame.
func (f *Frame) SetExtractor(e Extractor) {
	f.extractor = e
}

// Detect runs the detector and stores its keypoints, resetting any previous
// descriptors and landmark associations.
func (f *Frame) Detect() error {
	if f.detector == nil {
		return errors.New("no detector set")
	}
	keypoints, err := f.detector.Detect(f.image)
	if err != nil {
		return errors.Wrap(err, "detecting keypoints")
	}
	f.SetKeypoints(keypoints)
	return nil
}

// Describe runs the extractor over the stored keypoints.
func (f *Frame) Describe() error {
	if f.extractor == nil {
		return errors.New("no extractor set")
	}
	descriptors, err := f.extractor.Extract(f.image, f.keypoints)
	if err != nil {
		return errors.Wrap(err, "extracting descriptors")
	}
	if len(descriptors) != len(f.keypoints) {
		return errors.Errorf("got %d descriptors for %d keypoints", len(descriptors), len(f.keypoints))
	}
	f.descriptors = descriptors
	return nil
}

// SetKeypoints replaces the keypoints and resets descriptors and landmark
// associations to match.
func (f *Frame) SetKeypoints(keypoints []Keypoint) {
	f.keypoints = keypoints
	f.descriptors = make([]Descriptor, len(keypoints))
	f.landmarkIDs = make([]uint64, len(keypoints))
}

// NumKeypoints returns how many keypoints the frame holds.
func (f *Frame) NumKeypoints() int {
	return len(f.keypoints)
}

func (f *Frame) checkIndex(idx int) error {
	if idx < 0 || idx >= len(f.keypoints) {
		return errors.Errorf("keypoint index %d out of range, frame has %d keypoints", idx, len(f.keypoints))
	}
	return nil
}

// Keypoint returns the keypoint at an index.
func (f *Frame) Keypoint(idx int) (Keypoint, error) {
	if err := f.checkIndex(idx); err != nil {
		return Keypoint{}, err
	}
	return f.keypoints[idx], nil
}

// Descriptor returns the descriptor at an index.
func (f *Frame) Descriptor(idx int) (Descriptor, error) {
	if err := f.checkIndex(idx); err != nil {
		return nil, err
	}
	return f.descriptors[idx], nil
}

// SetLandmarkID associates the keypoint at an index with a landmark.
func (f *Frame) SetLandmarkID(idx int, landmarkID uint64) error {
	if err := f.checkIndex(idx); err != nil {
		return err
	}
	f.landmarkIDs[idx] = landmarkID
	return nil
}

// LandmarkID returns the landmark associated with the keypoint at an index;
// zero means unassociated.
func (f *Frame) LandmarkID(idx int) (uint64, error) {
	if err := f.checkIndex(idx); err != nil {
		return 0, err
	}
	return f.landmarkIDs[idx], nil
}
