package cameras

import (
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/lvslam/okvis/spatialmath"
)

// RigCamera is one camera of a rig: the projection model plus the transform
// from the camera frame to the body (sensor) frame, T_SC.
type RigCamera struct {
	Extrinsics *spatialmath.Transformation
	Model      Model
}

// Rig is an ordered collection of cameras rigidly mounted on one body. Camera
// identifiers are indices into the rig. A rig is immutable once built and is
// shared read-only by every residual observing one of its cameras.
type Rig struct {
	cameras []RigCamera
}

// NewRig creates an empty rig.
func NewRig() *Rig {
	return &Rig{}
}

// AddCamera appends a camera with its mounting extrinsics.
func (rig *Rig) AddCamera(extrinsics *spatialmath.Transformation, model Model) {
	rig.cameras = append(rig.cameras, RigCamera{Extrinsics: extrinsics, Model: model})
}

// NumCameras returns the number of cameras in the rig.
func (rig *Rig) NumCameras() int {
	return len(rig.cameras)
}

// Camera returns the camera at the given index.
func (rig *Rig) Camera(idx int) (*RigCamera, error) {
	if idx < 0 || idx >= len(rig.cameras) {
		return nil, errors.Errorf("camera index %d out of range, rig has %d cameras", idx, len(rig.cameras))
	}
	return &rig.cameras[idx], nil
}

// CheckValid checks every camera of the rig and combines the failures.
func (rig *Rig) CheckValid() error {
	if rig == nil || len(rig.cameras) == 0 {
		return errors.New("rig has no cameras")
	}
	var err error
	for i, cam := range rig.cameras {
		if cam.Extrinsics == nil {
			err = multierr.Append(err, errors.Errorf("camera %d: extrinsics not set", i))
		}
		if cam.Model == nil {
			err = multierr.Append(err, errors.Errorf("camera %d: projection model not set", i))
		}
	}
	return err
}

// rigCameraConfig is the JSON shape of one camera of a rig.
type rigCameraConfig struct {
	Intrinsics           PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	DistortionModel      DistortionType          `json:"distortion_model"`
	DistortionParameters []float64               `json:"distortion_parameters"`
	// Extrinsics is T_SC flattened as [tx ty tz qx qy qz qw].
	Extrinsics []float64 `json:"extrinsics"`
}

type rigConfig struct {
	Cameras []rigCameraConfig `json:"cameras"`
}

// NewRigFromJSONFile takes in a file path to a JSON and turns it into a Rig.
func NewRigFromJSONFile(jsonPath string, logger golog.Logger) (*Rig, error) {
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
	cfg := &rigConfig{}
	if err := json.Unmarshal(byteValue, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}

	rig := NewRig()
	for i, camCfg := range cfg.Cameras {
		distortion, err := NewDistortion(camCfg.DistortionModel, camCfg.DistortionParameters)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		model, err := NewPinholeCamera(camCfg.Intrinsics, distortion)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		extrinsics, err := spatialmath.NewTransformationFromParameters(camCfg.Extrinsics)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d extrinsics", i)
		}
		rig.AddCamera(extrinsics, model)
		logger.Debugw("added camera to rig",
			"index", i,
			"distortion", distortion.ModelType(),
			"width", camCfg.Intrinsics.Width,
			"height", camCfg.Intrinsics.Height,
		)
	}
	if err := rig.CheckValid(); err != nil {
		return nil, err
	}
	return rig, nil
}
