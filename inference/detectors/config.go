package detectors

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/inference/providers"
	"github.com/nvr-ai/go-ppe/models"
)

// Config represents the configuration of the ONNX protective equipment
// detector.
type Config struct {
	// ModelPath is the path to a YOLOv8 ONNX export.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// LibraryPath is the onnxruntime shared library. Empty selects the
	// platform default.
	LibraryPath string `json:"library_path" yaml:"library_path"`

	// ClassSet names the label vocabulary the model was trained on.
	ClassSet models.ClassSetName `json:"class_set" yaml:"class_set"`

	// InputSize is the square model input resolution.
	InputSize int `json:"input_size" yaml:"input_size"`

	// Anchors is the number of candidate boxes the model emits.
	Anchors int `json:"anchors" yaml:"anchors"`

	// ConfidenceThreshold filters detections below this confidence level
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// NMSThreshold controls Non-Maximum Suppression IoU threshold
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`

	// MaxDetections caps the detections reported per frame.
	MaxDetections int `json:"max_detections" yaml:"max_detections"`

	// Backend execution provider configuration
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// DefaultConfig returns a configuration for a 640x640 YOLOv8 model trained
// on the 25 class PPE set.
//
// Returns:
//   - Config: Default configuration. ModelPath must still be set.
func DefaultConfig() Config {
	return Config{
		LibraryPath:         providers.GetSharedLibPath(),
		ClassSet:            models.ClassSetPPE,
		InputSize:           640,
		Anchors:             8400,
		ConfidenceThreshold: 0.45,
		NMSThreshold:        0.45,
		MaxDetections:       20,
		Provider:            providers.DefaultConfig(),
	}
}

// Validate checks the configuration. It does not check that files exist.
func (c Config) Validate() error {
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return errors.Errorf("input size %d must be a positive multiple of 32", c.InputSize)
	}
	if c.Anchors <= 0 {
		return errors.Errorf("invalid anchor count %d", c.Anchors)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold %v is outside [0, 1]", c.ConfidenceThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return errors.Errorf("NMS threshold %v is outside [0, 1]", c.NMSThreshold)
	}
	if c.MaxDetections < 0 {
		return errors.Errorf("invalid max detections %d", c.MaxDetections)
	}
	if _, err := models.DefaultClassManager().Set(c.ClassSet); err != nil {
		return err
	}
	return c.Provider.Validate()
}
