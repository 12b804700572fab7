// Package detectors - ONNX model inference.
package detectors

import (
	"context"
	"image"
	"math"
	"os"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/images"
	"github.com/nvr-ai/go-ppe/inference"
	"github.com/nvr-ai/go-ppe/inference/providers"
	"github.com/nvr-ai/go-ppe/models"
	"github.com/nvr-ai/go-ppe/models/postprocess"
)

// ONNXDetector runs a YOLOv8 protective equipment model through the
// onnxruntime. A detector owns one session, so calls to Detect are
// serialized.
type ONNXDetector struct {
	log     logs.Log
	config  Config
	classes *models.OutputClassSet
	session *inference.Session
	mu      sync.Mutex
}

// NewONNXDetector loads the model described by config.
//
// A missing model or runtime library is reported as an error wrapping
// compliance.ErrDetectorUnavailable, so that callers can fall back instead
// of failing.
//
// Arguments:
//   - config: The configuration for the ONNX detector.
//   - log: Logger.
//
// Returns:
//   - *ONNXDetector: The loaded detector.
//   - error: An error if the detector could not be created.
func NewONNXDetector(config Config, log logs.Log) (*ONNXDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid detector config")
	}
	classes, err := models.DefaultClassManager().Set(config.ClassSet)
	if err != nil {
		return nil, err
	}

	if config.ModelPath == "" {
		return nil, errors.Wrap(compliance.ErrDetectorUnavailable, "no model configured")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, errors.Wrapf(compliance.ErrDetectorUnavailable, "model not found at %s: %v", config.ModelPath, err)
	}

	libPath := config.LibraryPath
	if libPath == "" {
		libPath = providers.GetSharedLibPath()
	}
	if err := inference.InitEnvironment(libPath); err != nil {
		return nil, errors.Wrapf(compliance.ErrDetectorUnavailable, "%v", err)
	}

	session, err := inference.NewSession(inference.SessionConfig{
		ModelPath:        config.ModelPath,
		InputSize:        config.InputSize,
		OutputAttributes: 4 + classes.Len(),
		Anchors:          config.Anchors,
		Provider:         config.Provider,
	})
	if err != nil {
		return nil, errors.Wrapf(compliance.ErrDetectorUnavailable, "%v", err)
	}

	log.Infof("Loaded PPE model %v (%v, %d classes, %dx%d, provider %v)",
		config.ModelPath, config.ClassSet, classes.Len(), config.InputSize, config.InputSize, config.Provider.Provider)

	return &ONNXDetector{
		log:     log,
		config:  config,
		classes: classes,
		session: session,
	}, nil
}

// Detect runs inference on the input image.
//
// Arguments:
//   - ctx: Checked before inference starts. A running inference is not
//     interrupted.
//   - img: The image to detect objects in.
//
// Returns:
//   - []compliance.Detection: The detected objects, in frame coordinates.
//   - error: An error if the detection fails.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]compliance.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.Wrap(compliance.ErrDetectorUnavailable, "detector is closed")
	}

	if err := inference.PrepareInput(img, d.config.InputSize, d.session.Input.GetData()); err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}

	if err := d.session.Run(); err != nil {
		return nil, errors.Wrapf(compliance.ErrDetectorUnavailable, "failed to run inference: %v", err)
	}

	bounds := img.Bounds()
	results, err := postprocess.DecodeYOLOv8(d.session.Output.GetData(), postprocess.DecodeConfig{
		NumClasses:          d.classes.Len(),
		ConfidenceThreshold: d.config.ConfidenceThreshold,
		InputSize:           image.Point{X: d.config.InputSize, Y: d.config.InputSize},
		FrameSize:           bounds.Size(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode output")
	}

	results = postprocess.ApplyGreedyNMS(results, postprocess.NMSConfig{
		IoUThreshold:  d.config.NMSThreshold,
		ClassAware:    true,
		MaxDetections: d.config.MaxDetections,
	})

	dets := toDetections(results, d.classes, bounds)
	d.log.Debugf("Detected %d objects in %dx%d frame", len(dets), bounds.Dx(), bounds.Dy())
	return dets, nil
}

// Close releases resources
func (d *ONNXDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Close()
		d.session = nil
		d.log.Infof("ONNX detector closed")
	}
}

// toDetections labels decoded results and moves them into frame
// coordinates, clipped to the frame.
func toDetections(results []postprocess.Result, classes *models.OutputClassSet, frame image.Rectangle) []compliance.Detection {
	clip := images.FromRectangle(frame)
	dets := make([]compliance.Detection, 0, len(results))
	for _, r := range results {
		label, err := classes.Label(r.Class)
		if err != nil {
			continue
		}
		box := images.Rect{
			X1: r.Box.X1 + clip.X1,
			Y1: r.Box.Y1 + clip.Y1,
			X2: r.Box.X2 + clip.X1,
			Y2: r.Box.Y2 + clip.Y1,
		}.Intersect(clip)
		// Scores are float32; rounding keeps 0.9 from reporting as 89%.
		confidence := math.Round(float64(r.Score)*1e4) / 1e4
		dets = append(dets, compliance.Detection{
			Class:      models.Canonical(label),
			Confidence: confidence,
			Box:        box,
		})
	}
	return dets
}
