package postprocess

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-ppe/images"
)

// DecodeConfig describes the raw output of a YOLOv8 style detection head.
type DecodeConfig struct {
	// NumClasses is the number of class scores per anchor.
	NumClasses int
	// ConfidenceThreshold drops anchors whose best class score is lower.
	ConfidenceThreshold float32
	// InputSize is the model input resolution the boxes are expressed in.
	InputSize image.Point
	// FrameSize is the resolution of the original frame. Boxes are scaled
	// from InputSize to FrameSize.
	FrameSize image.Point
}

// DecodeYOLOv8 converts the [1, 4+classes, anchors] output of a YOLOv8 head
// into detections.
//
// The output is laid out attribute-major: all center x values, then all
// center y values, widths, heights and finally one row of scores per class.
// It is transposed to one row per anchor before decoding.
//
// Arguments:
//   - output: The raw output tensor data. It is not modified.
//   - cfg: Decoding parameters.
//
// Returns:
//   - []Result: One result per anchor that passed the threshold, in anchor
//     order. Run ApplyGreedyNMS on it to remove duplicates.
//   - error: If the output size does not match the class count.
func DecodeYOLOv8(output []float32, cfg DecodeConfig) ([]Result, error) {
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", cfg.NumClasses)
	}
	if cfg.InputSize.X <= 0 || cfg.InputSize.Y <= 0 {
		return nil, errors.Errorf("invalid input size %v", cfg.InputSize)
	}
	attrs := 4 + cfg.NumClasses
	if len(output) == 0 || len(output)%attrs != 0 {
		return nil, errors.Errorf("output of %d values does not divide into %d attributes per anchor", len(output), attrs)
	}
	anchors := len(output) / attrs

	backing := make([]float32, len(output))
	copy(backing, output)
	t := tensor.New(tensor.WithShape(attrs, anchors), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose output")
	}
	rows, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.New("unexpected output tensor type")
	}

	sx := float32(cfg.FrameSize.X) / float32(cfg.InputSize.X)
	sy := float32(cfg.FrameSize.Y) / float32(cfg.InputSize.Y)

	var results []Result
	for a := 0; a < anchors; a++ {
		row := rows[a*attrs : (a+1)*attrs]

		class, score := 0, row[4]
		for c := 1; c < cfg.NumClasses; c++ {
			if row[4+c] > score {
				class, score = c, row[4+c]
			}
		}
		if score < cfg.ConfidenceThreshold {
			continue
		}

		xc, yc, w, h := row[0], row[1], row[2], row[3]
		box := images.Rect{X1: xc - w/2, Y1: yc - h/2, X2: xc + w/2, Y2: yc + h/2}
		results = append(results, Result{
			Box:   box.Scale(sx, sy),
			Score: score,
			Class: class,
		})
	}
	return results, nil
}
