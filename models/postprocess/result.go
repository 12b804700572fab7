// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-ppe/images"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result, in frame pixels.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

func (r Result) String() string {
	return fmt.Sprintf("class %d (%.2f) %v", r.Class, r.Score, r.Box)
}
