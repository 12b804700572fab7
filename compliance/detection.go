// Package compliance turns per-frame object detections into a protective
// equipment verdict: is a person present, and do they wear the required gear.
//
// Everything in this package is synchronous and free of shared mutable
// state. An Engine can be used from any number of goroutines.
package compliance

import (
	"fmt"

	"github.com/nvr-ai/go-ppe/images"
	"github.com/nvr-ai/go-ppe/models"
)

// Detection is one object observed in a single frame.
//
// Detections are produced by a detector and only read by this package.
type Detection struct {
	// Class is the label, e.g. "Person", "Hardhat" or "NO-Hardhat".
	Class string `json:"class"`
	// Confidence is the detector score in [0, 1].
	Confidence float64 `json:"confidence"`
	// Box is the axis-aligned bounding box in image pixels.
	Box images.Rect `json:"box"`
}

// NewDetection is shorthand for building a Detection from raw coordinates.
func NewDetection(class string, confidence float64, x1, y1, x2, y2 float32) Detection {
	return Detection{Class: class, Confidence: confidence, Box: images.NewRect(x1, y1, x2, y2)}
}

// IsPerson reports whether d is a person detection.
func (d Detection) IsPerson() bool {
	return d.Class == models.ClassPerson
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (%.2f) %v", d.Class, d.Confidence, d.Box)
}

// SelectPrincipal picks the person a frame's verdict is about: the Person
// detection with the largest box, on the assumption that it is nearest to
// the camera.
//
// Ties go to the first person in input order, so the choice is
// deterministic for a given list.
//
// Arguments:
//   - detections: All detections of one frame.
//
// Returns:
//   - Detection: The principal subject.
//   - bool: false when the frame contains no person. This is a normal
//     outcome, not an error.
func SelectPrincipal(detections []Detection) (Detection, bool) {
	var (
		best     Detection
		bestArea float32
		found    bool
	)
	for _, d := range detections {
		if !d.IsPerson() {
			continue
		}
		area := d.Box.Area()
		if !found || area > bestArea {
			best, bestArea, found = d, area, true
		}
	}
	return best, found
}

// Associate returns the non-person detections that belong to principal:
// those whose box lies inside the principal's box by strictly more than
// threshold (see images.CalculateOverlap).
//
// Every qualifying observation is returned, in input order, including
// repeated boxes of the same class. Use ItemNames for the deduplicated list
// of item names.
//
// Arguments:
//   - detections: All detections of one frame.
//   - principal: The subject returned by SelectPrincipal.
//   - threshold: Minimum overlap, exclusive. DefaultOverlapThreshold is 0.30.
//
// Returns:
//   - []Detection: The gear observed on the principal subject.
func Associate(detections []Detection, principal Detection, threshold float32) []Detection {
	var gear []Detection
	for _, d := range detections {
		if d.IsPerson() {
			continue
		}
		if images.CalculateOverlap(d.Box, principal.Box) > threshold {
			gear = append(gear, d)
		}
	}
	return gear
}

// ItemNames returns the distinct class names of detections, in the order
// they first appear.
func ItemNames(detections []Detection) []string {
	names := make([]string, 0, len(detections))
	seen := make(map[string]bool, len(detections))
	for _, d := range detections {
		if seen[d.Class] {
			continue
		}
		seen[d.Class] = true
		names = append(names, d.Class)
	}
	return names
}

// meanConfidence is zero for an empty list.
func meanConfidence(detections []Detection) float64 {
	if len(detections) == 0 {
		return 0
	}
	var sum float64
	for _, d := range detections {
		sum += d.Confidence
	}
	return sum / float64(len(detections))
}
