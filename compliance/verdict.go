package compliance

import (
	"math"
)

// Reasons that do not depend on the active policy.
const (
	ReasonNoPerson            = "No person detected in the frame."
	ReasonDetectorUnavailable = "Detection service unavailable. Please check model configuration."
)

// Verdict is the outcome of classifying one frame, or a whole video after
// aggregation.
//
// A Verdict is never modified after it is built. DetectedItems and
// MissingItems are sets; their order is deterministic so that the same input
// always produces an identical Verdict.
type Verdict struct {
	// IsSafe is true when every required item is present and nothing
	// disqualifying was seen.
	IsSafe bool `json:"is_safe"`
	// Confidence is a score in [0, 100].
	Confidence int `json:"confidence"`
	// DetectedItems are the item names judged present.
	DetectedItems []string `json:"detected_items"`
	// MissingItems are the required items judged absent or unresolved.
	MissingItems []string `json:"missing_items"`
	// Violations lists "NO-<item>" entries for items that were confidently
	// seen to be absent. Only the arbitration policy records them.
	Violations []string `json:"violations,omitempty"`
	// Reason is a human readable summary of the decision.
	Reason string `json:"reason"`
}

// FallbackVerdict is returned whenever the detector could not be used. It
// always denies entry.
func FallbackVerdict(required []string) Verdict {
	return Verdict{
		IsSafe:        false,
		Confidence:    0,
		DetectedItems: []string{},
		MissingItems:  cloneStrings(required),
		Reason:        ReasonDetectorUnavailable,
	}
}

// noPersonVerdict is the spatial policy's outcome for a frame with nobody
// in it.
func noPersonVerdict(required []string) Verdict {
	return Verdict{
		IsSafe:        false,
		Confidence:    0,
		DetectedItems: []string{},
		MissingItems:  cloneStrings(required),
		Reason:        ReasonNoPerson,
	}
}

// Percent scales a [0, 1] confidence to an integer in [0, 100], truncating
// like int(c*100). The tiny epsilon stops 0.29 becoming 28 through binary
// rounding.
func Percent(c float64) int {
	if math.IsNaN(c) {
		return 0
	}
	v := int(math.Floor(c*100 + 1e-9))
	return clampPercent(v)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// difference returns the members of want not present in have, in want's order.
func difference(want, have []string) []string {
	present := make(map[string]bool, len(have))
	for _, h := range have {
		present[h] = true
	}
	out := make([]string, 0, len(want))
	for _, w := range want {
		if !present[w] {
			out = append(out, w)
		}
	}
	return out
}

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	items []string
	seen  map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: []string{}, seen: map[string]bool{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

func (s *orderedSet) slice() []string {
	return s.items
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
